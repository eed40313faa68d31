package models

import "time"

// User is a Telegram account that contacted the bot.
type User struct {
	TelegramID int64
	UserName   string
	FirstName  string
	LastName   string
	Approved   bool
	CreatedAt  time.Time
}

// DisplayName returns "@username" when known, else the first/last name, else
// the numeric id.
func (u *User) DisplayName() string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name != "" {
		return name
	}
	return itoa(u.TelegramID)
}
