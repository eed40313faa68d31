package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

// Submission extracts the uploaded file from msg. For photos the largest size
// is used. Media without a file name get a name derived from the content id.
func Submission(msg *tgbotapi.Message) (models.FileSubmission, bool) {
	switch {
	case msg.Document != nil:
		d := msg.Document
		name := d.FileName
		if name == "" {
			name = "document_" + d.FileUniqueID
		}
		return models.FileSubmission{
			Kind:         models.KindDocument,
			FileID:       d.FileID,
			FileUniqueID: d.FileUniqueID,
			FileName:     name,
			FileSize:     int64(d.FileSize),
			MimeType:     d.MimeType,
		}, true

	case len(msg.Photo) > 0:
		p := msg.Photo[len(msg.Photo)-1]
		return models.FileSubmission{
			Kind:         models.KindPhoto,
			FileID:       p.FileID,
			FileUniqueID: p.FileUniqueID,
			FileName:     "photo_" + p.FileUniqueID + ".jpg",
			FileSize:     int64(p.FileSize),
			MimeType:     "image/jpeg",
		}, true

	case msg.Video != nil:
		v := msg.Video
		return models.FileSubmission{
			Kind:         models.KindVideo,
			FileID:       v.FileID,
			FileUniqueID: v.FileUniqueID,
			FileName:     "video_" + v.FileUniqueID + ".mp4",
			FileSize:     int64(v.FileSize),
			MimeType:     v.MimeType,
		}, true

	case msg.Audio != nil:
		a := msg.Audio
		return models.FileSubmission{
			Kind:         models.KindAudio,
			FileID:       a.FileID,
			FileUniqueID: a.FileUniqueID,
			FileName:     "audio_" + a.FileUniqueID + ".mp3",
			FileSize:     int64(a.FileSize),
			MimeType:     a.MimeType,
		}, true

	case msg.Voice != nil:
		v := msg.Voice
		return models.FileSubmission{
			Kind:         models.KindVoice,
			FileID:       v.FileID,
			FileUniqueID: v.FileUniqueID,
			FileName:     "voice_" + v.FileUniqueID + ".ogg",
			FileSize:     int64(v.FileSize),
			MimeType:     v.MimeType,
		}, true
	}
	return models.FileSubmission{}, false
}

func userFromMessage(msg *tgbotapi.Message) *models.User {
	return &models.User{
		TelegramID: msg.From.ID,
		UserName:   msg.From.UserName,
		FirstName:  msg.From.FirstName,
		LastName:   msg.From.LastName,
	}
}
