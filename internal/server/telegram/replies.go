package telegram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/services"
)

const (
	msgHelp = `📦 File keeper

Send any document, photo, video, audio or voice message and it is stored in your current folder.

/folder <name> - switch to (or create) a folder
/myfolders - list your folders
/searchfolder <text> - find folders by name
/files - files in the current folder
/upload - show where uploads go
/getlink - link to your last upload
/folderlink - share link for the current folder
/setpassword <password> - protect the current folder
/clearpassword - remove the password
/cancel - stop a pending password prompt
/me - your account`

	msgTryLater        = "⚠️ Something went wrong, please try again later."
	msgNotFound        = "🔍 Not found. The link may be wrong or the content is gone."
	msgMalformedLink   = "⚠️ This link is not valid."
	msgForbidden       = "🚫 Only the bot owner can do that."
	msgWrongPassword   = "❌ Wrong password. Try again or send /cancel."
	msgNoLongerLocked  = "🔓 This folder is no longer password protected. Open the link again to get the files."
	msgNoChallenge     = "💡 Send a file to store it, or /help for commands."
	msgUnknownCommand  = "❓ Unknown command. Send /help for the list."
	msgCancelled       = "✅ Cancelled."
	msgNothingToCancel = "Nothing to cancel."
	msgNoUploads       = "📭 You have not uploaded anything yet."
)

// errorText returns the user-facing text for err and whether err was an
// expected, user-caused condition.
func errorText(err error) (string, bool) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		detail := strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
		return "⚠️ " + detail, true
	case errors.Is(err, common.ErrorMalformedLink):
		return msgMalformedLink, true
	case errors.Is(err, common.ErrorNotFound):
		return msgNotFound, true
	case errors.Is(err, common.ErrorForbidden):
		return msgForbidden, true
	case errors.Is(err, common.ErrWrongPassword):
		return msgWrongPassword, true
	case errors.Is(err, common.ErrNoLongerProtected):
		return msgNoLongerLocked, true
	case errors.Is(err, common.ErrNoChallenge):
		return msgNoChallenge, true
	}
	return msgTryLater, false
}

func usage(cmd, args string) string {
	return fmt.Sprintf("Usage: /%s %s", cmd, args)
}

func folderLine(f *models.Folder) string {
	if f.Protected() {
		return "🔒 " + f.Name
	}
	return "📁 " + f.Name
}

func formatFolders(title string, folders []*models.Folder) string {
	if len(folders) == 0 {
		return title + "\n(none)"
	}
	var sb strings.Builder
	sb.WriteString(title)
	for _, f := range folders {
		sb.WriteString("\n")
		sb.WriteString(folderLine(f))
	}
	return sb.String()
}

func formatFiles(bot string, folder *models.Folder, files []*models.File) string {
	if len(files) == 0 {
		return folderLine(folder) + " is empty."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d)", folderLine(folder), len(files))
	for _, f := range files {
		fmt.Fprintf(&sb, "\n#%d %s %s\n%s", f.ID, kindIcon(f.Kind), f.FileName,
			services.DeepLink(bot, services.FilePayload(f.ID)))
	}
	return sb.String()
}

func kindIcon(k models.FileKind) string {
	switch k {
	case models.KindPhoto:
		return "🖼"
	case models.KindVideo:
		return "🎬"
	case models.KindAudio:
		return "🎵"
	case models.KindVoice:
		return "🎙"
	default:
		return "📄"
	}
}

func formatMe(u *models.User, superOwner bool) string {
	status := "not approved"
	switch {
	case superOwner:
		status = "owner"
	case u.Approved:
		status = "approved"
	}
	return fmt.Sprintf("👤 %s\nid: %d\nstatus: %s", u.DisplayName(), u.TelegramID, status)
}

func undelivered(r services.Report) string {
	if len(r.Failed) == 1 {
		return fmt.Sprintf("⚠️ %s could not be delivered.", r.Failed[0].FileName)
	}
	return fmt.Sprintf("⚠️ %d files could not be delivered.", len(r.Failed))
}
