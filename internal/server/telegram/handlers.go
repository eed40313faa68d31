package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/services"
)

func (b *Bot) handleCommand(ctx context.Context, user *models.User, chatID int64, cmd, args string) {
	args = strings.TrimSpace(args)

	switch cmd {
	case "start":
		b.handleStart(ctx, user, chatID, args)
		return
	case "help":
		b.reply(ctx, chatID, msgHelp)
		return
	case "cancel":
		b.handleCancel(ctx, user, chatID)
		return
	case "me":
		b.handleMe(ctx, user, chatID)
		return
	case "approve", "block":
		b.handleApproval(ctx, user, chatID, cmd, args)
		return
	}

	handler, ok := ownerCommands[cmd]
	if !ok {
		b.reply(ctx, chatID, msgUnknownCommand)
		return
	}
	if !b.allowed(ctx, user, chatID) {
		return
	}
	handler(b, ctx, user.TelegramID, chatID, args)
}

type ownerHandler func(b *Bot, ctx context.Context, ownerID, chatID int64, args string)

var ownerCommands = map[string]ownerHandler{
	"upload":        (*Bot).handleUploadHint,
	"getlink":       (*Bot).handleGetLink,
	"folder":        (*Bot).handleFolder,
	"myfolders":     (*Bot).handleMyFolders,
	"folderlink":    (*Bot).handleFolderLink,
	"searchfolder":  (*Bot).handleSearchFolder,
	"files":         (*Bot).handleFiles,
	"setpassword":   (*Bot).handleSetPassword,
	"clearpassword": (*Bot).handleClearPassword,
}

func (b *Bot) allowed(ctx context.Context, user *models.User, chatID int64) bool {
	ok, err := b.svc.Access.IsAllowed(ctx, user)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return false
	}
	return ok
}

func (b *Bot) handleStart(ctx context.Context, user *models.User, chatID int64, payload string) {
	if _, err := b.svc.Access.Touch(ctx, user); err != nil {
		b.logger.Warn(ctx, "user not recorded", "user_id", user.TelegramID, "error", err)
	}

	req := services.ParseStart(payload)
	switch req.Kind {
	case services.StartNone:
		b.reply(ctx, chatID, msgHelp)
		return
	case services.StartMalformed:
		b.reply(ctx, chatID, msgMalformedLink)
		return
	}
	b.activate(ctx, user.TelegramID, chatID, req)
}

// activate opens a deep link. Links work for anyone holding them, approved or
// not. A link that resolves replaces any pending password prompt; one that
// does not leaves it untouched.
func (b *Bot) activate(ctx context.Context, requesterID, chatID int64, req services.StartRequest) {
	res, err := b.svc.Links.Resolve(ctx, requesterID, req)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	if _, err := b.svc.Challenge.Cancel(ctx, requesterID); err != nil {
		b.logger.Warn(ctx, "pending challenge not cleared", "requester_id", requesterID, "error", err)
	}

	if res.File != nil {
		report := b.svc.Delivery.DeliverFile(ctx, chatID, res.File)
		if len(report.Failed) > 0 {
			b.reply(ctx, chatID, undelivered(report))
		}
		return
	}

	folder := res.Folder
	if folder.Protected() {
		if err := b.svc.Challenge.Begin(ctx, requesterID, folder); err != nil {
			b.replyError(ctx, chatID, err)
			return
		}
		b.reply(ctx, chatID, fmt.Sprintf("🔒 %s is password protected. Send the password, or /cancel.", folder.Name))
		return
	}
	b.deliverFolder(ctx, chatID, folder)
}

func (b *Bot) deliverFolder(ctx context.Context, chatID int64, folder *models.Folder) {
	report, err := b.svc.Delivery.DeliverFolder(ctx, chatID, folder)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(report.Failed) > 0 {
		b.reply(ctx, chatID, undelivered(*report))
	}
}

func (b *Bot) handleText(ctx context.Context, user *models.User, chatID int64, text string) {
	folder, err := b.svc.Challenge.Answer(ctx, user.TelegramID, text)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, "🔓 Password accepted.")
	b.deliverFolder(ctx, chatID, folder)
}

func (b *Bot) handleCancel(ctx context.Context, user *models.User, chatID int64) {
	had, err := b.svc.Challenge.Cancel(ctx, user.TelegramID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if had {
		b.reply(ctx, chatID, msgCancelled)
		return
	}
	b.reply(ctx, chatID, msgNothingToCancel)
}

func (b *Bot) handleMe(ctx context.Context, user *models.User, chatID int64) {
	u, err := b.svc.Access.Touch(ctx, user)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, formatMe(u, b.svc.Access.IsSuperOwner(u.TelegramID)))
}

func (b *Bot) handleApproval(ctx context.Context, user *models.User, chatID int64, cmd, args string) {
	target, err := strconv.ParseInt(args, 10, 64)
	if err != nil || target <= 0 {
		b.reply(ctx, chatID, usage(cmd, "<user id>"))
		return
	}

	if cmd == "approve" {
		err = b.svc.Access.Approve(ctx, user.TelegramID, target)
	} else {
		err = b.svc.Access.Block(ctx, user.TelegramID, target)
	}
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	if cmd == "approve" {
		b.reply(ctx, chatID, fmt.Sprintf("✅ User %d approved.", target))
	} else {
		b.reply(ctx, chatID, fmt.Sprintf("⛔ User %d blocked.", target))
	}
}

func (b *Bot) handleUpload(ctx context.Context, user *models.User, chatID int64, sub models.FileSubmission) {
	if !b.allowed(ctx, user, chatID) {
		return
	}

	res, err := b.svc.Files.Ingest(ctx, user.TelegramID, sub)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if !res.Created {
		b.reply(ctx, chatID, fmt.Sprintf("ℹ️ %s is already stored (#%d).", res.File.FileName, res.File.ID))
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("✅ Saved %s to %s (#%d).", res.File.FileName, res.Folder.Name, res.File.ID))
}

func (b *Bot) handleUploadHint(ctx context.Context, ownerID, chatID int64, _ string) {
	folder, err := b.svc.Folders.EnsureCurrent(ctx, ownerID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("📤 Send files now, they go to %s. Use /folder <name> to switch.", folder.Name))
}

func (b *Bot) handleGetLink(ctx context.Context, ownerID, chatID int64, _ string) {
	link, file, err := b.svc.Files.LastFileLink(ctx, ownerID)
	if errors.Is(err, common.ErrorNotFound) {
		b.reply(ctx, chatID, msgNoUploads)
		return
	}
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("🔗 %s\n%s", file.FileName, link))
}

func (b *Bot) handleFolder(ctx context.Context, ownerID, chatID int64, args string) {
	if args == "" {
		b.reply(ctx, chatID, usage("folder", "<name>"))
		return
	}
	folder, err := b.svc.Folders.Select(ctx, ownerID, args)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("📂 Current folder: %s", folder.Name))
}

func (b *Bot) handleMyFolders(ctx context.Context, ownerID, chatID int64, _ string) {
	folders, err := b.svc.Folders.List(ctx, ownerID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, formatFolders("Your folders:", folders))
}

func (b *Bot) handleSearchFolder(ctx context.Context, ownerID, chatID int64, args string) {
	if args == "" {
		b.reply(ctx, chatID, usage("searchfolder", "<text>"))
		return
	}
	folders, err := b.svc.Folders.Search(ctx, ownerID, args)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, formatFolders(fmt.Sprintf("Folders matching %q:", args), folders))
}

func (b *Bot) handleFolderLink(ctx context.Context, ownerID, chatID int64, _ string) {
	link, folder, err := b.svc.Links.FolderLink(ctx, ownerID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("%s\n%s", folderLine(folder), link))
}

func (b *Bot) handleFiles(ctx context.Context, ownerID, chatID int64, _ string) {
	folder, files, err := b.svc.Folders.ListCurrentFiles(ctx, ownerID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, formatFiles(b.channel.BotUserName(), folder, files))
}

func (b *Bot) handleSetPassword(ctx context.Context, ownerID, chatID int64, args string) {
	if args == "" {
		b.reply(ctx, chatID, usage("setpassword", "<password>"))
		return
	}
	folder, err := b.svc.Folders.SetPassword(ctx, ownerID, args)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("🔒 %s is now password protected.", folder.Name))
}

func (b *Bot) handleClearPassword(ctx context.Context, ownerID, chatID int64, _ string) {
	folder, err := b.svc.Folders.ClearPassword(ctx, ownerID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("🔓 %s is no longer password protected.", folder.Name))
}
