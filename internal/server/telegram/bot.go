package telegram

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/services"
)

type AccessGate interface {
	Touch(ctx context.Context, user *models.User) (*models.User, error)
	IsAllowed(ctx context.Context, user *models.User) (bool, error)
	IsSuperOwner(id int64) bool
	Approve(ctx context.Context, actorID, targetID int64) error
	Block(ctx context.Context, actorID, targetID int64) error
}

type Folders interface {
	Select(ctx context.Context, ownerID int64, name string) (*models.Folder, error)
	EnsureCurrent(ctx context.Context, ownerID int64) (*models.Folder, error)
	SetPassword(ctx context.Context, ownerID int64, password string) (*models.Folder, error)
	ClearPassword(ctx context.Context, ownerID int64) (*models.Folder, error)
	List(ctx context.Context, ownerID int64) ([]*models.Folder, error)
	Search(ctx context.Context, ownerID int64, query string) ([]*models.Folder, error)
	ListCurrentFiles(ctx context.Context, ownerID int64) (*models.Folder, []*models.File, error)
}

type Files interface {
	Ingest(ctx context.Context, ownerID int64, sub models.FileSubmission) (*services.IngestResult, error)
	LastFileLink(ctx context.Context, ownerID int64) (string, *models.File, error)
}

type Links interface {
	FolderLink(ctx context.Context, ownerID int64) (string, *models.Folder, error)
	Resolve(ctx context.Context, requesterID int64, req services.StartRequest) (*services.Resolved, error)
}

type Challenges interface {
	Begin(ctx context.Context, requesterID int64, folder *models.Folder) error
	Answer(ctx context.Context, requesterID int64, text string) (*models.Folder, error)
	Cancel(ctx context.Context, requesterID int64) (bool, error)
}

type Delivery interface {
	DeliverFolder(ctx context.Context, recipientID int64, folder *models.Folder) (*services.Report, error)
	DeliverFile(ctx context.Context, recipientID int64, file *models.File) services.Report
}

// Services bundles what the bot dispatches to.
type Services struct {
	Access    AccessGate
	Folders   Folders
	Files     Files
	Links     Links
	Challenge Challenges
	Delivery  Delivery
}

type updatesAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot runs the long-polling loop and handles updates one at a time.
type Bot struct {
	api           updatesAPI
	channel       services.Channel
	svc           Services
	logger        logging.Logger
	pollTimeout   time.Duration
	handleTimeout time.Duration
}

func NewBot(api updatesAPI, ch services.Channel, svc Services, logger logging.Logger, pollTimeout time.Duration) *Bot {
	return &Bot{
		api:           api,
		channel:       ch,
		svc:           svc,
		logger:        logger.With("module", "telegram"),
		pollTimeout:   pollTimeout,
		handleTimeout: 5 * time.Minute,
	}
}

// NewBotAPI connects to the Bot API with token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return api, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(b.pollTimeout / time.Second)

	updates := b.api.GetUpdatesChan(cfg)
	b.logger.Info(ctx, "Starting bot", "bot", b.channel.BotUserName())

	for {
		select {
		case <-ctx.Done():
			b.logger.Info(ctx, "Stopping bot...")
			b.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate processes one update. A panic is logged and answered with a
// generic message so it never takes the loop down.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.handleTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(ctx, "panic while handling update", "update_id", upd.UpdateID,
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			b.reply(ctx, msg.Chat.ID, msgTryLater)
		}
	}()

	user := userFromMessage(msg)
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(ctx, user, chatID, msg.Command(), msg.CommandArguments())
		return
	}
	if sub, ok := Submission(msg); ok {
		b.handleUpload(ctx, user, chatID, sub)
		return
	}
	if msg.Text != "" {
		b.handleText(ctx, user, chatID, msg.Text)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.channel.SendText(ctx, chatID, text); err != nil {
		b.logger.Warn(ctx, "reply failed", "chat_id", chatID, "error", err)
	}
}

// replyError maps err to user text. Unexpected errors are logged.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	text, known := errorText(err)
	if !known {
		b.logger.Error(ctx, "request failed", "chat_id", chatID, "error", err)
	}
	b.reply(ctx, chatID, text)
}
