// Package telegram connects the services to the Telegram Bot API: it
// implements services.Channel for outbound traffic and runs the update loop
// that turns chat messages into service calls.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/services"
)

// MaxDownloadSize is the Bot API limit for getFile downloads.
const MaxDownloadSize = 20 << 20

var ErrTooLarge = errors.New("file exceeds download limit")

type senderAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(c tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Channel implements services.Channel over the Bot API.
type Channel struct {
	api      senderAPI
	userName string
	http     *http.Client
}

func NewChannel(api senderAPI, botUserName string) *Channel {
	return &Channel{
		api:      api,
		userName: botUserName,
		http:     &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Channel) BotUserName() string { return c.userName }

func (c *Channel) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	_, err := c.api.Send(msg)
	return err
}

func requestFile(item services.Outgoing) tgbotapi.RequestFileData {
	if item.Bytes != nil {
		return tgbotapi.FileBytes{Name: item.FileName, Bytes: item.Bytes}
	}
	return tgbotapi.FileID(item.FileID)
}

func (c *Channel) SendSingle(ctx context.Context, chatID int64, item services.Outgoing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file := requestFile(item)

	var cfg tgbotapi.Chattable
	switch item.Kind {
	case models.KindDocument:
		cfg = tgbotapi.NewDocument(chatID, file)
	case models.KindPhoto:
		cfg = tgbotapi.NewPhoto(chatID, file)
	case models.KindVideo:
		cfg = tgbotapi.NewVideo(chatID, file)
	case models.KindAudio:
		cfg = tgbotapi.NewAudio(chatID, file)
	case models.KindVoice:
		cfg = tgbotapi.NewVoice(chatID, file)
	default:
		return fmt.Errorf("unsupported kind %q", item.Kind)
	}

	_, err := c.api.Send(cfg)
	return err
}

// SendGroup sends items as media groups. Telegram does not let documents
// share a group with photos or videos, so items are split into consecutive
// runs of one class and each run becomes its own group. A run of one item
// goes out as a single message, since a group needs at least two.
func (c *Channel) SendGroup(ctx context.Context, chatID int64, items []services.Outgoing) error {
	for _, item := range items {
		if !item.Kind.Groupable() {
			return fmt.Errorf("kind %q cannot be grouped", item.Kind)
		}
	}

	for _, run := range groupRuns(items) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(run) == 1 {
			if err := c.SendSingle(ctx, chatID, run[0]); err != nil {
				return err
			}
			continue
		}

		media := make([]interface{}, 0, len(run))
		for _, item := range run {
			file := requestFile(item)
			switch item.Kind {
			case models.KindDocument:
				media = append(media, tgbotapi.NewInputMediaDocument(file))
			case models.KindPhoto:
				media = append(media, tgbotapi.NewInputMediaPhoto(file))
			case models.KindVideo:
				media = append(media, tgbotapi.NewInputMediaVideo(file))
			}
		}
		if _, err := c.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media)); err != nil {
			return err
		}
	}
	return nil
}

// groupRuns cuts items into maximal consecutive runs that may share a group.
func groupRuns(items []services.Outgoing) [][]services.Outgoing {
	var runs [][]services.Outgoing
	for i, item := range items {
		if i == 0 || groupClass(item.Kind) != groupClass(items[i-1].Kind) {
			runs = append(runs, nil)
		}
		runs[len(runs)-1] = append(runs[len(runs)-1], item)
	}
	return runs
}

func groupClass(k models.FileKind) models.FileKind {
	if k == models.KindPhoto || k == models.KindVideo {
		return models.KindPhoto
	}
	return k
}

// ReceiveBytes downloads a file by its Telegram file id.
func (c *Channel) ReceiveBytes(ctx context.Context, fileID string) ([]byte, error) {
	url, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if len(data) > MaxDownloadSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
