// Package server wires the filekeeper bot together: database, optional raw
// copy storage, challenge sessions, event publishing, the Telegram loop and
// the health endpoint. It also handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/filekeeper/internal/server/config"
	"github.com/dmitrijs2005/filekeeper/internal/server/events"
	"github.com/dmitrijs2005/filekeeper/internal/server/health"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filekeeper/internal/server/services"
	"github.com/dmitrijs2005/filekeeper/internal/server/sessions"
	"github.com/dmitrijs2005/filekeeper/internal/server/telegram"
)

const sessionSweepInterval = time.Minute

type App struct {
	config *config.Config
	logger logging.Logger

	bot      *telegram.Bot
	health   *health.Server
	memStore *sessions.MemoryStore
	closers  []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	app := &App{config: c, logger: logger}
	if err := app.init(ctx); err != nil {
		_ = app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	db, err := dbx.Open(ctx, "pgx", c.DatabaseDSN, dbx.DefaultPoolOptions)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, db.Close)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("db migrations error: %w", err)
	}

	var blobs blobstore.Store
	if c.KeepRawBytes() {
		s3, err := blobstore.NewS3Store(ctx, c)
		if err != nil {
			return fmt.Errorf("blob store init error: %w", err)
		}
		blobs = s3
	}

	store, err := app.sessionStore(ctx)
	if err != nil {
		return err
	}

	publisher, err := app.publisher()
	if err != nil {
		return err
	}

	api, err := telegram.NewBotAPI(c.BotToken)
	if err != nil {
		return err
	}
	ch := telegram.NewChannel(api, api.Self.UserName)

	folders := services.NewFolderService(db, rm, app.logger)
	svc := telegram.Services{
		Access:    services.NewAccessService(db, rm, ch, publisher, app.logger, c.SuperOwnerID),
		Folders:   folders,
		Files:     services.NewFileService(db, rm, folders, ch, blobs, c.RawBytesMaxSize, publisher, app.logger),
		Links:     services.NewLinkService(db, rm, folders, ch, publisher, app.logger),
		Challenge: services.NewChallengeService(db, rm, store, app.logger),
		Delivery:  services.NewDeliveryService(db, rm, ch, blobs, c.BatchSize, app.logger),
	}

	app.bot = telegram.NewBot(api, ch, svc, app.logger, c.PollTimeout)
	if c.HealthAddr != "" {
		app.health = health.NewServer(c.HealthAddr, db, app.logger)
	}
	return nil
}

// sessionStore picks Redis when configured so pending challenges survive a
// restart; otherwise they live in memory.
func (app *App) sessionStore(ctx context.Context) (sessions.Store, error) {
	c := app.config
	if c.RedisAddr == "" {
		app.memStore = sessions.NewMemoryStore(c.SessionTTL)
		return app.memStore, nil
	}

	client, err := sessions.NewRedisClient(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.closers = append(app.closers, client.Close)
	return sessions.NewRedisStore(client, c.SessionTTL), nil
}

func (app *App) publisher() (events.Publisher, error) {
	if app.config.AMQPURL == "" {
		return events.NoopPublisher{}, nil
	}
	p, err := events.NewAMQPPublisher(app.config.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("amqp init error: %w", err)
	}
	app.closers = append(app.closers, p.Close)
	return p, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startBot(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.bot.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHealthServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.health.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startBot(ctx, cancelFunc)
		cancelFunc()
	}()

	if app.health != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startHealthServer(ctx, cancelFunc)
		}()
	}

	if app.memStore != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.memStore.Run(ctx, sessionSweepInterval)
		}()
	}

	wg.Wait()

	if err := app.close(); err != nil {
		app.logger.Error(ctx, "shutdown error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i]())
	}
	app.closers = nil
	return errors.Join(errs...)
}
