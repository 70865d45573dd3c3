package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/course-feedback/internal/api"
	"github.com/Spok95/course-feedback/internal/bot"
	"github.com/Spok95/course-feedback/internal/config"
	"github.com/Spok95/course-feedback/internal/ctxutil"
	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/identity"
	"github.com/Spok95/course-feedback/internal/jobs"
	"github.com/Spok95/course-feedback/internal/logging"
	"github.com/Spok95/course-feedback/internal/observability"
	"github.com/Spok95/course-feedback/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env, cfg.Release)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer lg.Closer()
	log := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		log.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctxutil.SetDBTimeout(cfg.DBTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store := db.NewStore(conn)
	ids := identity.NewService(store)

	if err := bootstrap(ctx, cfg, store, ids, log); err != nil {
		return err
	}

	manager := session.NewManager(session.NewResolver(ids, store, lg.Component("session")), cfg.SessionTTL, lg.Component("session"))
	fb := feedback.NewService(store, lg.Component("feedback"))

	runner := jobs.New(ctx, lg.Component("jobs"))
	runner.Every(time.Minute, jobs.SessionSweepName, jobs.SessionSweep(manager, lg.Component("jobs")))

	g, gctx := errgroup.WithContext(ctx)

	srv := api.NewServer(&api.Options{
		Address:     cfg.HTTPAddr,
		Debug:       cfg.HTTPDebug,
		Store:       store,
		Sessions:    manager,
		Feedback:    fb,
		Credentials: ids,
		Log:         lg.Component("api"),
	})
	g.Go(func() error { return srv.Start(gctx) })

	if cfg.BotToken != "" {
		tgAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		log.Info("bot started", zap.String("username", tgAPI.Self.UserName))

		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := tgAPI.GetUpdatesChan(u)

		b := bot.New(bot.Options{
			API:      tgAPI,
			Store:    store,
			Sessions: manager,
			Feedback: fb,
			Log:      lg.Component("bot"),
		})
		g.Go(func() error {
			b.Run(gctx, updates)
			tgAPI.StopReceivingUpdates()
			return nil
		})
	} else {
		log.Info("BOT_TOKEN is empty, telegram bot disabled")
	}

	err = g.Wait()
	stop()
	runner.Wait()
	log.Info("shutdown complete")
	return err
}

// bootstrap: админ из окружения и (по желанию) демо-данные.
func bootstrap(ctx context.Context, cfg *config.Config, store *db.Store, ids *identity.Service, log *zap.Logger) error {
	if cfg.BootstrapAdmin.Enabled() {
		a, err := store.EnsureAdmin(ctx, cfg.BootstrapAdmin.Name, cfg.BootstrapAdmin.Email)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if err := ids.SetPassword(ctx, a.Email, cfg.BootstrapAdmin.Password); err != nil {
			return fmt.Errorf("bootstrap admin password: %w", err)
		}
		log.Info("bootstrap admin ensured", zap.String("email", a.Email))
	}

	if cfg.SeedDemo {
		demo, err := db.SeedDemo(ctx, store)
		if err != nil {
			return err
		}
		for _, email := range demo.Emails() {
			if err := ids.SetPassword(ctx, email, cfg.DemoPassword); err != nil {
				return fmt.Errorf("demo password %s: %w", email, err)
			}
		}
		if demo.Form.ID != 0 {
			log.Info("demo data seeded",
				zap.Int64("form_id", demo.Form.ID),
				zap.Strings("accounts", demo.Emails()),
			)
		}
	}
	return nil
}
