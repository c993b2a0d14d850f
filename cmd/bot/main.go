// bot runs the builders community Telegram bot: it reconciles chat
// membership into the Postgres ledger and serves the moderation commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ninetyeight/builderbot/db"
	"github.com/ninetyeight/builderbot/internal/bot"
	"github.com/ninetyeight/builderbot/internal/config"
	dbconn "github.com/ninetyeight/builderbot/internal/db"
	"github.com/ninetyeight/builderbot/internal/ledger"
	"github.com/ninetyeight/builderbot/internal/logger"
	"github.com/ninetyeight/builderbot/internal/telegram"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.L

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrations, err := fs.Sub(db.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := dbconn.MigrateUp(log, cfg.Postgres, migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pool, err := dbconn.Open(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	client, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.RequestTimeout, log)
	if err != nil {
		return fmt.Errorf("connect telegram: %w", err)
	}
	log.Info("authenticated", slog.String("username", client.Username()))

	engine := bot.New(bot.Options{
		Store:       ledger.NewPostgresStore(pool),
		Gateway:     client,
		OwnerID:     cfg.Telegram.OwnerID,
		FanoutLimit: cfg.Bot.FanoutLimit,
		Logger:      log,
	})

	if err := client.SetCommandMenu(ctx, engine.MenuCommands()); err != nil {
		log.Warn("register command menu failed", slog.Any("error", err))
	}

	return client.Run(ctx, engine.HandleUpdate)
}
