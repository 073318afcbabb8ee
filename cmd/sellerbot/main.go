package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	tele "gopkg.in/telebot.v4"
	"log/slog"

	"github.com/m3rciful/marketbot/bot"
	"github.com/m3rciful/marketbot/core/bootstrap"
	coreconfig "github.com/m3rciful/marketbot/core/config"
	"github.com/m3rciful/marketbot/core/logger"
	coretelegram "github.com/m3rciful/marketbot/core/telegram"
	"github.com/m3rciful/marketbot/sellers"
	"github.com/m3rciful/marketbot/storage"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("sellerbot: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	boot, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer func() {
		_ = boot.DB.Close()
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	store := storage.NewPostgres(boot.DB)
	svc := sellers.NewService(store, sellers.NewAttemptTracker())
	handlers := bot.NewHandlers(svc, store)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	return coretelegram.RunTelegram(ctx, coretelegram.RunOptions{
		Config: cfg,
		Routes: bot.Routes(handlers, bot.RouteOptions{AdminID: cfg.Telegram.AdminID}),
		OnStart: func(ctx context.Context, _ *tele.Bot) error {
			logger.L.With("component", "app").Info("app ready",
				slog.String("event", "ready"),
				slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
			)
			return nil
		},
		OnStop: func(ctx context.Context, _ *tele.Bot) error {
			logger.L.With("component", "app").Info("shutting down...",
				slog.String("event", "shutdown"),
			)
			return nil
		},
	})
}
