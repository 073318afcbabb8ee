// Command otpgen issues a seller registration OTP out of band. The printed
// code is handed to the seller through whatever channel the admin prefers.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/m3rciful/marketbot/core/bootstrap"
	coreconfig "github.com/m3rciful/marketbot/core/config"
	"github.com/m3rciful/marketbot/core/logger"
	"github.com/m3rciful/marketbot/otp"
	"github.com/m3rciful/marketbot/storage"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("otpgen: %v", err)
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

	boot, err := bootstrap.Run(bootstrap.Options{Config: cfg, SkipMigrations: true})
	if err != nil {
		return err
	}
	defer func() {
		_ = boot.DB.Close()
		_ = logger.Shutdown()
	}()

	store := storage.NewPostgres(boot.DB)

	code, err := otp.Generate()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(otp.TTL)

	ctx := logger.WithRID(context.Background(), logger.NewRID())
	if err := store.SaveOTP(ctx, code, expiresAt); err != nil {
		return err
	}

	fmt.Printf("✅ OTP generated: %s\n", code)
	fmt.Println("⚠️ This OTP will expire in 24 hours and can only be used once.")
	return nil
}
