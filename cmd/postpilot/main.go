package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/postpilothq/postpilot/internal/app"
	"github.com/postpilothq/postpilot/internal/config"
	"github.com/postpilothq/postpilot/internal/observability/logger"
)

func main() {
	// .env es opcional; en producción las vars vienen del entorno real.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("POSTPILOT_CONFIG"), "ruta al YAML de configuración")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       os.Getenv("POSTPILOT_LOG_LEVEL"),
		ServiceName: "postpilot",
	})
	defer func() { _ = logger.Sync() }()

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.L().Fatal("bootstrap failed", logger.Err(err))
	}

	if err := a.Run(context.Background()); err != nil {
		logger.L().Fatal("server exited", logger.Err(err))
	}
}
