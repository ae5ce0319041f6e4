package main

import (
	"context"
	"log"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"rolloutdb/internal/app"
	"rolloutdb/pkg/config"
	"rolloutdb/pkg/logger"
)

// version is set via ldflags during release builds.
var version = "dev"

func main() {
	_ = godotenv.Load(".env")
	addrVal, batchVal, cfgVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// flags win over config/env when provided
	if setFlags["addr"] && addrVal != "" {
		host, port, err := net.SplitHostPort(addrVal)
		if err != nil {
			log.Fatalf("invalid --addr %q: %v", addrVal, err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			log.Fatalf("invalid --addr port %q: %v", port, err)
		}
		cfg.Server.Address = host
		cfg.Server.Port = p
	}
	if setFlags["batch-size"] {
		cfg.Batch.Size = batchVal
	}

	logger.InitWithConfig(cfg.Logging.Level, cfg.Logging.Format)

	a, err := app.New(cfg, version)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.Run(ctx); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
