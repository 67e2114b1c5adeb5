package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"encore/internal/config"
	"encore/internal/daemon"
	"encore/internal/logging"
	"encore/internal/scheduler"
	"encore/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return
	}

	sched := scheduler.NewManager(cfg, st, logger)

	d, err := daemon.New(cfg, st, logger, sched)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = st.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("encored shutting down")
}
