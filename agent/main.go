package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"beacon/agent/internal/beacon"
	"beacon/agent/internal/config"
	"beacon/agent/internal/logger"

	"github.com/spf13/pflag"
)

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Invalid configuration:", err)
		os.Exit(2)
	}
	if err := logger.Init(cfg.LogPath, cfg.Debug); err != nil {
		fmt.Fprintln(os.Stderr, "Cannot open log file:", err)
		os.Exit(1)
	}

	ctrl, err := beacon.Setup(cfg)
	if err != nil {
		logger.Error("Agent initialization failed: ", err)
		os.Exit(1)
	}
	logger.Infof("Agent initialized, server=%s interval=%v encryption=%v", cfg.ServerURL, cfg.CallbackInterval, cfg.UseEncryption)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if st, err := ctrl.Run(ctx); st == beacon.StateAborted {
		logger.Errorf("Agent aborted: %v", err)
		stop()
		os.Exit(1)
	}
}
