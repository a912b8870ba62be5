package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kioskboard/internal/api"
	"kioskboard/internal/auth"
	"kioskboard/internal/backend"
	"kioskboard/internal/config"
	"kioskboard/internal/kitchen"
	"kioskboard/internal/poll"
	"kioskboard/internal/screen"
	"kioskboard/internal/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to config.json (default: project root)")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	serverFlag := flag.String("server", "", "Override backend base URL (e.g. http://localhost:5000/)")
	interval := flag.Duration("poll", 0, "Poll interval (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *serverFlag != "" {
		cfg.BackendURL = config.NormalizeBaseURL(*serverFlag)
	}
	if *interval > 0 {
		cfg.PollInterval = *interval
	}

	log, err := utils.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer log.Close()

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("kiosk stopped")
		os.Exit(1)
	}
}

func run(cfg config.Config, log *utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(cfg, nil, log)
	clock := poll.RealClock{}

	orders := kitchen.NewOrderBoard(client, clock, cfg.PollInterval, log)
	if cfg.OrderFallback {
		orders.UseFallback(kitchen.PlaceholderOrders)
	}
	board := kitchen.NewBoard(kitchen.NewCheckInFeed(client, clock, cfg.PollInterval, log), orders)
	router := screen.NewRouter(client, clock, cfg.ConfirmationTimeout, log)
	defer router.Close()

	staff, err := auth.New(cfg.StaffPINHash, cfg.SessionKey, log)
	if err != nil {
		return err
	}
	srv, err := api.NewServer(board, router, staff, log)
	if err != nil {
		return err
	}
	defer srv.Close()

	log.WithFields(map[string]any{
		"backend":       client.BaseURL(),
		"poll_interval": cfg.PollInterval.String(),
		"staff_pin":     staff.Enabled(),
	}).Info("starting kiosk")

	board.Mount()
	defer board.Unmount()

	httpSrv := utils.NewServer(cfg.ListenAddr, srv.Handler())
	// Websocket streams are hijacked and outlive Shutdown unless closed first.
	httpSrv.RegisterOnShutdown(srv.Close)
	start := time.Now()
	err = utils.RunServer(ctx, httpSrv, log)
	log.WithFields(map[string]any{"uptime": time.Since(start).Round(time.Second).String()}).Info("kiosk stopped")
	return err
}
