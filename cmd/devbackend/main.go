package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kioskboard/internal/devbackend"
	"kioskboard/internal/utils"
)

func main() {
	addr := flag.String("addr", ":5000", "Listen address")
	seed := flag.Bool("seed", true, "Load sample orders")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log, err := utils.NewLogger("", *level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := devbackend.NewStore()
	if *seed {
		store.Seed()
	}
	srv := utils.NewServer(*addr, devbackend.NewRouter(store, log))
	if err := utils.RunServer(ctx, srv, log); err != nil {
		log.WithError(err).Error("dev backend stopped")
		os.Exit(1)
	}
}
