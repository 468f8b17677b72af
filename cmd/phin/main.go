package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ytget/phin/internal/cli"
)

func main() {
	// Ctrl-C stops the current download or transcode and the loop around it
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.Execute(ctx, os.Args[1:])
	stop()

	if err != nil {
		os.Exit(1)
	}
}
