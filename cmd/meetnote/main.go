package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"meetnote/internal/cli"
	"meetnote/internal/output"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli.CLI{}
	if err := c.Command().Run(ctx, os.Args); err != nil {
		if !errors.Is(err, cli.ErrReported) {
			output.NewFormatter(os.Stderr, time.Local).Error(cli.UserMessage(err))
		}
		stop()
		os.Exit(1)
	}
}
