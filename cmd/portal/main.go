package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"counselportal/internal/cli"
	"counselportal/internal/config"
)

var version = "dev"

func main() {
	var root cli.CLI
	kctx := kong.Parse(&root,
		kong.Name("portal"),
		kong.Description("Consultant appointment portal"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	cfg, err := config.Load(root.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := cli.NewLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.New(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}

	app.ConfigPath = root.Config

	err = kctx.Run(app)
	if closeErr := app.Close(); closeErr != nil {
		logger.Warn().Err(closeErr).Msg("close")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
