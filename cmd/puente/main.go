package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andrebq/puente/cmd/puente/bootstrap"
	"github.com/andrebq/puente/cmd/puente/devdirectory"
	"github.com/andrebq/puente/cmd/puente/hash"
	"github.com/andrebq/puente/cmd/puente/serve"
	"github.com/andrebq/puente/internal/cmdflags"
)

func main() {
	app := &cli.App{
		Name:   "puente",
		Usage:  "Credential bridge between the client application and the remote user directory",
		Before: cmdflags.LoadConfig,
		Commands: []*cli.Command{
			serve.Cmd(),
			hash.Cmd(),
			bootstrap.Cmd(),
			devdirectory.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		cancel()
		os.Exit(1)
	}
}
