package bootstrap

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/andrebq/puente/bridge"
	"github.com/andrebq/puente/directory"
	"github.com/andrebq/puente/internal/cmdflags"
)

func Cmd() *cli.Command {
	return &cli.Command{
		Name:  "bootstrap",
		Usage: "Create the superadmin as the first admin when the directory has no users",
		Action: func(ctx *cli.Context) error {
			cfg, err := cmdflags.Config(ctx)
			if err != nil {
				return err
			}
			if !cfg.GASConfigured() {
				return directory.NotConfigured{}
			}
			svc := bridge.New(cfg, directory.NewClient(cfg.GASURL, cfg.GASTimeout), nil)
			res, err := svc.BootstrapAdmin(ctx.Context)
			if err != nil {
				return err
			}
			fmt.Fprintln(ctx.App.Writer, string(res.Body))
			if !res.Success() {
				return errors.New("directory refused the bootstrap")
			}
			return nil
		},
	}
}
