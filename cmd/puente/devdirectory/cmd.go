package devdirectory

import (
	"github.com/urfave/cli/v2"

	"github.com/andrebq/puente/directory/devstore"
	"github.com/andrebq/puente/internal/cmdflags"
	"github.com/andrebq/puente/internal/httpserver"
	"github.com/andrebq/puente/internal/logutil"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:7010"
	dataDir := "devdata"
	return &cli.Command{
		Name:  "devdirectory",
		Usage: "Serve a local sqlite directory speaking the same protocol as GAS_URL",
		Flags: []cli.Flag{
			cmdflags.Bind(&bindAddr),
			cmdflags.DataDir(&dataDir),
		},
		Action: func(ctx *cli.Context) error {
			store, err := devstore.Open(ctx.Context, dataDir)
			if err != nil {
				return err
			}
			defer store.Close()
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Str("data", dataDir).Msg("Local directory ready, point GAS_URL at this server")
			return httpserver.Serve(ctx.Context, bindAddr, logutil.Requests(log)(devstore.AsHandler(store)))
		},
	}
}
