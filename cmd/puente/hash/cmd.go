package hash

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andrebq/puente/credential"
	"github.com/andrebq/puente/internal/cmdflags"
	"github.com/andrebq/puente/internal/logutil"
)

func Cmd() *cli.Command {
	var cost int
	return &cli.Command{
		Name:  "hash",
		Usage: "Print a peppered hash for SUPERADMIN_HASH (password is read from stdin)",
		Flags: []cli.Flag{
			cmdflags.Cost(&cost),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := cmdflags.Config(ctx)
			if err != nil {
				return err
			}
			if cost == 0 {
				cost = cfg.BcryptCost
			}
			if cfg.Pepper == "" {
				log := logutil.GetOrDefault(ctx.Context)
				log.Warn().Msg("PEPPER is empty, the hash will only verify on bridges without a pepper")
			}
			password, err := readPassword(os.Stdin)
			if err != nil {
				return err
			}
			hash, err := credential.NewCodec(cfg.Pepper, cost).Hash(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ctx.App.Writer, hash)
			return err
		},
	}
}

// readPassword takes the first line of r. Only the line ending is removed,
// spaces are part of the password.
func readPassword(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if sc.Err() != nil {
			return "", sc.Err()
		}
		return "", errors.New("missing password from stdin")
	}
	password := strings.TrimRight(sc.Text(), "\r")
	if len(password) == 0 {
		return "", errors.New("missing password from stdin")
	}
	return password, nil
}
