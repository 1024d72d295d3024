package cmdflags

import (
	"github.com/urfave/cli/v2"
)

func Bind(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "bind",
		Aliases:     []string{"b"},
		Usage:       "Address to bind for incoming requests",
		Destination: out,
		Value:       *out,
	}
}

func DataDir(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "data",
		Aliases:     []string{"d"},
		Usage:       "Directory holding the local user database",
		Destination: out,
		Value:       *out,
	}
}

func Cost(out *int) cli.Flag {
	return &cli.IntFlag{
		Name:        "cost",
		Usage:       "bcrypt cost used to derive the hash (defaults to BCRYPT_COST)",
		Destination: out,
		Value:       *out,
	}
}
