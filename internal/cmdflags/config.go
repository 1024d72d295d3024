package cmdflags

import (
	"errors"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andrebq/puente/internal/config"
	"github.com/andrebq/puente/internal/logutil"
)

const (
	configKey = "puente.config"
)

var (
	errNoConfig = errors.New("configuration was not loaded, LoadConfig must run before the command")
)

// LoadConfig reads the environment once, installs the process logger and
// keeps the configuration in the app metadata. Use it as the app Before hook.
func LoadConfig(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logutil.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	log.Logger = logger
	ctx.Context = logutil.WithLogger(ctx.Context, logger)
	if ctx.App.Metadata == nil {
		ctx.App.Metadata = map[string]interface{}{}
	}
	ctx.App.Metadata[configKey] = cfg
	return nil
}

func Config(ctx *cli.Context) (*config.Config, error) {
	cfg, ok := ctx.App.Metadata[configKey].(*config.Config)
	if !ok {
		return nil, errNoConfig
	}
	return cfg, nil
}
