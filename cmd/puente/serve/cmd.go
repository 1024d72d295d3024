package serve

import (
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/andrebq/puente/bridge"
	"github.com/andrebq/puente/bridge/api"
	"github.com/andrebq/puente/directory"
	"github.com/andrebq/puente/internal/cmdflags"
	"github.com/andrebq/puente/internal/config"
	"github.com/andrebq/puente/internal/httpserver"
	"github.com/andrebq/puente/internal/logutil"
	"github.com/andrebq/puente/internal/ratelimit"
)

func Cmd() *cli.Command {
	var bindAddr string
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP bridge (listens on PORT unless --bind is given)",
		Flags: []cli.Flag{
			cmdflags.Bind(&bindAddr),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := cmdflags.Config(ctx)
			if err != nil {
				return err
			}
			if bindAddr == "" {
				bindAddr = cfg.Addr()
			}
			log := logutil.GetOrDefault(ctx.Context)
			announce(log, cfg)

			counter, closeCounter, err := limitCounter(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCounter()

			client := directory.NewClient(cfg.GASURL, cfg.GASTimeout)
			touch := bridge.NewTouchNotifier(client, bridge.DefaultTouchQueue, bridge.DefaultTouchTimeout)
			touch.Start(ctx.Context)
			svc := bridge.New(cfg, client, touch)
			handler := api.AsHandler(ctx.Context, cfg, svc, api.Options{Logger: log, Counter: counter})
			return httpserver.Serve(ctx.Context, bindAddr, handler)
		},
	}
}

func announce(log zerolog.Logger, cfg *config.Config) {
	if !cfg.GASConfigured() {
		log.Warn().Msg("GAS_URL is not set, every API route will answer 500")
	}
	if cfg.Pepper == "" {
		log.Warn().Msg("PEPPER is empty, password hashes only depend on the bcrypt salt")
	}
	log.Info().
		Bool("gas_configured", cfg.GASConfigured()).
		Bool("superadmin", cfg.SuperadminConfigured()).
		Dur("gas_timeout", cfg.GASTimeout).
		Int("login_limit", cfg.LoginRateLimit).
		Int("register_limit", cfg.RegisterRateLimit).
		Dur("limit_window", cfg.RateLimitWindow).
		Bool("shared_limits", cfg.RateLimitRedisURL != "").
		Msg("Bridge configured")
}

func limitCounter(ctx *cli.Context, cfg *config.Config) (httprate.LimitCounter, func(), error) {
	if cfg.RateLimitRedisURL != "" {
		client, err := ratelimit.RedisFromURL(cfg.RateLimitRedisURL)
		if err != nil {
			return nil, nil, err
		}
		return ratelimit.NewRedisCounter(client, "puente:ratelimit:"), func() { client.Close() }, nil
	}
	counter, err := ratelimit.NewCacheCounter(ctx.Context, cfg.RateLimitWindow)
	if err != nil {
		return nil, nil, err
	}
	return counter, func() { counter.Close() }, nil
}
