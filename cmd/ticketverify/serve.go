package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/peterbourgon/ff/v4"
	"github.com/rotisserie/eris"

	"github.com/zombor/ticketverify/internal/receipt"
)

func (a *app) serveCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("serve").SetParent(parent)
	var (
		port     = fs.IntLong("port", 8080, "HTTP server port")
		authUser = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		maxBody  = fs.IntLong("max-body", receipt.DefaultMaxBodyBytes, "maximum request body size in bytes")
		rateRPS  = fs.Float64Long("rate", 0, "requests per second allowed on /v1/parse (0 disables)")
		burst    = fs.IntLong("burst", 10, "request burst allowed above the rate")
	)

	return &ff.Command{
		Name:      "serve",
		Usage:     appName + " serve [FLAGS]",
		ShortHelp: "serve the parser over HTTP",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return argsError("unexpected arguments", eris.Errorf("%v", args))
			}

			if !*a.debug {
				a.level.Set(slog.LevelInfo)
			}

			cfg := receipt.ServerConfig{
				BasicAuth: receipt.BasicAuth{
					Username: *authUser,
					Password: *authPass,
				},
				MaxBodyBytes:  int64(*maxBody),
				RatePerSecond: *rateRPS,
				Burst:         *burst,
			}
			server := receipt.NewServer(receipt.NewEngine(a.logger), versionInfo(), cfg)

			addr := fmt.Sprintf(":%d", *port)
			a.logger.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
			if *authUser != "" || *authPass != "" {
				a.logger.Info("Basic auth enabled", "user", *authUser)
			}

			if err := server.Start(ctx, addr); err != nil {
				return internalError("server error", err)
			}
			a.logger.Info("Shutting down...")
			return nil
		},
	}
}
