package main

import (
	"context"
	"net"
	"strconv"

	"github.com/desertthunder/mustx/internal/server"
	"github.com/desertthunder/mustx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP server until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	loader, err := r.Loader(ctx)
	if err != nil {
		return err
	}

	logger := shared.WithLogger(r.logger, "component", "server")
	router := server.New(loader, server.Opts{
		Logger:   logger,
		Registry: r.registry,
		Now:      r.now,
	})

	return server.Serve(ctx, r.serveAddr(cmd), router, logger)
}

func (r *Runner) serveAddr(cmd *cli.Command) string {
	if !cmd.IsSet("host") && !cmd.IsSet("port") {
		return r.config.ServerAddr()
	}

	host := r.config.Server.Host
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
