package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/invoice-extractor/internal/dashboard"
	"github.com/zombor/invoice-extractor/internal/export"
	"github.com/zombor/invoice-extractor/internal/pipeline"
	"github.com/zombor/invoice-extractor/internal/web"
)

func serveCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("serve").SetParent(parent)
	var (
		apiFlags = registerClientFlags(fs)
		port     = fs.IntLong("port", 8080, "HTTP server port")
		authUser = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		months   = fs.IntLong("dashboard-months", dashboard.DefaultMonths, "Months in the dashboard volume series")
		limit    = fs.IntLong("dashboard-limit", dashboard.DefaultLimit, "Recent invoices on the dashboard")
	)

	return &ff.Command{
		Name:      "serve",
		Usage:     "invoice-extractor serve [FLAGS]",
		ShortHelp: "run the local web UI",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			c, err := apiFlags.build(func(s pipeline.Session) {
				slog.Info("Results ready", "file", s.Filename(), "extraction_id", s.ExtractionID)
			})
			if err != nil {
				return err
			}
			defer c.Close()

			var dash web.Dashboard
			if c.profile.Dashboard {
				dash = dashboard.NewLoader(c.api, *months, *limit)
			}
			exporter := export.NewExporter(c.api, c.profile.RemoteExport)

			server := web.NewServer(c.controller, exporter, dash, web.BasicAuth{
				Username: *authUser,
				Password: *authPass,
			})
			if *authUser != "" || *authPass != "" {
				slog.Info("Basic auth enabled", "user", *authUser)
			}

			addr := fmt.Sprintf(":%d", *port)
			slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
			if err := server.Start(ctx, addr); err != nil {
				return fmt.Errorf("serving: %w", err)
			}
			slog.Info("Shutting down...")
			return nil
		},
	}
}
