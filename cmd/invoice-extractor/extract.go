package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/invoice-extractor/internal/export"
	"github.com/zombor/invoice-extractor/internal/pipeline"
	"github.com/zombor/invoice-extractor/internal/view"
)

func extractCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("extract").SetParent(parent)
	var (
		apiFlags = registerClientFlags(fs)
		format   = fs.StringLong("export", "", "Also export the result: json, csv or xlsx")
		outDir   = fs.StringLong("out", ".", "Directory for exported files")
	)

	return &ff.Command{
		Name:      "extract",
		Usage:     "invoice-extractor extract [FLAGS] <FILE>",
		ShortHelp: "extract one invoice and print the result",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("extract requires exactly one file: %w", ff.ErrHelp)
			}

			var exportFormat export.Format
			if *format != "" {
				f, err := export.ParseFormat(*format)
				if err != nil {
					return err
				}
				exportFormat = f
			}

			file, err := readSelectedFile(args[0])
			if err != nil {
				return err
			}

			c, err := apiFlags.build(nil)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.controller.Submit(file); err != nil {
				var invalid *pipeline.ValidationError
				if errors.As(err, &invalid) {
					return errors.New(invalid.Message)
				}
				return err
			}

			session, err := c.controller.Wait(ctx)
			if err != nil {
				return fmt.Errorf("waiting for extraction: %w", err)
			}
			if session.State != pipeline.StateReady {
				return errors.New(session.Message)
			}

			if err := view.NewTerminal(os.Stdout).Render(view.Build(session.Extraction)); err != nil {
				return fmt.Errorf("rendering results: %w", err)
			}

			if exportFormat == "" {
				return nil
			}
			exporter := export.NewExporter(c.api, c.profile.RemoteExport)
			download, err := exporter.Export(ctx, exportFormat, session.Result, session.ExtractionID, session.Filename())
			if err != nil {
				return fmt.Errorf("exporting results: %w", err)
			}
			if download.URL != "" {
				fmt.Fprintf(os.Stdout, "\nDownload: %s\n", download.URL)
				return nil
			}

			path := filepath.Join(*outDir, download.Filename)
			if err := os.WriteFile(path, download.Data, 0644); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			slog.Info("Exported results", "path", path, "format", exportFormat)
			return nil
		},
	}
}

// readSelectedFile loads a local file the way a browser file picker would
func readSelectedFile(path string) (pipeline.SelectedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.SelectedFile{}, fmt.Errorf("reading %s: %w", path, err)
	}
	name := filepath.Base(path)
	return pipeline.SelectedFile{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: pipeline.ContentTypeFor(name),
		Data:        data,
	}, nil
}
