package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/invoice-extractor/internal/pipeline"
)

// API is the subset of apiclient.Client used for server-side exports
type API interface {
	Do(ctx context.Context, method, path string, body any, headers map[string]string) (any, error)
}

// Exporter asks the service to build the export and falls back to a local
// file when that is unavailable
type Exporter struct {
	api    API
	remote bool
}

// NewExporter creates an Exporter. With remote false every export is local.
func NewExporter(api API, remote bool) *Exporter {
	return &Exporter{api: api, remote: remote}
}

// Export returns a download for result. Remote delegation needs an
// extraction id; any remote failure falls back to Local.
func (e *Exporter) Export(ctx context.Context, f Format, result any, extractionID, sourceName string) (Download, error) {
	if e.remote && e.api != nil && extractionID != "" {
		link, err := e.remoteURL(ctx, f, extractionID)
		if err == nil {
			slog.Info("Using server-side export", "extraction_id", extractionID, "format", f)
			return Download{
				Filename:    Filename(extractionID, sourceName, f),
				ContentType: f.ContentType(),
				URL:         link,
			}, nil
		}
		slog.Warn("Server-side export failed, building file locally", "extraction_id", extractionID, "format", f, "error", err)
	}
	return Local(f, result, extractionID, sourceName)
}

func (e *Exporter) remoteURL(ctx context.Context, f Format, extractionID string) (string, error) {
	data, err := e.api.Do(ctx, http.MethodPost, pipeline.ExportPath(extractionID), map[string]string{"format": string(f)}, nil)
	if err != nil {
		return "", fmt.Errorf("requesting export: %w", err)
	}

	m, _ := data.(map[string]any)
	for _, obj := range []any{m, m["data"]} {
		inner, ok := obj.(map[string]any)
		if !ok {
			continue
		}
		for _, k := range []string{"downloadUrl", "download_url", "url"} {
			if s, ok := inner[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), nil
			}
		}
	}
	return "", errors.New("export response carries no download url")
}
