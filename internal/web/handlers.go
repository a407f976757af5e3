package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/zombor/invoice-extractor/internal/dashboard"
	"github.com/zombor/invoice-extractor/internal/export"
	"github.com/zombor/invoice-extractor/internal/pipeline"
	"github.com/zombor/invoice-extractor/internal/view"
)

// maxFormSize bounds the multipart body; files over pipeline.MaxFileSize
// still parse so validation can report their size
const maxFormSize = 50 << 20

// Page is the data every page shares with the layout
type Page struct {
	Title   string
	Profile pipeline.Profile
}

type indexData struct {
	Page
	Error   string
	Session pipeline.Session
	MaxSize string
}

type statusData struct {
	Page
	Session pipeline.Session
	Refresh int
}

type resultsData struct {
	Page
	Session pipeline.Session
	Nodes   []view.Node
	Formats []export.Format
}

type dashboardData struct {
	Page
	Snapshot dashboard.Snapshot
	User     dashboard.Profile
	UserLive bool
}

func (s *Server) page(title string) Page {
	return Page{Title: title, Profile: s.controller.Profile()}
}

func (s *Server) renderIndex(w http.ResponseWriter, code int, message string) {
	s.render(w, code, "index", indexData{
		Page:    s.page("Upload Invoice"),
		Error:   message,
		Session: s.controller.Snapshot(),
		MaxSize: humanize.IBytes(pipeline.MaxFileSize),
	})
}

// handleIndex serves the upload page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, http.StatusOK, "")
}

// handleStaticCSS serves the stylesheet
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write(appCSS)
}

// handleHealth reports liveness without auth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"profile": s.controller.Profile().Name,
	}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// selectedFile reads the "file" form field. A missing field yields an empty
// selection so validation reports it.
func selectedFile(r *http.Request) (pipeline.SelectedFile, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return pipeline.SelectedFile{}, nil
	}
	if err != nil {
		return pipeline.SelectedFile{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return pipeline.SelectedFile{}, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = pipeline.ContentTypeFor(header.Filename)
	}
	return pipeline.SelectedFile{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// handleUpload validates the chosen file and starts a cycle
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		slog.Error("Error parsing multipart form", "error", err)
		message := "Error reading the upload. Please try again."
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			message = "File is too large. Maximum size is " + humanize.IBytes(pipeline.MaxFileSize) + "."
		}
		s.renderIndex(w, http.StatusBadRequest, message)
		return
	}

	file, err := selectedFile(r)
	if err != nil {
		slog.Error("Error reading uploaded file", "error", err)
		s.renderIndex(w, http.StatusBadRequest, "Error reading file. Please try again.")
		return
	}

	err = s.controller.Submit(file)
	var invalid *pipeline.ValidationError
	switch {
	case err == nil:
		slog.Info("Upload submitted", "filename", file.Name, "size", file.Size, "content_type", file.ContentType)
		http.Redirect(w, r, "/status", http.StatusSeeOther)
	case errors.As(err, &invalid):
		s.renderIndex(w, http.StatusBadRequest, invalid.Message)
	case errors.Is(err, pipeline.ErrClosed):
		s.renderIndex(w, http.StatusServiceUnavailable, "The server is shutting down. Please try again shortly.")
	default:
		slog.Error("Error submitting upload", "error", err)
		s.renderIndex(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
	}
}

// handleStatus shows progress, refreshing until the cycle ends
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	session := s.controller.Snapshot()
	switch session.State {
	case pipeline.StateReady:
		http.Redirect(w, r, "/results", http.StatusSeeOther)
		return
	case pipeline.StateIdle:
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := statusData{Page: s.page("Processing"), Session: session}
	if session.InProgress() {
		data.Refresh = s.refresh
	}
	s.render(w, http.StatusOK, "status", data)
}

// handleResults renders the extraction
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	session := s.controller.Snapshot()
	if session.State != pipeline.StateReady {
		http.Redirect(w, r, "/status", http.StatusSeeOther)
		return
	}

	s.render(w, http.StatusOK, "results", resultsData{
		Page:    s.page("Extraction Results"),
		Session: session,
		Nodes:   view.Build(session.Extraction),
		Formats: []export.Format{export.JSON, export.CSV, export.XLSX},
	})
}

// handleExport downloads the result, or redirects to a remote download
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session := s.controller.Snapshot()
	if session.State != pipeline.StateReady || session.Result == nil {
		http.Error(w, "No extraction results are available to export.", http.StatusConflict)
		return
	}

	download, err := s.exporter.Export(r.Context(), format, session.Result, session.ExtractionID, session.Filename())
	if err != nil {
		slog.Error("Error exporting results", "error", err, "format", format)
		http.Error(w, "Export failed. Please try again.", http.StatusInternalServerError)
		return
	}

	if download.URL != "" {
		http.Redirect(w, r, download.URL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": download.Filename}))
	if _, err := w.Write(download.Data); err != nil {
		slog.Error("Error writing export", "error", err)
	}
}

// handleReset discards the session
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.controller.Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleDashboard renders live panels, falling back to demo data per panel
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.dashboard == nil || !s.controller.Profile().Dashboard {
		http.NotFound(w, r)
		return
	}

	snapshot := s.dashboard.Load(r.Context())
	user, live := s.dashboard.Profile(r.Context())
	s.render(w, http.StatusOK, "dashboard", dashboardData{
		Page:     s.page("Dashboard"),
		Snapshot: snapshot,
		User:     user,
		UserLive: live,
	})
}
