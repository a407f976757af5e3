package web

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/zombor/invoice-extractor/internal/invoice"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/app.css
var appCSS []byte

// pages holds one template set per page, each sharing the layout
type pages map[string]*template.Template

var pageNames = []string{"index", "status", "results", "dashboard"}

var funcs = template.FuncMap{
	"currency": func(amount any, code string) string {
		return invoice.FormatCurrency(amount, code)
	},
	"date":  invoice.FormatDate,
	"ago":   func(t time.Time) string { return humanize.Time(t) },
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"pct":   func(f float64) string { return humanize.FtoaWithDigits(f, 1) + "%" },
}

func mustParsePages() pages {
	base := template.Must(template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/node.html"))
	p := make(pages, len(pageNames))
	for _, name := range pageNames {
		t := template.Must(base.Clone())
		p[name] = template.Must(t.ParseFS(templateFS, "templates/"+name+".html"))
	}
	return p
}

// render executes a page into a buffer so template errors become a clean 500
func (s *Server) render(w http.ResponseWriter, code int, name string, data any) {
	t, ok := s.pages[name]
	if !ok {
		slog.Error("Unknown page", "page", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("Error rendering page", "page", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Error writing page", "page", name, "error", err)
	}
}
