// Package dashboard loads the aggregate panels shown on the dashboard. Each
// panel is fetched independently and replaced with demo data when its fetch
// fails, so one broken endpoint never blanks the page.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zombor/invoice-extractor/internal/apiclient"
)

// API is the subset of apiclient.Client used by the loader
type API interface {
	Do(ctx context.Context, method, path string, body any, headers map[string]string) (any, error)
}

// Stats are the headline counters
type Stats struct {
	TotalInvoices      int     `json:"totalInvoices"`
	ProcessedThisMonth int     `json:"processedThisMonth"`
	TotalAmount        float64 `json:"totalAmount"`
	PendingReview      int     `json:"pendingReview"`
	SuccessRate        float64 `json:"successRate"`
	AvgProcessingTime  float64 `json:"avgProcessingTime"`
}

// MonthlyPoint is one month of the volume series
type MonthlyPoint struct {
	Month    string  `json:"month"`
	Invoices int     `json:"invoices"`
	Amount   float64 `json:"amount"`
}

// TypeShare is one slice of the invoice type breakdown
type TypeShare struct {
	Type       string  `json:"type"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// RecentInvoice is a row of the recent invoices table
type RecentInvoice struct {
	ID            string  `json:"id"`
	InvoiceNumber string  `json:"invoiceNumber"`
	Vendor        string  `json:"vendor"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
}

// Profile is the signed-in user
type Profile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Role    string `json:"role"`
}

// Live records which panels came from the service rather than demo data
type Live struct {
	Stats   bool
	Monthly bool
	Types   bool
	Recent  bool
}

// Snapshot is everything the dashboard shows
type Snapshot struct {
	Stats    Stats
	Monthly  []MonthlyPoint
	Types    []TypeShare
	Recent   []RecentInvoice
	Live     Live
	LoadedAt time.Time
}

// Default query sizes
const (
	DefaultMonths = 6
	DefaultLimit  = 5
)

// Loader fetches dashboard data
type Loader struct {
	api    API
	months int
	limit  int
}

// NewLoader creates a Loader. api may be nil, in which case every panel is demo data.
func NewLoader(api API, months, limit int) *Loader {
	if months <= 0 {
		months = DefaultMonths
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Loader{api: api, months: months, limit: limit}
}

// Load fetches all four panels concurrently and waits for all of them
func (l *Loader) Load(ctx context.Context) Snapshot {
	start := time.Now()
	var s Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Live.Stats = l.fetch(ctx, "/dashboard/stats", &s.Stats)
		if !s.Live.Stats {
			s.Stats = DemoStats
		}
		return nil
	})
	g.Go(func() error {
		s.Live.Monthly = l.fetch(ctx, fmt.Sprintf("/dashboard/monthly-data?months=%d", l.months), &s.Monthly)
		if !s.Live.Monthly {
			s.Monthly = demoMonthly(l.months)
		}
		return nil
	})
	g.Go(func() error {
		s.Live.Types = l.fetch(ctx, "/dashboard/invoice-types", &s.Types)
		if !s.Live.Types {
			s.Types = append([]TypeShare(nil), DemoTypes...)
		}
		return nil
	})
	g.Go(func() error {
		s.Live.Recent = l.fetch(ctx, fmt.Sprintf("/dashboard/recent-invoices?limit=%d", l.limit), &s.Recent)
		if !s.Live.Recent {
			s.Recent = demoRecent(l.limit)
		}
		return nil
	})
	_ = g.Wait()

	s.LoadedAt = time.Now()
	slog.Info("Dashboard loaded",
		"stats_live", s.Live.Stats,
		"monthly_live", s.Live.Monthly,
		"types_live", s.Live.Types,
		"recent_live", s.Live.Recent,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return s
}

// Profile fetches the user profile, falling back to the demo profile.
// The boolean reports whether the data is live.
func (l *Loader) Profile(ctx context.Context) (Profile, bool) {
	var p Profile
	if l.fetch(ctx, "/user/profile", &p) {
		return p, true
	}
	return DemoProfile, false
}

// fetch decodes path into out and reports success. Failures are logged and
// swallowed; the caller substitutes demo data.
func (l *Loader) fetch(ctx context.Context, path string, out any) bool {
	if l.api == nil {
		return false
	}
	data, err := l.api.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		slog.Warn("Dashboard fetch failed, using demo data", "path", path, "error", err)
		return false
	}
	if m, ok := data.(map[string]any); ok {
		if inner, ok := m["data"]; ok {
			data = inner
		}
	}
	if err := apiclient.Decode(data, out); err != nil {
		slog.Warn("Dashboard response not understood, using demo data", "path", path, "error", err)
		return false
	}
	return true
}
