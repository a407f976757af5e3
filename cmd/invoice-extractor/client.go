package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/invoice-extractor/internal/apiclient"
	"github.com/zombor/invoice-extractor/internal/credentials"
	"github.com/zombor/invoice-extractor/internal/pipeline"
	"github.com/zombor/invoice-extractor/internal/poll"
)

// clientFlags are shared by the commands that talk to the extraction API
type clientFlags struct {
	apiURL          *string
	profile         *string
	token           *string
	tokenDB         *string
	bucket          *string
	apiKey          *string
	pollInterval    *time.Duration
	pollAttempts    *int
	pollErrors      *int
	completionDelay *time.Duration
}

func registerClientFlags(fs *ff.FlagSet) *clientFlags {
	return &clientFlags{
		apiURL:          fs.StringLong("api-url", "http://localhost:8000", "Extraction API base URL"),
		profile:         fs.StringLong("profile", "direct", "Transport profile: dashboard or direct"),
		token:           fs.StringLong("token", "", "Bearer token (overrides the token store)"),
		tokenDB:         fs.StringLong("token-db", "invoice-extractor.db", "Read-only token store path"),
		bucket:          fs.StringLong("bucket", "invoice-uploads", "Upload bucket name"),
		apiKey:          fs.StringLong("api-key", "", "Model API key forwarded with process requests"),
		pollInterval:    fs.DurationLong("poll-interval", poll.DefaultInterval, "Status poll interval"),
		pollAttempts:    fs.IntLong("poll-attempts", poll.DefaultMaxAttempts, "Maximum status polls"),
		pollErrors:      fs.IntLong("poll-errors", poll.DefaultMaxErrors, "Maximum consecutive status errors"),
		completionDelay: fs.DurationLong("completion-delay", pipeline.DefaultCompletionDelay, "Pause before showing results"),
	}
}

// client is the wired API client and pipeline for one command
type client struct {
	profile    pipeline.Profile
	api        *apiclient.Client
	controller *pipeline.Controller
	store      *credentials.Store
}

// tokenSource picks the --token override, then the token store. A missing
// store means requests go out unauthenticated.
func (f *clientFlags) tokenSource() (apiclient.TokenSource, *credentials.Store, error) {
	if *f.token != "" {
		return apiclient.StaticToken(*f.token), nil, nil
	}
	store, err := credentials.Open(*f.tokenDB)
	if errors.Is(err, credentials.ErrNoStore) {
		slog.Debug("No token store found", "path", *f.tokenDB)
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}

func (f *clientFlags) build(onNavigate func(pipeline.Session)) (*client, error) {
	profile, err := pipeline.LookupProfile(*f.profile)
	if err != nil {
		return nil, err
	}

	tokens, store, err := f.tokenSource()
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	var opts []apiclient.Option
	if tokens != nil {
		opts = append(opts, apiclient.WithTokenSource(tokens))
	}
	api := apiclient.New(*f.apiURL, opts...)

	controller := pipeline.NewController(pipeline.NewService(api, profile, *f.bucket, *f.apiKey), pipeline.ControllerConfig{
		Profile: profile,
		Poll: poll.Config{
			Interval:    *f.pollInterval,
			MaxAttempts: *f.pollAttempts,
			MaxErrors:   *f.pollErrors,
		},
		CompletionDelay: *f.completionDelay,
		OnNavigate:      onNavigate,
	})

	slog.Info("Using extraction API", "url", api.BaseURL(), "profile", profile.Name, "authenticated", tokens != nil)
	return &client{profile: profile, api: api, controller: controller, store: store}, nil
}

// Close stops the controller and releases the token store
func (c *client) Close() {
	c.controller.Close()
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			slog.Warn("Error closing token store", "error", err)
		}
	}
}
