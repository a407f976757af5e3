package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/invoice-extractor/internal/backend"
)

func backendCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("backend").SetParent(parent)
	var (
		port          = fs.IntLong("port", 8000, "HTTP server port")
		storagePath   = fs.StringLong("storage", "./uploads", "Storage directory path")
		bucket        = fs.StringLong("bucket", "invoice-uploads", "Bucket used when uploads name none")
		extractorType = fs.StringLong("extractor", "gemini", "Extractor type: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Default Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", backend.DefaultModel, "Default Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
	)

	return &ff.Command{
		Name:      "backend",
		Usage:     "invoice-extractor backend [FLAGS]",
		ShortHelp: "run a local extraction service for the direct profile",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			var extractor backend.Extractor
			var err error
			switch *extractorType {
			case "gemini":
				apiKey := *geminiKey
				if apiKey == "" {
					apiKey = os.Getenv("GEMINI_API_KEY")
				}
				if apiKey == "" {
					slog.Warn("No default Gemini API key; requests must carry api_key")
				}
				slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
				extractor, err = backend.NewGemini(apiKey, *geminiModel)
			case "ollama":
				slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
				extractor, err = backend.NewOllama(*ollamaURL, *ollamaModel)
			default:
				return fmt.Errorf("invalid extractor type %q (valid: gemini, ollama)", *extractorType)
			}
			if err != nil {
				return fmt.Errorf("initializing extractor: %w", err)
			}
			defer extractor.Close()

			slog.Info("Initializing storage...", "path", *storagePath)
			store, err := backend.NewLocalStorage(*storagePath)
			if err != nil {
				return err
			}

			server := backend.NewServer(extractor, store, *bucket)
			if err := server.Start(ctx, fmt.Sprintf(":%d", *port)); err != nil {
				return fmt.Errorf("serving: %w", err)
			}
			slog.Info("Shutting down...")
			return nil
		},
	}
}
