package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/zombor/invoice-extractor/internal/poll"
)

var (
	// ErrUploadFailed wraps every failure of the upload step
	ErrUploadFailed = errors.New("upload failed")
	// ErrProcessFailed wraps every failure of the process step
	ErrProcessFailed = errors.New("processing failed")
)

// API is the subset of apiclient.Client used by the pipeline
type API interface {
	Do(ctx context.Context, method, path string, body any, headers map[string]string) (any, error)
}

// UploadReference locates an uploaded document in storage
type UploadReference struct {
	Bucket   string
	Key      string
	UploadID string
	// Timestamp is set by services that key uploads by time
	Timestamp string
	Filename  string
}

// ProcessingHandle correlates a process request with its status checks
type ProcessingHandle struct {
	ID string
}

// ProcessResult is the outcome of the process step. Async profiles set
// Handle; sync profiles set Result.
type ProcessResult struct {
	Handle *ProcessingHandle
	Result any
}

type uploadRequest struct {
	FileContent string `json:"file_content"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	S3Bucket    string `json:"s3_bucket"`
}

type processRequest struct {
	APIKey       string  `json:"api_key"`
	S3Bucket     string  `json:"s3_bucket"`
	S3Key        string  `json:"s3_key"`
	FileID       string  `json:"file_id,omitempty"`
	Timestamp    string  `json:"upload_timestamp,omitempty"`
	Filename     string  `json:"original_filename,omitempty"`
	CustomPrompt string  `json:"custom_prompt"`
	Temperature  float64 `json:"temperature"`
	OutputFormat string  `json:"output_format"`
}

// Service performs the individual pipeline steps against the API
type Service struct {
	api     API
	profile Profile
	bucket  string
	apiKey  string
}

// NewService creates a Service for the given profile. bucket is the storage
// bucket sent with uploads; apiKey is forwarded to the extraction model.
func NewService(api API, profile Profile, bucket, apiKey string) *Service {
	return &Service{
		api:     api,
		profile: profile,
		bucket:  bucket,
		apiKey:  apiKey,
	}
}

// Profile returns the transport profile in use
func (s *Service) Profile() Profile {
	return s.profile
}

// Upload sends the whole document base64 encoded and returns where it was stored
func (s *Service) Upload(ctx context.Context, f SelectedFile) (UploadReference, error) {
	req := uploadRequest{
		FileContent: base64.StdEncoding.EncodeToString(f.Data),
		Filename:    f.Name,
		ContentType: normalizeContentType(f.ContentType),
		S3Bucket:    s.bucket,
	}

	slog.Info("Uploading document", "filename", f.Name, "size", len(f.Data), "path", s.profile.UploadPath)
	data, err := s.api.Do(ctx, http.MethodPost, s.profile.UploadPath, req, nil)
	if err != nil {
		return UploadReference{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	ref := UploadReference{
		Bucket:    field(data, "s3_bucket", "bucket", "bucketName"),
		Key:       field(data, "s3_key", "key", "s3Key", "uploadId"),
		UploadID:  field(data, "uploadId", "upload_id", "file_id", "fileId"),
		Timestamp: field(data, "upload_timestamp", "uploadTimestamp", "timestamp"),
		Filename:  field(data, "filename", "original_filename"),
	}
	if ref.Bucket == "" {
		ref.Bucket = s.bucket
	}
	if ref.Filename == "" {
		ref.Filename = f.Name
	}
	if ref.Key == "" && ref.UploadID == "" {
		return UploadReference{}, fmt.Errorf("%w: response carries no storage key", ErrUploadFailed)
	}
	return ref, nil
}

// Process submits the uploaded document for extraction
func (s *Service) Process(ctx context.Context, ref UploadReference) (ProcessResult, error) {
	req := processRequest{
		APIKey:       s.apiKey,
		S3Bucket:     ref.Bucket,
		S3Key:        ref.Key,
		CustomPrompt: ExtractionPrompt,
		Temperature:  0.0,
		OutputFormat: "json",
	}
	if ref.Key == "" {
		req.FileID = ref.UploadID
		req.Timestamp = ref.Timestamp
		req.Filename = ref.Filename
	}

	slog.Info("Submitting document for processing", "bucket", ref.Bucket, "key", ref.Key, "path", s.profile.ProcessPath)
	data, err := s.api.Do(ctx, http.MethodPost, s.profile.ProcessPath, req, nil)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("%w: %w", ErrProcessFailed, err)
	}

	if !s.profile.Async {
		return ProcessResult{Result: data}, nil
	}

	id := field(data, "processingId", "processing_id", "id", "task_id", "taskId")
	if id == "" {
		return ProcessResult{}, fmt.Errorf("%w: response carries no processing id", ErrProcessFailed)
	}
	return ProcessResult{Handle: &ProcessingHandle{ID: id}}, nil
}

// CheckStatus returns the current state of a processing request
func (s *Service) CheckStatus(ctx context.Context, id string) (poll.Status, error) {
	data, err := s.api.Do(ctx, http.MethodGet, StatusPath(id), nil, nil)
	if err != nil {
		return poll.Status{}, fmt.Errorf("checking status: %w", err)
	}

	st := poll.Status{
		State:        field(data, "status", "state"),
		CurrentStep:  field(data, "currentStep", "current_step"),
		ExtractionID: field(data, "extractionId", "extraction_id"),
		Error:        errorText(data),
	}
	if p, err := strconv.ParseFloat(field(data, "progress"), 64); err == nil {
		st.Progress = int(math.Round(p))
	}
	if st.State == "" {
		return poll.Status{}, errors.New("checking status: response carries no status")
	}
	return st, nil
}

// FetchExtraction returns the stored result of a finished extraction
func (s *Service) FetchExtraction(ctx context.Context, id string) (any, error) {
	data, err := s.api.Do(ctx, http.MethodGet, ExtractionPath(id), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching extraction %s: %w", id, err)
	}
	return data, nil
}

// field returns the first non-empty scalar under any of the keys, looking at
// the top level and then inside a "data" envelope
func field(data any, keys ...string) string {
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	for _, obj := range []any{m, m["data"]} {
		inner, ok := obj.(map[string]any)
		if !ok {
			continue
		}
		for _, k := range keys {
			switch v := inner[k].(type) {
			case string:
				if s := strings.TrimSpace(v); s != "" {
					return s
				}
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

func errorText(data any) string {
	if msg := field(data, "error", "message"); msg != "" {
		return msg
	}
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	if e, ok := m["error"].(map[string]any); ok {
		return field(e, "message")
	}
	return ""
}
