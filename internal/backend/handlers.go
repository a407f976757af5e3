package backend

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/invoice-extractor/internal/pipeline"
)

// httpError carries a status code and the detail sent to the client
type httpError struct {
	code   int
	detail string
}

func (e *httpError) Error() string {
	return e.detail
}

func badRequest(format string, args ...any) *httpError {
	return &httpError{code: http.StatusBadRequest, detail: fmt.Sprintf(format, args...)}
}

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes {"error": detail}
func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"error": detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "PDF Processing Service is running"})
}

type uploadRequest struct {
	FileContent string `json:"file_content"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Bucket      string `json:"s3_bucket"`
}

type uploadResponse struct {
	Bucket    string `json:"s3_bucket"`
	Key       string `json:"s3_key"`
	FileID    string `json:"file_id"`
	UploadID  string `json:"uploadId"`
	Timestamp string `json:"upload_timestamp"`
	Filename  string `json:"filename"`
	Message   string `json:"message"`
}

// uploadKey is the object key for an uploaded file. Process requests that
// only carry a file id rebuild the same key.
func uploadKey(timestamp, fileID, filename string) string {
	return fmt.Sprintf("invoices/uploads/%s_%s_%s", timestamp, fileID, filename)
}

// handleUpload stores a base64 document in the bucket directory
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.FileContent == "" {
		writeError(w, http.StatusBadRequest, "Missing file_content")
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.FileContent)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid base64 for file_content: %v", err))
		return
	}
	if len(data) > maxDocumentSize {
		writeError(w, http.StatusBadRequest, "File is too large")
		return
	}

	bucket := req.Bucket
	if bucket == "" {
		bucket = s.defaultBucket
	}
	filename := pipeline.SanitizeFilename(req.Filename)
	fileID := s.idGenerator()
	timestamp := s.now().UTC().Format("20060102T150405Z")
	key := uploadKey(timestamp, fileID, filename)

	if _, err := s.storage.Put(bucket, key, data); err != nil {
		slog.Error("Error storing upload", "error", err, "bucket", bucket, "key", key)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("An internal server error occurred: %v", err))
		return
	}

	slog.Info("Stored upload", "bucket", bucket, "key", key, "size", len(data), "content_type", req.ContentType)
	writeJSON(w, http.StatusOK, uploadResponse{
		Bucket:    bucket,
		Key:       key,
		FileID:    fileID,
		UploadID:  fileID,
		Timestamp: timestamp,
		Filename:  filename,
		Message:   "File uploaded successfully",
	})
}

type processRequest struct {
	APIKey             string   `json:"api_key"`
	FileContent        string   `json:"file_content"`
	S3URL              string   `json:"s3_url"`
	Bucket             string   `json:"s3_bucket"`
	Key                string   `json:"s3_key"`
	FileID             string   `json:"file_id"`
	UploadTimestamp    string   `json:"upload_timestamp"`
	OriginalFilename   string   `json:"original_filename"`
	ContentType        string   `json:"content_type"`
	CustomPrompt       string   `json:"custom_prompt"`
	CustomSystemPrompt string   `json:"custom_system_prompt"`
	ModelName          string   `json:"model_name"`
	Temperature        *float32 `json:"temperature"`
	TopK               *int32   `json:"top_k"`
	TopP               *float32 `json:"top_p"`
	OutputFormat       string   `json:"output_format"`
}

// document resolves the request's file from whichever input it names.
// Inputs are tried in order: inline base64, URL, bucket+key, file id.
func (s *Server) document(r *http.Request, req processRequest) ([]byte, error) {
	var data []byte
	var err error

	switch {
	case req.FileContent != "":
		data, err = base64.StdEncoding.DecodeString(req.FileContent)
		if err != nil {
			return nil, badRequest("Invalid base64 for file_content: %v", err)
		}
	case req.S3URL != "":
		data, err = s.fetcher.Fetch(r.Context(), req.S3URL)
		if err != nil {
			return nil, badRequest("Failed to download from S3 URL: %v", err)
		}
	case req.Bucket != "" && req.Key != "":
		data, err = s.storage.Get(req.Bucket, req.Key)
		if err != nil {
			return nil, badRequest("Failed to download from S3: %v", err)
		}
	case req.FileID != "" && req.Bucket != "":
		filename := req.OriginalFilename
		if filename == "" {
			filename = "file.pdf"
		}
		data, err = s.storage.Get(req.Bucket, uploadKey(req.UploadTimestamp, req.FileID, filename))
		if err != nil {
			return nil, badRequest("Failed to download file using file_id: %v", err)
		}
	default:
		return nil, badRequest("Missing file input. Provide one of: file_content (base64), s3_url, s3_bucket+s3_key, or file_id+s3_bucket")
	}

	if len(data) == 0 {
		return nil, badRequest("Failed to obtain file content")
	}
	return data, nil
}

// handleProcess runs the extractor over the resolved document
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.OutputFormat == "" {
		req.OutputFormat = "json"
	}

	data, err := s.document(r, req)
	if err != nil {
		var he *httpError
		if errors.As(err, &he) {
			slog.Warn("Rejected process request", "error", he.detail)
			writeError(w, he.code, he.detail)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("An internal server error occurred: %v", err))
		return
	}

	isJSON := strings.EqualFold(req.OutputFormat, "json")
	extraction := Request{
		Document:     data,
		ContentType:  req.ContentType,
		Prompt:       req.CustomPrompt,
		SystemPrompt: req.CustomSystemPrompt,
		Model:        req.ModelName,
		APIKey:       req.APIKey,
		TopK:         req.TopK,
		TopP:         req.TopP,
		JSON:         isJSON,
	}
	if req.Temperature != nil {
		extraction.Temperature = *req.Temperature
	}

	text, err := s.extractor.Extract(r.Context(), extraction)
	if err != nil {
		slog.Error("Extraction failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("An internal server error occurred: %v", err))
		return
	}

	if !isJSON {
		writeJSON(w, http.StatusOK, map[string]string{"result": text})
		return
	}

	parsed, err := ParseResult(text)
	if err != nil {
		slog.Warn("All JSON parsing failed", "error", err, "raw_length", len(text))
		writeJSON(w, http.StatusOK, parseFailure(text))
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}
