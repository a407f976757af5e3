package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxFileSize is the largest document accepted for upload
const MaxFileSize = 10 << 20

// SelectedFile is the document chosen by the user
type SelectedFile struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// ErrValidation is wrapped by every ValidationError
var ErrValidation = errors.New("invalid file")

// ValidationError carries the message shown to the user
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validate checks the declared type and size of f against the profile.
// It makes no network calls and touches no session.
func Validate(f SelectedFile, p Profile) error {
	if f.Name == "" && f.Size == 0 && len(f.Data) == 0 {
		return &ValidationError{Message: "No file was selected. Please choose a file to upload."}
	}
	if !p.Accepts(f.ContentType) {
		return &ValidationError{Message: fmt.Sprintf("Invalid file type. Please upload a %s file.", p.AllowedLabel)}
	}
	size := f.Size
	if n := int64(len(f.Data)); n > size {
		size = n
	}
	if size > MaxFileSize {
		return &ValidationError{Message: fmt.Sprintf(
			"File is too large (%s). Maximum size is %s.",
			humanize.IBytes(uint64(size)), humanize.IBytes(MaxFileSize),
		)}
	}
	return nil
}

// ContentTypeFor guesses a content type from the file extension
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg":
		return "image/jpg"
	case ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// SanitizeFilename strips special characters and truncates long names,
// keeping the extension
func SanitizeFilename(filename string) string {
	if filename == "" {
		return "invoice"
	}
	filename = filepath.Base(filename)
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "invoice"
	}
	return base + ext
}
