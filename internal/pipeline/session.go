package pipeline

import (
	"fmt"
	"time"

	"github.com/zombor/invoice-extractor/internal/invoice"
)

// State is the stage a session has reached
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StatePolling    State = "polling"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

// Session is everything known about the current upload cycle
type Session struct {
	File         *SelectedFile
	Upload       *UploadReference
	Handle       *ProcessingHandle
	ExtractionID string
	Result       any
	Extraction   *invoice.Extraction

	State    State
	Progress int
	Step     string
	Message  string

	StartedAt time.Time
}

// Reset clears the session back to idle
func (s *Session) Reset() {
	*s = Session{State: StateIdle}
}

// InProgress reports whether a cycle is still running
func (s Session) InProgress() bool {
	switch s.State {
	case StateUploading, StateProcessing, StatePolling:
		return true
	}
	return false
}

// Filename is the selected file's name, if any
func (s Session) Filename() string {
	if s.File == nil {
		return ""
	}
	return s.File.Name
}

// String describes the session for logs
func (s Session) String() string {
	return fmt.Sprintf("session{state=%s progress=%d file=%q extraction=%q}", s.State, s.Progress, s.Filename(), s.ExtractionID)
}
