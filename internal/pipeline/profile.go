// Package pipeline drives one invoice through upload, processing, status
// polling and result retrieval against the remote extraction service.
package pipeline

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Profile is one transport contract with the extraction service. The two
// contracts differ in endpoint paths, accepted file types and whether the
// process call returns the result or a handle to poll.
type Profile struct {
	Name         string
	UploadPath   string
	ProcessPath  string
	Async        bool
	AllowedTypes []string
	// AllowedLabel names the allowed types in user messages
	AllowedLabel string
	Dashboard    bool
	RemoteExport bool
}

var (
	// DashboardProfile uploads to /upload, polls for status and offers the
	// dashboard and server-side export.
	DashboardProfile = Profile{
		Name:         "dashboard",
		UploadPath:   "/upload",
		ProcessPath:  "/process",
		Async:        true,
		AllowedTypes: []string{"application/pdf", "image/png", "image/jpg", "image/jpeg"},
		AllowedLabel: "PDF, PNG or JPG",
		Dashboard:    true,
		RemoteExport: true,
	}

	// DirectProfile receives the extraction in the process response
	DirectProfile = Profile{
		Name:         "direct",
		UploadPath:   "/invoice_upload",
		ProcessPath:  "/invoice_process",
		AllowedTypes: []string{"application/pdf"},
		AllowedLabel: "PDF",
	}
)

// Profiles lists every known profile
var Profiles = []Profile{DashboardProfile, DirectProfile}

// LookupProfile returns the profile with the given name
func LookupProfile(name string) (Profile, error) {
	for _, p := range Profiles {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("unknown profile %q (valid: dashboard, direct)", name)
}

// Accepts reports whether the declared content type is on the allow-list
func (p Profile) Accepts(contentType string) bool {
	return slices.Contains(p.AllowedTypes, normalizeContentType(contentType))
}

// StatusPath is the status endpoint for a processing handle
func StatusPath(id string) string {
	return "/invoices/process/" + url.PathEscape(id) + "/status"
}

// ExtractionPath is the endpoint returning a finished extraction
func ExtractionPath(id string) string {
	return "/extractions/" + url.PathEscape(id)
}

// ExportPath is the server-side export endpoint for an extraction
func ExportPath(id string) string {
	return ExtractionPath(id) + "/export"
}

func normalizeContentType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
