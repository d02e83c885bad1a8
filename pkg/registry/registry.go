package registry

import (
	"context"
)

// PackageMetadata is the registry's current knowledge of one (name, version)
// pair. It is fetched fresh per call and never cached locally.
type PackageMetadata struct {
	// License is the structured license identifier from the registration
	// entry (expression first, then license URL). Empty when the entry
	// declares neither; callers fall back to Authors in that case.
	License         string
	Authors         string
	ProjectURL      string
	Vulnerabilities []Vulnerability
}

// Vulnerability is one known advisory against a package version.
type Vulnerability struct {
	Severity    Severity `json:"severity"`
	AdvisoryURL string   `json:"advisoryUrl"`
}

// Severity is a normalized advisory severity level.
type Severity string

const (
	SeverityUnknown  Severity = "Unknown"
	SeverityLow      Severity = "Low"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// severityFromCode maps the registry's numeric severity codes (0..3) to
// named levels.
func severityFromCode(code string) Severity {
	switch code {
	case "0":
		return SeverityLow
	case "1":
		return SeverityModerate
	case "2":
		return SeverityHigh
	case "3":
		return SeverityCritical
	default:
		return SeverityUnknown
	}
}

// Client looks up package metadata by exact name and version.
type Client interface {
	// Connect resolves the registry service once; it must succeed before
	// Metadata is called.
	Connect(ctx context.Context) error

	// Metadata returns the metadata for a package version, or nil when the
	// registry does not know the pair. Transport and protocol failures are
	// returned as errors, distinct from the nil "not found" result.
	Metadata(ctx context.Context, name, version string) (*PackageMetadata, error)
}
