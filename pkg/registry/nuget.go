package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultServiceIndexURL is the NuGet V3 service index on nuget.org.
	DefaultServiceIndexURL = "https://api.nuget.org/v3/index.json"

	// DefaultRegistrationBase is the nuget.org registration hive used for
	// per-version metadata lookups.
	DefaultRegistrationBase = "https://api.nuget.org/v3/registration5-semver1"
)

// StatusError reports a non-success registry response that is not a plain
// "package unknown".
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry returned %d for %s", e.Code, e.URL)
}

// NuGetClient fetches package metadata from a NuGet V3 registration hive.
type NuGetClient struct {
	client           *http.Client
	serviceIndexURL  string
	registrationBase string
}

// NewNuGetClient builds a client against the given endpoints; empty strings
// select the nuget.org defaults. The client is not usable until Connect
// succeeds.
func NewNuGetClient(serviceIndexURL, registrationBase string) *NuGetClient {
	if serviceIndexURL == "" {
		serviceIndexURL = DefaultServiceIndexURL
	}
	if registrationBase == "" {
		registrationBase = DefaultRegistrationBase
	}
	return &NuGetClient{
		client:           &http.Client{Timeout: 30 * time.Second},
		serviceIndexURL:  serviceIndexURL,
		registrationBase: registrationBase,
	}
}

// Connect fetches the service index once to verify the registry is
// reachable.
func (c *NuGetClient) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serviceIndexURL, nil)
	if err != nil {
		return fmt.Errorf("failed to reach registry service: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach registry service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to reach registry service: %w", &StatusError{URL: c.serviceIndexURL, Code: resp.StatusCode})
	}

	var index struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&index); err != nil {
		return fmt.Errorf("failed to reach registry service: decode service index: %w", err)
	}
	return nil
}

// registrationLeaf is the per-version document in the registration hive. Its
// catalogEntry is either an inlined entry or a URL pointing at one.
type registrationLeaf struct {
	CatalogEntry json.RawMessage `json:"catalogEntry"`
}

type catalogEntry struct {
	LicenseExpression string     `json:"licenseExpression"`
	LicenseURL        string     `json:"licenseUrl"`
	Authors           string     `json:"authors"`
	ProjectURL        string     `json:"projectUrl"`
	Vulnerabilities   []leafVuln `json:"vulnerabilities"`
}

type leafVuln struct {
	AdvisoryURL string       `json:"advisoryUrl"`
	Severity    severityCode `json:"severity"`
}

// severityCode tolerates both encodings the registration hive uses for
// severity: a bare number and a quoted one.
type severityCode string

func (s *severityCode) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = severityCode(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = severityCode(n.String())
	return nil
}

// Metadata looks up one package version. A 404 from the hive means the
// registry does not know the pair and yields (nil, nil).
func (c *NuGetClient) Metadata(ctx context.Context, name, version string) (*PackageMetadata, error) {
	url := fmt.Sprintf("%s/%s/%s.json",
		strings.TrimSuffix(c.registrationBase, "/"),
		strings.ToLower(name),
		strings.ToLower(version),
	)

	var leaf registrationLeaf
	found, err := c.getJSON(ctx, url, &leaf)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	entry, err := c.resolveCatalogEntry(ctx, leaf.CatalogEntry)
	if err != nil {
		return nil, fmt.Errorf("catalog entry for %s %s: %w", name, version, err)
	}
	if entry == nil {
		return nil, nil
	}

	md := &PackageMetadata{
		Authors:    entry.Authors,
		ProjectURL: entry.ProjectURL,
	}
	switch {
	case entry.LicenseExpression != "":
		md.License = entry.LicenseExpression
	case entry.LicenseURL != "":
		md.License = entry.LicenseURL
	}
	for _, v := range entry.Vulnerabilities {
		md.Vulnerabilities = append(md.Vulnerabilities, Vulnerability{
			Severity:    severityFromCode(string(v.Severity)),
			AdvisoryURL: v.AdvisoryURL,
		})
	}
	return md, nil
}

// resolveCatalogEntry unwraps the leaf's catalogEntry, following the
// indirection when the hive stores it as a URL.
func (c *NuGetClient) resolveCatalogEntry(ctx context.Context, raw json.RawMessage) (*catalogEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	if raw[0] == '"' {
		var url string
		if err := json.Unmarshal(raw, &url); err != nil {
			return nil, err
		}
		var entry catalogEntry
		found, err := c.getJSON(ctx, url, &entry)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return &entry, nil
	}

	var entry catalogEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// getJSON fetches and decodes one document. It returns found=false on a 404
// and a StatusError on any other non-200 response.
func (c *NuGetClient) getJSON(ctx context.Context, url string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("registry lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, &StatusError{URL: url, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode registry response: %w", err)
	}
	return true, nil
}
