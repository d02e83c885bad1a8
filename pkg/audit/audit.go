// Package audit orchestrates a dependency audit of one solution: it walks
// the solution's project manifests, looks each declared package up in the
// registry, and reports vulnerabilities and license violations.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nuget-solution-auditor/pkg/config"
	"github.com/nuget-solution-auditor/pkg/manifest"
	"github.com/nuget-solution-auditor/pkg/registry"
)

// ErrNotConnected is returned by the registry-backed queries before Connect
// has succeeded.
var ErrNotConnected = errors.New("auditor not connected to registry; call Connect first")

// VulnerabilityReport pairs a reference with its known vulnerabilities.
// Produced only when the vulnerability list is non-empty.
type VulnerabilityReport struct {
	Ref             manifest.PackageReference `json:"ref"`
	Vulnerabilities []registry.Vulnerability  `json:"vulnerabilities"`
}

// LicenseViolation pairs a reference with a resolved license that is outside
// the allow-set.
type LicenseViolation struct {
	Ref     manifest.PackageReference `json:"ref"`
	License string                    `json:"license"`
}

// LicenseEnricher resolves a license for a package's source repository. Used
// only when the registry record carries no structured license.
type LicenseEnricher interface {
	RepoLicense(ctx context.Context, projectURL string) (string, error)
}

// Auditor owns the discovered manifest set and the registry client. The
// manifest list is computed once at construction and read-only thereafter;
// every query is a fresh pass with no caching.
type Auditor struct {
	manifests []string
	src       registry.Client
	enricher  LicenseEnricher
	strict    bool
	connected bool
	log       logrus.FieldLogger
}

// New locates the solution root by walking upward from cfg.SolutionDir,
// discovers its project manifests, and returns an Auditor that still needs
// Connect before the registry-backed queries are usable.
func New(src registry.Client, enricher LicenseEnricher, cfg *config.Config) (*Auditor, error) {
	root, err := manifest.FindSolutionRoot(cfg.SolutionDir)
	if err != nil {
		return nil, err
	}
	manifests, err := manifest.DiscoverProjects(root)
	if err != nil {
		return nil, fmt.Errorf("discover projects under %s: %w", root, err)
	}

	return &Auditor{
		manifests: manifests,
		src:       src,
		enricher:  enricher,
		strict:    cfg.Strict,
		log:       logrus.StandardLogger(),
	}, nil
}

// Connect resolves the registry service. It must succeed before
// VulnerablePackages or RestrictedLicensePackages is called.
func (a *Auditor) Connect(ctx context.Context) error {
	if err := a.src.Connect(ctx); err != nil {
		return err
	}
	a.connected = true
	return nil
}

// Manifests returns the discovered manifest paths.
func (a *Auditor) Manifests() []string {
	return a.manifests
}

// AllReferences re-parses every discovered manifest and flattens the
// declared references, in manifest-discovery order then in-document order.
// Parse failures are isolated per manifest: in strict mode any failure is
// returned as an error, otherwise failures are logged and the remaining
// manifests still contribute.
func (a *Auditor) AllReferences() ([]manifest.PackageReference, error) {
	var refs []manifest.PackageReference
	var failures []error

	for _, path := range a.manifests {
		found, merr := manifest.ExtractReferences(path)
		if merr != nil {
			failures = append(failures, merr)
			continue
		}
		refs = append(refs, found...)
	}

	if len(failures) > 0 {
		if a.strict {
			return nil, errors.Join(failures...)
		}
		for _, f := range failures {
			a.log.Warnf("skipping manifest: %v", f)
		}
	}
	return refs, nil
}

// ReferencesByPackageName filters AllReferences by case-insensitive exact
// package name, and by substring match on the project identifier when
// projectFilter is non-empty. No network calls.
func (a *Auditor) ReferencesByPackageName(name, projectFilter string) ([]manifest.PackageReference, error) {
	refs, err := a.AllReferences()
	if err != nil {
		return nil, err
	}

	var matched []manifest.PackageReference
	for _, ref := range refs {
		if !strings.EqualFold(ref.Name, name) {
			continue
		}
		if projectFilter != "" && !strings.Contains(ref.Project, projectFilter) {
			continue
		}
		matched = append(matched, ref)
	}
	return matched, nil
}

// VulnerablePackages fetches metadata for every reference, strictly
// sequentially, and reports those with a non-empty vulnerability list.
// References unknown to the registry are logged and skipped.
func (a *Auditor) VulnerablePackages(ctx context.Context) ([]VulnerabilityReport, error) {
	var reports []VulnerabilityReport
	err := a.eachMetadata(ctx, func(ref manifest.PackageReference, md *registry.PackageMetadata) {
		if len(md.Vulnerabilities) == 0 {
			return
		}
		reports = append(reports, VulnerabilityReport{
			Ref:             ref,
			Vulnerabilities: md.Vulnerabilities,
		})
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// RestrictedLicensePackages reports every reference whose resolved license
// is not an exact, case-sensitive member of allowed. An empty allow-set
// flags everything.
func (a *Auditor) RestrictedLicensePackages(ctx context.Context, allowed []string) ([]LicenseViolation, error) {
	allowSet := make(map[string]struct{}, len(allowed))
	for _, l := range allowed {
		allowSet[l] = struct{}{}
	}

	var violations []LicenseViolation
	err := a.eachMetadata(ctx, func(ref manifest.PackageReference, md *registry.PackageMetadata) {
		license := a.resolveLicense(ctx, md)
		if _, ok := allowSet[license]; ok {
			return
		}
		violations = append(violations, LicenseViolation{Ref: ref, License: license})
	})
	if err != nil {
		return nil, err
	}
	return violations, nil
}

// eachMetadata runs one sequential registry pass over AllReferences. Unknown
// packages are logged at info; fetch failures are logged at warn and then
// treated the same way (excluded from results).
func (a *Auditor) eachMetadata(ctx context.Context, visit func(manifest.PackageReference, *registry.PackageMetadata)) error {
	if !a.connected {
		return ErrNotConnected
	}

	refs, err := a.AllReferences()
	if err != nil {
		return err
	}

	for _, ref := range refs {
		md, err := a.src.Metadata(ctx, ref.Name, ref.Version)
		if err != nil {
			a.log.Warnf("fetch failed for %s %s (project %s), skipping: %v", ref.Name, ref.Version, ref.Project, err)
			continue
		}
		if md == nil {
			a.log.Infof("no metadata for %s %s (project %s), skipping", ref.Name, ref.Version, ref.Project)
			continue
		}
		visit(ref, md)
	}
	return nil
}

// resolveLicense applies the observed precedence: structured license from
// the registry, then the source repository's license when an enricher is
// configured, then the authors string.
func (a *Auditor) resolveLicense(ctx context.Context, md *registry.PackageMetadata) string {
	if md.License != "" {
		return md.License
	}
	if a.enricher != nil && md.ProjectURL != "" {
		spdx, err := a.enricher.RepoLicense(ctx, md.ProjectURL)
		if err != nil {
			a.log.Debugf("license enrichment failed for %s: %v", md.ProjectURL, err)
		} else if spdx != "" {
			return spdx
		}
	}
	return md.Authors
}

// DisplayVulnerabilities writes one line per report, then one indented line
// per vulnerability.
func (a *Auditor) DisplayVulnerabilities(w io.Writer, reports []VulnerabilityReport) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No vulnerable packages found.")
		return
	}
	for _, r := range reports {
		fmt.Fprintf(w, "%s %s (project %s)\n", r.Ref.Name, r.Ref.Version, r.Ref.Project)
		for _, v := range r.Vulnerabilities {
			fmt.Fprintf(w, "  [%s] %s\n", v.Severity, v.AdvisoryURL)
		}
	}
}
