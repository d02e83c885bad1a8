package audit

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuget-solution-auditor/pkg/config"
	"github.com/nuget-solution-auditor/pkg/manifest"
	"github.com/nuget-solution-auditor/pkg/registry"
)

// stubSource serves canned metadata keyed by "name@version".
type stubSource struct {
	meta       map[string]*registry.PackageMetadata
	connectErr error
	fetchErr   error
	calls      int
}

func (s *stubSource) Connect(ctx context.Context) error { return s.connectErr }

func (s *stubSource) Metadata(ctx context.Context, name, version string) (*registry.PackageMetadata, error) {
	s.calls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.meta[name+"@"+version], nil
}

type stubEnricher struct {
	license string
}

func (s *stubEnricher) RepoLicense(ctx context.Context, projectURL string) (string, error) {
	return s.license, nil
}

func vulnerableX() map[string]*registry.PackageMetadata {
	return map[string]*registry.PackageMetadata{
		"PackageX@1.0.0": {
			License: "MIT",
			Vulnerabilities: []registry.Vulnerability{
				{Severity: registry.SeverityHigh, AdvisoryURL: "https://example/adv1"},
			},
		},
		"PackageY@2.0.0": {License: "Apache-2.0"},
	}
}

func newTestAuditor(t *testing.T, src registry.Client, enricher LicenseEnricher) *Auditor {
	t.Helper()
	cfg := config.Default()
	cfg.SolutionDir = filepath.Join("testdata", "solution", "A")
	a, err := New(src, enricher, cfg)
	require.NoError(t, err)
	return a
}

func TestNewSolutionNotFound(t *testing.T) {
	cfg := config.Default()
	cfg.SolutionDir = t.TempDir()
	_, err := New(&stubSource{}, nil, cfg)
	assert.ErrorIs(t, err, manifest.ErrSolutionNotFound)
}

func TestAllReferences(t *testing.T) {
	a := newTestAuditor(t, &stubSource{}, nil)

	refs, err := a.AllReferences()
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, manifest.PackageReference{Project: "A", Name: "PackageX", Version: "1.0.0"}, refs[0])
	assert.Equal(t, manifest.PackageReference{Project: "B", Name: "PackageX", Version: "1.0.0"}, refs[1])
	assert.Equal(t, manifest.PackageReference{Project: "B", Name: "PackageY", Version: "2.0.0"}, refs[2])
}

func TestAllReferencesIdempotent(t *testing.T) {
	a := newTestAuditor(t, &stubSource{}, nil)

	first, err := a.AllReferences()
	require.NoError(t, err)
	second, err := a.AllReferences()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestVulnerablePackages(t *testing.T) {
	src := &stubSource{meta: vulnerableX()}
	a := newTestAuditor(t, src, nil)
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx))

	reports, err := a.VulnerablePackages(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "A", reports[0].Ref.Project)
	assert.Equal(t, "B", reports[1].Ref.Project)
	for _, r := range reports {
		assert.Equal(t, "PackageX", r.Ref.Name)
		require.Len(t, r.Vulnerabilities, 1)
		assert.Equal(t, registry.SeverityHigh, r.Vulnerabilities[0].Severity)
		assert.Equal(t, "https://example/adv1", r.Vulnerabilities[0].AdvisoryURL)
	}

	// Each of the three references is queried independently, no dedup.
	assert.Equal(t, 3, src.calls)
}

func TestVulnerablePackagesRequiresConnect(t *testing.T) {
	a := newTestAuditor(t, &stubSource{meta: vulnerableX()}, nil)
	_, err := a.VulnerablePackages(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectFailure(t *testing.T) {
	src := &stubSource{connectErr: errors.New("refused")}
	a := newTestAuditor(t, src, nil)
	assert.Error(t, a.Connect(context.Background()))
	_, err := a.VulnerablePackages(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestVulnerablePackagesSkipsUnknown(t *testing.T) {
	// PackageY is unknown to the registry; it is skipped, not an error.
	meta := vulnerableX()
	delete(meta, "PackageY@2.0.0")
	a := newTestAuditor(t, &stubSource{meta: meta}, nil)
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx))

	reports, err := a.VulnerablePackages(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestVulnerablePackagesSkipsFetchFailures(t *testing.T) {
	src := &stubSource{fetchErr: errors.New("boom")}
	a := newTestAuditor(t, src, nil)
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx))

	reports, err := a.VulnerablePackages(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestRestrictedLicensePackages(t *testing.T) {
	a := newTestAuditor(t, &stubSource{meta: vulnerableX()}, nil)
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx))

	violations, err := a.RestrictedLicensePackages(ctx, []string{"MIT"})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "PackageY", violations[0].Ref.Name)
	assert.Equal(t, "B", violations[0].Ref.Project)
	assert.Equal(t, "Apache-2.0", violations[0].License)
}

func TestRestrictedLicenseIsCaseSensitive(t *testing.T) {
	a := newTestAuditor(t, &stubSource{meta: vulnerableX()}, nil)
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx))

	violations, err := a.RestrictedLicensePackages(ctx, []string{"mit", "apache-2.0"})
	require.NoError(t, err)
	// Nothing matches: membership is exact and case-sensitive.
	assert.Len(t, violations, 3)
}

func TestRestrictedLicenseEmptyAllowSet(t *testing.T) {
	a := newTestAuditor(t, &stubSource{meta: vulnerableX()}, nil)
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx))

	violations, err := a.RestrictedLicensePackages(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, violations, 3)
}

func TestRestrictedLicenseAuthorsFallback(t *testing.T) {
	meta := map[string]*registry.PackageMetadata{
		"PackageX@1.0.0": {Authors: "Contoso"},
		"PackageY@2.0.0": {Authors: "Contoso"},
	}
	a := newTestAuditor(t, &stubSource{meta: meta}, nil)
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx))

	violations, err := a.RestrictedLicensePackages(ctx, []string{"MIT"})
	require.NoError(t, err)
	require.Len(t, violations, 3)
	assert.Equal(t, "Contoso", violations[0].License)
}

func TestRestrictedLicenseEnrichment(t *testing.T) {
	meta := map[string]*registry.PackageMetadata{
		"PackageX@1.0.0": {Authors: "Contoso", ProjectURL: "https://github.com/contoso/x"},
		"PackageY@2.0.0": {Authors: "Contoso", ProjectURL: "https://github.com/contoso/y"},
	}
	a := newTestAuditor(t, &stubSource{meta: meta}, &stubEnricher{license: "MIT"})
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx))

	violations, err := a.RestrictedLicensePackages(ctx, []string{"MIT"})
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestReferencesByPackageName(t *testing.T) {
	a := newTestAuditor(t, &stubSource{}, nil)

	refs, err := a.ReferencesByPackageName("packagex", "")
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	refs, err = a.ReferencesByPackageName("PACKAGEY", "")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "B", refs[0].Project)

	refs, err = a.ReferencesByPackageName("PackageX", "B")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "B", refs[0].Project)

	refs, err = a.ReferencesByPackageName("PackageX", "nope")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestDisplayVulnerabilities(t *testing.T) {
	a := newTestAuditor(t, &stubSource{}, nil)

	var buf bytes.Buffer
	a.DisplayVulnerabilities(&buf, nil)
	assert.Equal(t, "No vulnerable packages found.\n", buf.String())

	buf.Reset()
	a.DisplayVulnerabilities(&buf, []VulnerabilityReport{
		{
			Ref: manifest.PackageReference{Project: "A", Name: "PackageX", Version: "1.0.0"},
			Vulnerabilities: []registry.Vulnerability{
				{Severity: registry.SeverityHigh, AdvisoryURL: "https://example/adv1"},
			},
		},
	})
	assert.Equal(t, "PackageX 1.0.0 (project A)\n  [High] https://example/adv1\n", buf.String())
}

func TestBadManifestIsIsolated(t *testing.T) {
	cfg := config.Default()
	cfg.SolutionDir = filepath.Join("testdata", "badsolution")
	a, err := New(&stubSource{}, nil, cfg)
	require.NoError(t, err)

	refs, err := a.AllReferences()
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Fine", refs[0].Name)
}

func TestBadManifestStrict(t *testing.T) {
	cfg := config.Default()
	cfg.SolutionDir = filepath.Join("testdata", "badsolution")
	cfg.Strict = true
	a, err := New(&stubSource{}, nil, cfg)
	require.NoError(t, err)

	_, err = a.AllReferences()
	require.Error(t, err)
	var merr *manifest.Error
	assert.ErrorAs(t, err, &merr)
}
