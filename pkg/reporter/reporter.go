package reporter

import (
	"io"

	"github.com/nuget-solution-auditor/pkg/audit"
	"github.com/nuget-solution-auditor/pkg/manifest"
)

type Reporter interface {
	References(refs []manifest.PackageReference) error
	Vulnerabilities(reports []audit.VulnerabilityReport) error
	Licenses(violations []audit.LicenseViolation) error
}

func New(format string, w io.Writer) Reporter {
	switch format {
	case "json":
		return &JSONReporter{w: w}
	case "sarif":
		return &SARIFReporter{w: w}
	default:
		return &TableReporter{w: w}
	}
}
