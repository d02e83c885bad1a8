package reporter

import (
	"encoding/json"
	"io"

	"github.com/nuget-solution-auditor/pkg/audit"
	"github.com/nuget-solution-auditor/pkg/manifest"
)

type JSONReporter struct {
	w io.Writer
}

func (r *JSONReporter) encode(count int, v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")

	type output struct {
		Count int `json:"count"`
		Items any `json:"items"`
	}
	return enc.Encode(output{Count: count, Items: v})
}

func (r *JSONReporter) References(refs []manifest.PackageReference) error {
	return r.encode(len(refs), refs)
}

func (r *JSONReporter) Vulnerabilities(reports []audit.VulnerabilityReport) error {
	return r.encode(len(reports), reports)
}

func (r *JSONReporter) Licenses(violations []audit.LicenseViolation) error {
	return r.encode(len(violations), violations)
}
