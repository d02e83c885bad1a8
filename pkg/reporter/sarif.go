package reporter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nuget-solution-auditor/pkg/audit"
	"github.com/nuget-solution-auditor/pkg/manifest"
	"github.com/nuget-solution-auditor/pkg/registry"
)

type SARIFReporter struct {
	w io.Writer
}

func (r *SARIFReporter) References([]manifest.PackageReference) error {
	return errors.New("sarif output is not supported for reference listings")
}

func (r *SARIFReporter) Vulnerabilities(reports []audit.VulnerabilityReport) error {
	var rules, results []map[string]interface{}
	for _, rep := range reports {
		for _, v := range rep.Vulnerabilities {
			rules = append(rules, map[string]interface{}{
				"id":               v.AdvisoryURL,
				"shortDescription": map[string]string{"text": fmt.Sprintf("Known vulnerability in %s %s", rep.Ref.Name, rep.Ref.Version)},
				"helpUri":          v.AdvisoryURL,
			})
			results = append(results, map[string]interface{}{
				"ruleId": v.AdvisoryURL,
				"level":  severityLevel(v.Severity),
				"message": map[string]string{
					"text": fmt.Sprintf("%s %s (project %s) has a %s severity vulnerability", rep.Ref.Name, rep.Ref.Version, rep.Ref.Project, v.Severity),
				},
			})
		}
	}
	return r.write(rules, results)
}

func (r *SARIFReporter) Licenses(violations []audit.LicenseViolation) error {
	var rules, results []map[string]interface{}
	for _, v := range violations {
		ruleID := "restricted-license/" + v.Ref.Name
		rules = append(rules, map[string]interface{}{
			"id":               ruleID,
			"shortDescription": map[string]string{"text": fmt.Sprintf("License %q is not in the allow-set", v.License)},
		})
		results = append(results, map[string]interface{}{
			"ruleId": ruleID,
			"level":  "warning",
			"message": map[string]string{
				"text": fmt.Sprintf("%s %s (project %s) is licensed %q, which is not allowed", v.Ref.Name, v.Ref.Version, v.Ref.Project, v.License),
			},
		})
	}
	return r.write(rules, results)
}

func (r *SARIFReporter) write(rules, results []map[string]interface{}) error {
	sarif := map[string]interface{}{
		"$schema": "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		"version": "2.1.0",
		"runs": []map[string]interface{}{
			{
				"tool": map[string]interface{}{
					"driver": map[string]interface{}{
						"name":           "nugetaudit",
						"informationUri": "https://github.com/nuget-solution-auditor",
						"rules":          rules,
					},
				},
				"results": results,
			},
		},
	}

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarif)
}

func severityLevel(s registry.Severity) string {
	switch s {
	case registry.SeverityCritical, registry.SeverityHigh:
		return "error"
	case registry.SeverityModerate:
		return "warning"
	default:
		return "note"
	}
}
