package reporter

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nuget-solution-auditor/pkg/audit"
	"github.com/nuget-solution-auditor/pkg/manifest"
)

type TableReporter struct {
	w io.Writer
}

func (r *TableReporter) References(refs []manifest.PackageReference) error {
	if len(refs) == 0 {
		fmt.Fprintln(r.w, "No package references found.")
		return nil
	}

	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tVERSION\tPROJECT")
	fmt.Fprintln(w, "-------\t-------\t-------")
	for _, ref := range refs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ref.Name, ref.Version, ref.Project)
	}
	return w.Flush()
}

func (r *TableReporter) Vulnerabilities(reports []audit.VulnerabilityReport) error {
	if len(reports) == 0 {
		fmt.Fprintln(r.w, "No vulnerable packages found.")
		return nil
	}

	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tVERSION\tPROJECT\tSEVERITY\tADVISORY")
	fmt.Fprintln(w, "-------\t-------\t-------\t--------\t--------")
	for _, rep := range reports {
		for _, v := range rep.Vulnerabilities {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				rep.Ref.Name,
				rep.Ref.Version,
				rep.Ref.Project,
				v.Severity,
				v.AdvisoryURL,
			)
		}
	}
	return w.Flush()
}

func (r *TableReporter) Licenses(violations []audit.LicenseViolation) error {
	if len(violations) == 0 {
		fmt.Fprintln(r.w, "No restricted licenses found.")
		return nil
	}

	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tVERSION\tPROJECT\tLICENSE")
	fmt.Fprintln(w, "-------\t-------\t-------\t-------")
	for _, v := range violations {
		license := v.License
		if license == "" {
			license = "(unknown)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Ref.Name, v.Ref.Version, v.Ref.Project, license)
	}
	return w.Flush()
}
