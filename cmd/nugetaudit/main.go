package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nuget-solution-auditor/pkg/audit"
	"github.com/nuget-solution-auditor/pkg/config"
	"github.com/nuget-solution-auditor/pkg/registry"
	"github.com/nuget-solution-auditor/pkg/reporter"
	"github.com/nuget-solution-auditor/pkg/vcs"
)

var (
	version = "dev"
	commit  = "none"
)

// exitCode distinguishes "findings present" (2) from a clean run (0) so CI
// pipelines can fail on vulnerable or restricted packages. Fatal errors exit 1.
var exitCode int

func main() {
	os.Exit(run(newRootCmd()))
}

func run(rootCmd *cobra.Command) int {
	exitCode = 0
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "nugetaudit",
		Short:        "Audit NuGet package references across a solution",
		Long:         `Walks a solution's project files, looks every declared package up in the NuGet registry, and reports known vulnerabilities and packages with licenses outside an allow-list.`,
		Version:      fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", ".nugetaudit.yml", "Path to config file")
	rootCmd.PersistentFlags().String("solution-dir", "", "Directory to start the upward solution search from (default: current directory)")
	rootCmd.PersistentFlags().String("service-index", "", "NuGet V3 service index URL (default: nuget.org)")
	rootCmd.PersistentFlags().String("registration-base", "", "NuGet registration hive base URL (default: nuget.org)")
	rootCmd.PersistentFlags().String("output", "table", "Output format: table | json | sarif")
	rootCmd.PersistentFlags().Bool("strict", false, "Fail on any unparseable manifest instead of skipping it")
	rootCmd.PersistentFlags().String("github-token", os.Getenv("GITHUB_TOKEN"), "GitHub token for license lookup of packages without a declared license (anonymous when empty)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every package reference declared across the solution",
		RunE:  runList,
	}

	vulnsCmd := &cobra.Command{
		Use:   "vulns",
		Short: "Report packages with known vulnerabilities",
		RunE:  runVulns,
	}

	licensesCmd := &cobra.Command{
		Use:   "licenses",
		Short: "Report packages whose license is outside the allow-list",
		RunE:  runLicenses,
	}
	licensesCmd.Flags().StringSlice("allow", nil, "Allowed license identifier (repeatable; merged with config)")

	findCmd := &cobra.Command{
		Use:   "find <package>",
		Short: "Find projects referencing a package",
		Args:  cobra.ExactArgs(1),
		RunE:  runFind,
	}
	findCmd.Flags().String("project", "", "Restrict to projects whose name contains this substring")

	rootCmd.AddCommand(listCmd, vulnsCmd, licensesCmd, findCmd)
	return rootCmd
}

func loadConfig(cmd *cobra.Command) *config.Config {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: could not load config file: %v (using defaults)\n", err)
		}
		cfg = config.Default()
	}
	cfg = config.MergeFlags(cfg, cmd.Flags())

	if cfg.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return cfg
}

// newEnricher always returns an enricher: the GitHub client falls back to
// anonymous calls when no token is configured.
func newEnricher(cfg *config.Config) audit.LicenseEnricher {
	return vcs.NewGitHubClient(cfg.GitHubToken)
}

func buildAuditor(cfg *config.Config) (*audit.Auditor, error) {
	src := registry.NewNuGetClient(cfg.ServiceIndexURL, cfg.RegistrationBase)
	return audit.New(src, newEnricher(cfg), cfg)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	auditor, err := buildAuditor(cfg)
	if err != nil {
		return err
	}

	refs, err := auditor.AllReferences()
	if err != nil {
		return err
	}
	return reporter.New(cfg.Output, os.Stdout).References(refs)
}

func runVulns(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	auditor, err := buildAuditor(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := auditor.Connect(ctx); err != nil {
		return err
	}

	reports, err := auditor.VulnerablePackages(ctx)
	if err != nil {
		return err
	}
	if cfg.Output == "table" {
		auditor.DisplayVulnerabilities(os.Stdout, reports)
	} else if err := reporter.New(cfg.Output, os.Stdout).Vulnerabilities(reports); err != nil {
		return err
	}
	if len(reports) > 0 {
		exitCode = 2
	}
	return nil
}

func runLicenses(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	auditor, err := buildAuditor(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := auditor.Connect(ctx); err != nil {
		return err
	}

	violations, err := auditor.RestrictedLicensePackages(ctx, cfg.AllowedLicenses)
	if err != nil {
		return err
	}
	if err := reporter.New(cfg.Output, os.Stdout).Licenses(violations); err != nil {
		return err
	}
	if len(violations) > 0 {
		exitCode = 2
	}
	return nil
}

func runFind(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	auditor, err := buildAuditor(cfg)
	if err != nil {
		return err
	}

	projectFilter, _ := cmd.Flags().GetString("project")
	refs, err := auditor.ReferencesByPackageName(args[0], projectFilter)
	if err != nil {
		return err
	}
	return reporter.New(cfg.Output, os.Stdout).References(refs)
}
