package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v60/github"
)

// GitHubClient resolves a repository's declared license via the GitHub
// Licenses API. It backs the license-enrichment fallback for packages whose
// registry record carries no structured license.
type GitHubClient struct {
	client *github.Client
}

func NewGitHubClient(token string) *GitHubClient {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHubClient{client: client}
}

// RepoLicense returns the SPDX id of the license GitHub detected for the
// repository behind projectURL. Non-GitHub URLs and repositories without a
// detected license yield an empty string, not an error.
func (g *GitHubClient) RepoLicense(ctx context.Context, projectURL string) (string, error) {
	if !strings.Contains(projectURL, "github.com") {
		return "", nil
	}
	owner, repo, err := ParseGitHubRepo(projectURL)
	if err != nil {
		return "", nil
	}

	license, _, err := g.client.Repositories.License(ctx, owner, repo)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return "", nil
		}
		return "", fmt.Errorf("license for %s/%s: %w", owner, repo, err)
	}

	spdx := license.GetLicense().GetSPDXID()
	if spdx == "NOASSERTION" {
		return "", nil
	}
	return spdx, nil
}

func ParseGitHubRepo(repoURL string) (owner, repo string, err error) {
	repoURL = strings.TrimPrefix(repoURL, "https://")
	repoURL = strings.TrimPrefix(repoURL, "http://")
	repoURL = strings.TrimPrefix(repoURL, "github.com/")
	repoURL = strings.TrimSuffix(repoURL, ".git")
	repoURL = strings.TrimSuffix(repoURL, "/")

	parts := strings.SplitN(repoURL, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot parse GitHub repo from %q", repoURL)
	}
	return parts[0], parts[1], nil
}
