package types

import (
	"strings"
)

// Git hosting providers recognised from repository URLs.
const (
	GitProviderGitHub = "github"
	GitProviderGitLab = "gitlab"
)

// CleanGitRepoURL strips the scheme, a trailing ".git" and a trailing slash.
func CleanGitRepoURL(repoURL string) string {
	repoURL = strings.TrimSuffix(repoURL, ".git")
	repoURL = strings.Replace(repoURL, "https://", "", 1)
	repoURL = strings.Replace(repoURL, "http://", "", 1)
	return strings.TrimSuffix(repoURL, "/")
}

// GitProviderFromRepoURL returns github, gitlab or "" when unknown.
func GitProviderFromRepoURL(repoURL string) string {
	repoURL = CleanGitRepoURL(repoURL)
	switch {
	case strings.Contains(repoURL, GitProviderGitHub):
		return GitProviderGitHub
	case strings.Contains(repoURL, GitProviderGitLab):
		return GitProviderGitLab
	default:
		return ""
	}
}

// GitRepoOwnerFromURL returns the path segment before the repository name.
func GitRepoOwnerFromURL(repoURL string) (string, bool) {
	parts := strings.Split(CleanGitRepoURL(repoURL), "/")
	if len(parts) < 2 {
		return "", false
	}
	return parts[len(parts)-2], true
}

// GitRepoNameFromURL returns the last path segment.
func GitRepoNameFromURL(repoURL string) (string, bool) {
	parts := strings.Split(CleanGitRepoURL(repoURL), "/")
	if len(parts) < 2 {
		return "", false
	}
	return parts[len(parts)-1], true
}
