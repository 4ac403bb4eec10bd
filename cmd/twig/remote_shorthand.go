package main

import (
	"net/url"
	"os"
	"strings"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/config"
)

const (
	defaultGitHubBaseURL    = "https://github.com"
	defaultGitLabBaseURL    = "https://gitlab.com"
	defaultBitbucketBaseURL = "https://bitbucket.org"
)

// resolveRemoteArg turns a clone or ls-remote argument into an endpoint URL.
// A configured remote name wins, then the provider shorthands of
// canonicalizeRemoteSpec.
func resolveRemoteArg(arg string, cfg *config.Config) (string, error) {
	arg = strings.TrimSpace(arg)
	if cfg != nil {
		if u, ok := cfg.Remotes[arg]; ok && strings.TrimSpace(u) != "" {
			return strings.TrimSpace(u), nil
		}
	}
	return canonicalizeRemoteSpec(arg)
}

// canonicalizeRemoteSpec expands shorthand forms like "gh:owner/repo" into
// smart-HTTP endpoints. Full URLs pass through unchanged.
func canonicalizeRemoteSpec(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errcat.Errorf(twig.ErrUsage, "remote URL is required")
	}
	if strings.Contains(raw, "://") {
		return raw, nil
	}

	provider, repoPath, ok := strings.Cut(raw, ":")
	if !ok {
		return raw, nil
	}
	provider = strings.TrimSpace(provider)
	repoPath = strings.TrimSpace(repoPath)
	if provider == "" || repoPath == "" {
		return "", errcat.Errorf(twig.ErrUsage, "invalid remote shorthand %q", raw)
	}

	var envVar, fallback string
	switch strings.ToLower(provider) {
	case "github", "gh":
		envVar, fallback = "TWIG_GITHUB_URL", defaultGitHubBaseURL
	case "gitlab", "gl":
		baseURL, err := normalizeBaseURL(os.Getenv("TWIG_GITLAB_URL"), defaultGitLabBaseURL)
		if err != nil {
			return "", err
		}
		// GitLab groups nest, so any depth of at least two is accepted.
		p, err := parseGitRepoPath(repoPath)
		if err != nil {
			return "", err
		}
		return joinGitEndpoint(baseURL, p), nil
	case "bitbucket", "bb":
		envVar, fallback = "TWIG_BITBUCKET_URL", defaultBitbucketBaseURL
	default:
		// Self-hosted: code.example.com:owner/repo -> https://code.example.com/owner/repo.git
		if !strings.Contains(provider, ".") && !strings.EqualFold(provider, "localhost") {
			return raw, nil
		}
		fallback = "https://" + provider
	}

	owner, repoName, err := parseOwnerRepo(repoPath)
	if err != nil {
		return "", err
	}
	baseURL, err := normalizeBaseURL(envOrEmpty(envVar), fallback)
	if err != nil {
		return "", err
	}
	return joinGitEndpoint(baseURL, owner+"/"+repoName), nil
}

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func normalizeBaseURL(raw, fallback string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		candidate = fallback
	}
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return "", errcat.Errorf(twig.ErrUsage, "parse base URL %q: %s", candidate, err)
	}
	if strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return "", errcat.Errorf(twig.ErrUsage, "base URL %q must include scheme and host", candidate)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}

func parseOwnerRepo(raw string) (string, string, error) {
	raw = strings.Trim(strings.TrimSpace(raw), "/")
	parts := strings.Split(raw, "/")
	if len(parts) != 2 {
		return "", "", errcat.Errorf(twig.ErrUsage, "repository path %q must be owner/repo", raw)
	}
	owner := strings.TrimSpace(parts[0])
	repoName := strings.TrimSpace(parts[1])
	if owner == "" || repoName == "" {
		return "", "", errcat.Errorf(twig.ErrUsage, "repository path %q must include non-empty owner and repo", raw)
	}
	return owner, repoName, nil
}

func parseGitRepoPath(raw string) (string, error) {
	raw = strings.Trim(strings.TrimSpace(raw), "/")
	parts := strings.Split(raw, "/")
	if len(parts) < 2 {
		return "", errcat.Errorf(twig.ErrUsage, "repository path %q must be owner/repo", raw)
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return "", errcat.Errorf(twig.ErrUsage, "repository path %q must include non-empty segments", raw)
		}
	}
	return strings.Join(parts, "/"), nil
}

func joinGitEndpoint(baseURL, repoPath string) string {
	full := strings.TrimRight(baseURL, "/") + "/" + strings.Trim(repoPath, "/")
	if strings.HasSuffix(full, ".git") {
		return full
	}
	return full + ".git"
}
