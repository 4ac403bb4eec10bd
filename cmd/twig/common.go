package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/pkg/config"
	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/remote"
	"github.com/odvcencio/twig/pkg/repo"
)

// resolve interprets p relative to -C.
func (g *globalFlags) resolve(p string) string {
	if g.workDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(g.workDir, p)
}

// loadConfig reads the user config. An explicit --config must exist.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	path := g.configPath
	if path != "" {
		path = g.resolve(path)
		if _, err := os.Stat(path); err != nil {
			return nil, errcat.Errorf(twig.ErrUsage, "--config: %s", err)
		}
	} else {
		path = config.UserPath()
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// openRepo opens the repository around the working directory and applies
// the merged user and repository config.
func (g *globalFlags) openRepo() (*repo.Repo, *config.Config, error) {
	user, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	r, err := repo.Open(g.resolve("."))
	if err != nil {
		return nil, nil, err
	}
	cfg, err := r.Config(user)
	if err != nil {
		return nil, nil, err
	}
	r.ApplyConfig(cfg)
	return r, cfg, nil
}

// remoteConfig is the repository config when run inside a repository, so
// its remote names resolve, and the user config otherwise.
func (g *globalFlags) remoteConfig() (*config.Config, error) {
	_, cfg, err := g.openRepo()
	if err == nil {
		return cfg, nil
	}
	if errcat.Category(err) != twig.ErrUsage {
		return nil, err
	}
	return g.loadConfig()
}

func storeOptions(cfg *config.Config) object.StoreOptions {
	return object.StoreOptions{CompressionLevel: cfg.Store.CompressionLevel}
}

func newRemoteClient(url string, cfg *config.Config, progress func(string)) (*remote.Client, error) {
	return remote.NewClientWithOptions(url, remote.ClientOptions{
		Timeout:      cfg.Remote.Timeout.Duration,
		MaxAttempts:  cfg.Remote.MaxAttempts,
		UserAgent:    cfg.Remote.UserAgent,
		MaxPackBytes: cfg.Remote.MaxPackBytes,
		Progress:     progress,
	})
}

// resolveObject accepts a full object id, a ref name, or "<rev>:<path>".
func resolveObject(r *repo.Repo, name string) (object.Hash, error) {
	name = strings.TrimSpace(name)
	if rev, p, ok := strings.Cut(name, ":"); ok {
		if rev == "" {
			rev = "HEAD"
		}
		return r.ResolvePath(rev, p)
	}
	if h := object.Hash(name); h.Validate() == nil {
		return h, nil
	}
	return r.ResolveRef(name)
}

// defaultCloneDir derives the directory name from the last URL path
// segment, without a ".git" suffix.
func defaultCloneDir(ep remote.Endpoint) string {
	base := ep.URL
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".git")
	if strings.Contains(base, ":") {
		return ""
	}
	return base
}

// ensureEmptyDir creates path if needed and fails if it has any entries.
func ensureEmptyDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errcat.Errorf(twig.ErrIO, "create %s: %s", path, err)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return errcat.Errorf(twig.ErrIO, "read %s: %s", path, err)
	}
	if len(entries) > 0 {
		return errcat.Errorf(twig.ErrUsage, "destination path %q already exists and is not empty", path)
	}
	return nil
}
