package repo

import (
	"os"
	"strings"

	"github.com/odvcencio/twig/pkg/config"
	"github.com/odvcencio/twig/pkg/object"
)

// ConfigFile is the repository-local config, relative to .git/.
const ConfigFile = "twig.toml"

// ReadConfig reads .git/twig.toml. Only the keys present in the file are
// set; a missing file returns an empty config.
func (r *Repo) ReadConfig() (*config.Config, error) {
	data, err := readFile(r.GitDir, ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &config.Config{Remotes: make(map[string]string)}, nil
		}
		return nil, errIO("read config", err)
	}
	var cfg config.Config
	if err := config.Unmarshal(data, &cfg); err != nil {
		return nil, recategorise("read "+GitDirName+"/"+ConfigFile, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}
	return &cfg, nil
}

// WriteConfig atomically writes .git/twig.toml.
func (r *Repo) WriteConfig(cfg *config.Config) error {
	if cfg == nil {
		cfg = &config.Config{}
	}
	data, err := cfg.Marshal()
	if err != nil {
		return recategorise("write config", err)
	}
	if err := writeFileAtomic(r.GitDir, ConfigFile, data); err != nil {
		return errIO("write config", err)
	}
	return nil
}

// Config returns base with the repository-local settings merged on top.
// base is not modified.
func (r *Repo) Config(base *config.Config) (*config.Config, error) {
	local, err := r.ReadConfig()
	if err != nil {
		return nil, err
	}
	if base == nil {
		base = config.Default()
	}
	out := *base
	out.Remotes = make(map[string]string, len(base.Remotes))
	for name, url := range base.Remotes {
		out.Remotes[name] = url
	}
	out.Merge(local)
	return &out, nil
}

// ApplyConfig reopens the object store with the settings of cfg.
func (r *Repo) ApplyConfig(cfg *config.Config) {
	r.SetStoreOptions(object.StoreOptions{CompressionLevel: cfg.Store.CompressionLevel})
}

// SetRemote stores/updates a named remote URL in repository config.
func (r *Repo) SetRemote(name, remoteURL string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errUsage("set remote: remote name is required")
	}
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return errUsage("set remote: remote URL is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	cfg.Remotes[name] = remoteURL
	return r.WriteConfig(cfg)
}

// RemoteURL returns the configured URL for the given remote name.
func (r *Repo) RemoteURL(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errUsage("remote name is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	url, ok := cfg.Remotes[name]
	if !ok || strings.TrimSpace(url) == "" {
		return "", errUsage("remote %q is not configured", name)
	}
	return url, nil
}
