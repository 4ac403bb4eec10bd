// Package config loads twig settings from TOML files.
//
// Settings come from the user file ($XDG_CONFIG_HOME/twig/config.toml or an
// explicit path) and the repository-local .git/twig.toml, which is merged
// on top.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/zlib"
	"github.com/warpfork/go-errcat"

	"github.com/odvcencio/twig"
)

// Defaults.
const (
	DefaultTimeout          = 60 * time.Second
	DefaultMaxAttempts      = 3
	DefaultUserAgent        = "git/twig-0.1"
	DefaultMaxPackBytes     = 1 << 30
	DefaultCompressionLevel = zlib.BestSpeed
	DefaultUserName         = "twig"
	DefaultUserEmail        = "twig@localhost"
)

// Config is the full settings tree.
type Config struct {
	Remote  RemoteConfig      `toml:"remote"`
	Store   StoreConfig       `toml:"store"`
	User    UserConfig        `toml:"user"`
	Remotes map[string]string `toml:"remotes,omitempty"`
}

// RemoteConfig tunes the upload-pack client.
type RemoteConfig struct {
	Timeout      Duration `toml:"timeout,omitempty"`
	MaxAttempts  int      `toml:"max_attempts,omitempty"`
	UserAgent    string   `toml:"user_agent,omitempty"`
	MaxPackBytes int64    `toml:"max_pack_bytes,omitempty"`
}

// StoreConfig tunes the loose object store.
type StoreConfig struct {
	CompressionLevel int `toml:"compression_level,omitempty"`
}

// UserConfig is the identity used by commit-tree.
type UserConfig struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("60s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			Timeout:      Duration{DefaultTimeout},
			MaxAttempts:  DefaultMaxAttempts,
			UserAgent:    DefaultUserAgent,
			MaxPackBytes: DefaultMaxPackBytes,
		},
		Store: StoreConfig{CompressionLevel: DefaultCompressionLevel},
		User:  UserConfig{Name: DefaultUserName, Email: DefaultUserEmail},
	}
}

// Unmarshal decodes TOML into cfg, leaving fields absent from data
// untouched. Unknown keys are rejected.
func Unmarshal(data []byte, cfg *Config) error {
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return errcat.Errorf(twig.ErrUsage, "config: %s", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errcat.Errorf(twig.ErrUsage, "config: unknown keys: %s", strings.Join(keys, ", "))
	}
	return cfg.Validate()
}

// Decode parses TOML on top of the defaults.
func Decode(data []byte) (*Config, error) {
	cfg := Default()
	if err := Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errcat.Errorf(twig.ErrIO, "config: read %s: %s", path, err)
	}
	cfg, err := Decode(data)
	if err != nil {
		return nil, errcat.Errorf(twig.ErrUsage, "%s: %s", path, err)
	}
	return cfg, nil
}

// UserPath returns the user config path: $TWIG_CONFIG, else
// $XDG_CONFIG_HOME/twig/config.toml, else ~/.config/twig/config.toml.
// It returns "" when none can be determined.
func UserPath() string {
	if p := strings.TrimSpace(os.Getenv("TWIG_CONFIG")); p != "" {
		return p
	}
	if dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); dir != "" {
		return filepath.Join(dir, "twig", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "twig", "config.toml")
}

// Encode writes cfg as TOML.
func (c *Config) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return errcat.Errorf(twig.ErrIO, "config: encode: %s", err)
	}
	return nil
}

// Marshal returns cfg as TOML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Merge overlays the non-zero fields of o onto c.
func (c *Config) Merge(o *Config) {
	if o == nil {
		return
	}
	if o.Remote.Timeout.Duration != 0 {
		c.Remote.Timeout = o.Remote.Timeout
	}
	if o.Remote.MaxAttempts != 0 {
		c.Remote.MaxAttempts = o.Remote.MaxAttempts
	}
	if o.Remote.UserAgent != "" {
		c.Remote.UserAgent = o.Remote.UserAgent
	}
	if o.Remote.MaxPackBytes != 0 {
		c.Remote.MaxPackBytes = o.Remote.MaxPackBytes
	}
	if o.Store.CompressionLevel != 0 {
		c.Store.CompressionLevel = o.Store.CompressionLevel
	}
	if o.User.Name != "" {
		c.User.Name = o.User.Name
	}
	if o.User.Email != "" {
		c.User.Email = o.User.Email
	}
	for name, url := range o.Remotes {
		if c.Remotes == nil {
			c.Remotes = make(map[string]string)
		}
		c.Remotes[name] = url
	}
}

// Validate rejects settings no component can honour.
func (c *Config) Validate() error {
	switch {
	case c.Remote.Timeout.Duration < 0:
		return errcat.Errorf(twig.ErrUsage, "config: remote.timeout must not be negative")
	case c.Remote.MaxAttempts < 0:
		return errcat.Errorf(twig.ErrUsage, "config: remote.max_attempts must not be negative")
	case c.Remote.MaxPackBytes < 0:
		return errcat.Errorf(twig.ErrUsage, "config: remote.max_pack_bytes must not be negative")
	case c.Store.CompressionLevel < zlib.HuffmanOnly || c.Store.CompressionLevel > zlib.BestCompression:
		return errcat.Errorf(twig.ErrUsage, "config: store.compression_level %d out of range", c.Store.CompressionLevel)
	}
	return nil
}
