// Package config loads the scanner configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyBruteForce               = "brute-force"
	KeyBruteForceRecursive      = "brute-force-recursive"
	KeyBruteForceFalseWatermark = "brute-force-false-watermark"
	KeyScanDir                  = "scan-dir"
	KeySkipRobotsTxt            = "skip-robots-txt"
	KeyUserAgent                = "user-agent"
	KeyIgnorePreRelease         = "ignore-pre-release"
	KeyIgnorePreReleaseIfStable = "ignore-pre-release-if-stable"
	KeyHandlersExclude          = "handlers-exclude"

	KeyTimeout         = "timeout"
	KeySlowTimeout     = "slow-timeout"
	KeyRobotsTimeout   = "robots-timeout"
	KeyCacheDir        = "cache.dir"
	KeyCacheRedis      = "cache.redis"
	KeyCacheTTL        = "cache.ttl"
	KeyMirrorsFile     = "mirrors-file"
	KeyBlacklistFile   = "blacklist-file"
	KeyGitlabInstances = "gitlab-instances"
	KeyGiteaInstances  = "gitea-instances"
	KeyGithubToken     = "github-token"
	KeyGitlabToken     = "gitlab-token"
)

const (
	DefaultUserAgent = "upstream (https://github.com/git-pkgs/upstream)"
	envPrefix        = "UPSTREAM"
)

// Config is the immutable scanner configuration. Build it once with Load or
// Default and pass it to every component that needs it.
type Config struct {
	BruteForce               int
	BruteForceRecursive      bool
	BruteForceFalseWatermark int
	ScanDir                  bool
	SkipRobotsTxt            bool
	UserAgent                string
	IgnorePreRelease         bool
	IgnorePreReleaseIfStable bool
	HandlersExclude          []string

	Timeout       time.Duration
	SlowTimeout   time.Duration
	RobotsTimeout time.Duration

	CacheDir   string
	CacheRedis string
	CacheTTL   time.Duration

	MirrorsFile   string
	BlacklistFile string

	GitlabInstances []string
	GiteaInstances  []string

	GithubToken string
	GitlabToken string
}

// Default returns the built-in configuration.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

// Excluded reports whether the named handler is disabled.
func (c Config) Excluded(handler string) bool {
	for _, h := range c.HandlersExclude {
		if h == handler {
			return true
		}
	}
	return false
}

// Validate checks values that would otherwise surface as programmer errors
// deep inside a scan.
func (c Config) Validate() error {
	var errs []error
	if c.BruteForce < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %d", KeyBruteForce, c.BruteForce))
	}
	if c.BruteForceFalseWatermark < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyBruteForceFalseWatermark, c.BruteForceFalseWatermark))
	}
	if c.UserAgent == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyUserAgent))
	}
	if c.Timeout <= 0 || c.SlowTimeout <= 0 || c.RobotsTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	return errors.Join(errs...)
}

type loadSettings struct {
	files     []string
	overrides map[string]any
}

// Option configures Load.
type Option func(*loadSettings)

// WithFile merges a YAML config file. Missing files are ignored.
func WithFile(path string) Option {
	return func(s *loadSettings) {
		s.files = append(s.files, path)
	}
}

// WithOverrides sets values that win over files and the environment,
// typically coming from CLI flags.
func WithOverrides(overrides map[string]any) Option {
	return func(s *loadSettings) {
		for k, v := range overrides {
			s.overrides[k] = v
		}
	}
}

// Load builds a Config with the precedence
// defaults < files (in order) < environment < overrides.
func Load(opts ...Option) (Config, error) {
	settings := loadSettings{overrides: make(map[string]any)}
	for _, opt := range opts {
		opt(&settings)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, path := range settings.files {
		if err := mergeConfigFile(v, path); err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}
	for k, val := range settings.overrides {
		v.Set(k, val)
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultUserConfigPath is $XDG_CONFIG_HOME/upstream/config.yaml or its
// platform equivalent.
func DefaultUserConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determine user config dir: %w", err)
	}
	return filepath.Join(dir, "upstream", "config.yaml"), nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyBruteForce, 3)
	v.SetDefault(KeyBruteForceRecursive, true)
	v.SetDefault(KeyBruteForceFalseWatermark, 50)
	v.SetDefault(KeyScanDir, true)
	v.SetDefault(KeySkipRobotsTxt, false)
	v.SetDefault(KeyUserAgent, DefaultUserAgent)
	v.SetDefault(KeyIgnorePreRelease, false)
	v.SetDefault(KeyIgnorePreReleaseIfStable, false)
	v.SetDefault(KeyHandlersExclude, []string{})

	v.SetDefault(KeyTimeout, 5*time.Second)
	v.SetDefault(KeySlowTimeout, 15*time.Second)
	v.SetDefault(KeyRobotsTimeout, 5*time.Second)
	v.SetDefault(KeyCacheDir, "")
	v.SetDefault(KeyCacheRedis, "")
	v.SetDefault(KeyCacheTTL, 24*time.Hour)
	v.SetDefault(KeyMirrorsFile, "")
	v.SetDefault(KeyBlacklistFile, "")
	v.SetDefault(KeyGitlabInstances, []string{"gitlab.com", "gitlab.gnome.org", "gitlab.freedesktop.org", "invent.kde.org", "salsa.debian.org"})
	v.SetDefault(KeyGiteaInstances, []string{"codeberg.org", "gitea.com"})
	v.SetDefault(KeyGithubToken, "")
	v.SetDefault(KeyGitlabToken, "")
}

func fromViper(v *viper.Viper) Config {
	return Config{
		BruteForce:               v.GetInt(KeyBruteForce),
		BruteForceRecursive:      v.GetBool(KeyBruteForceRecursive),
		BruteForceFalseWatermark: v.GetInt(KeyBruteForceFalseWatermark),
		ScanDir:                  v.GetBool(KeyScanDir),
		SkipRobotsTxt:            v.GetBool(KeySkipRobotsTxt),
		UserAgent:                v.GetString(KeyUserAgent),
		IgnorePreRelease:         v.GetBool(KeyIgnorePreRelease),
		IgnorePreReleaseIfStable: v.GetBool(KeyIgnorePreReleaseIfStable),
		HandlersExclude:          v.GetStringSlice(KeyHandlersExclude),
		Timeout:                  v.GetDuration(KeyTimeout),
		SlowTimeout:              v.GetDuration(KeySlowTimeout),
		RobotsTimeout:            v.GetDuration(KeyRobotsTimeout),
		CacheDir:                 v.GetString(KeyCacheDir),
		CacheRedis:               v.GetString(KeyCacheRedis),
		CacheTTL:                 v.GetDuration(KeyCacheTTL),
		MirrorsFile:              v.GetString(KeyMirrorsFile),
		BlacklistFile:            v.GetString(KeyBlacklistFile),
		GitlabInstances:          v.GetStringSlice(KeyGitlabInstances),
		GiteaInstances:           v.GetStringSlice(KeyGiteaInstances),
		GithubToken:              v.GetString(KeyGithubToken),
		GitlabToken:              v.GetString(KeyGitlabToken),
	}
}
