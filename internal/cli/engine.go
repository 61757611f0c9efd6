package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/upstream"
	_ "github.com/git-pkgs/upstream/all"
	"github.com/git-pkgs/upstream/internal/config"
)

// engineFlags are shared by every command that builds an Engine.
type engineFlags struct {
	configFile string
	set        map[string]string
	baseURLs   map[string]string
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/upstream/config.yaml)")
	cmd.Flags().StringToStringVar(&f.set, "set", nil, "override a config key, e.g. --set brute-force=false")
	cmd.Flags().StringToStringVar(&f.baseURLs, "base-url", nil, "point a handler at another API base, e.g. --base-url pypi=https://pypi.example")
}

func (f *engineFlags) loadConfig() (upstream.Config, error) {
	path := f.configFile
	if path == "" {
		p, err := config.DefaultUserConfigPath()
		if err == nil {
			path = p
		}
	}

	var opts []upstream.ConfigOption
	if path != "" {
		opts = append(opts, upstream.WithConfigFile(path))
	}
	if len(f.set) > 0 {
		overrides := make(map[string]any, len(f.set))
		for k, v := range f.set {
			overrides[k] = v
		}
		opts = append(opts, upstream.WithConfigOverrides(overrides))
	}
	return upstream.LoadConfig(opts...)
}

func (f *engineFlags) engine(ctx context.Context) (*upstream.Engine, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	var opts []upstream.Option
	for handler, url := range f.baseURLs {
		opts = append(opts, upstream.WithBaseURL(handler, url))
	}
	eng, err := upstream.New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return eng, nil
}
