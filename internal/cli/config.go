// Package cli holds configuration loading shared by the filecat CLI
// commands.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config is the effective CLI configuration, merged from defaults, an
// optional filecat.yaml, and FILECAT_* environment variables.
type Config struct {
	DatabaseURL      string `mapstructure:"database_url"`
	DefaultNamespace string `mapstructure:"default_namespace"`
	CopyThreshold    int    `mapstructure:"copy_threshold"`
}

// Load reads the configuration. path forces a specific config file;
// empty path auto-discovers filecat.yaml in the working directory. A
// missing config file is not an error - defaults and environment apply.
func Load(path string) (*Config, string, error) {
	v := viper.New()
	v.SetEnvPrefix("FILECAT")
	v.AutomaticEnv()

	v.SetDefault("database_url", "")
	v.SetDefault("default_namespace", "")
	v.SetDefault("copy_threshold", 100)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("filecat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && path != "" {
			return nil, "", fmt.Errorf("reading config %s: %w", path, err)
		}
		if !errors.As(err, &notFound) && path == "" {
			// A present-but-broken filecat.yaml should not be silently
			// ignored.
			return nil, "", fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, v.ConfigFileUsed(), nil
}
