// Package config loads the on-disk YAML configuration describing which
// chains, bridges, and lanes a relay process should serve, matching the
// teacher's config package layering but rebuilt on spf13/viper for flag
// binding (§6's CLI surface binds cobra flags onto the same viper
// instance this package configures).
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v2"
)

// GlobalConfig holds process-wide settings not scoped to any one chain or
// bridge.
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	LogOutput   string `yaml:"log_output"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultGlobalConfig returns the default process-wide settings.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		LogLevel:    "INFO",
		LogFormat:   "text",
		LogOutput:   "stderr",
		MetricsAddr: "localhost:9616",
	}
}

// Config is the full on-disk shape: named chain endpoints plus the bridges
// (chain pairs) to relay between them.
type Config struct {
	Global  GlobalConfig   `yaml:"global"`
	Chains  []ChainConfig  `yaml:"chains"`
	Bridges []BridgeConfig `yaml:"bridges"`
}

// DefaultConfig returns an empty config with global defaults set.
func DefaultConfig() Config {
	return Config{Global: DefaultGlobalConfig()}
}

// Chain looks up a configured chain by its short name.
func (c *Config) Chain(name string) (ChainConfig, error) {
	for _, ch := range c.Chains {
		if ch.Name == name {
			return ch, nil
		}
	}
	return ChainConfig{}, errors.Newf("chain %q not found in config", name)
}

// Load reads and parses a YAML config file at path via viper, binding it
// into a Config. Flags bound onto v with viper.BindPFlag before calling
// Load take precedence over the file's values.
func Load(v *viper.Viper, path string) (*Config, error) {
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}
	// Decode through yaml so the struct's yaml tags (e.g. log_level,
	// expected_spec_version) name the keys, which v.Unmarshal ignores.
	data, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML, in the key layout Load reads.
func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "writing config file %s", path)
	}
	return nil
}
