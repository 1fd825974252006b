// Package config loads sectorfs settings from a YAML file overlaid with
// `SECTORFS_*` environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "SECTORFS"
	appName      = "sectorfs"

	BackendFile = "file"
	BackendBolt = "bolt"
)

type Config struct {
	Image         string `envconfig:"IMAGE" yaml:"image"`
	Backend       string `envconfig:"BACKEND" yaml:"backend"`
	Sectors       uint32 `envconfig:"SECTORS" yaml:"sectors"`
	Inodes        uint32 `envconfig:"INODES" yaml:"inodes"`
	Partition     string `envconfig:"PARTITION" yaml:"partition"`
	PartitionBase uint32 `envconfig:"PARTITION_BASE" yaml:"partitionBase"`
	Addr          string `envconfig:"ADDR" yaml:"addr"`
	LogLevel      string `envconfig:"LOG_LEVEL" yaml:"logLevel"`
	Bucket        string `envconfig:"BUCKET" yaml:"bucket"`
	Prefix        string `envconfig:"PREFIX" yaml:"prefix"`
	Region        string `envconfig:"REGION" yaml:"region"`
}

// Default is the configuration before the file and the environment are
// applied.
func Default() Config {
	return Config{
		Image:     "sectorfs.img",
		Backend:   BackendFile,
		Sectors:   20480,
		Inodes:    4096,
		Partition: "sdb1",
		Addr:      "127.0.0.1:8080",
		LogLevel:  "info",
		Prefix:    "snapshots",
	}
}

// ConfigFile is the YAML file Load reads: `$SECTORFS_CONFIG_FILE`, or
// `$HOME/.config/sectorfs.yaml`.
func ConfigFile() string {
	if configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE"); configFile != "" {
		return configFile
	}
	return filepath.Join(os.Getenv("HOME"), ".config", appName+".yaml")
}

// Load reads ConfigFile() if it exists and then applies the environment.
// Values from the environment win; an environment variable that is unset
// leaves the field alone.
func Load() (*Config, error) {
	c := Default()
	data, err := os.ReadFile(ConfigFile())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return &c, nil
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.Image == "" {
			return "image", "IMAGE"
		}
		if c.Partition == "" {
			return "partition", "PARTITION"
		}
		if c.Sectors == 0 {
			return "sectors", "SECTORS"
		}
		if c.Addr == "" {
			return "addr", "ADDR"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing required configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}
	if c.Backend != BackendFile && c.Backend != BackendBolt {
		return fmt.Errorf(
			"invalid backend `%s` (wanted `%s` or `%s`): backend / %s_BACKEND",
			c.Backend,
			BackendFile,
			BackendBolt,
			envVarPrefix,
		)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// ValidateSnapshots additionally requires the snapshot bucket.
func (c *Config) ValidateSnapshots() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Bucket == "" {
		return fmt.Errorf(
			"missing required configuration: bucket / %s_BUCKET",
			envVarPrefix,
		)
	}
	return nil
}

func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf(
			"invalid log level `%s`: logLevel / %s_LOG_LEVEL: %w",
			c.LogLevel,
			envVarPrefix,
			err,
		)
	}
	return level, nil
}
