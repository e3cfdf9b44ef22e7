// Package config loads the YAML configuration that points the CLI at
// a heap file and sizes its buffer pool.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the on-disk YAML configuration for a pagedb instance.
type Config struct {
	Storage struct {
		File     string `mapstructure:"file"`
		PoolSize int    `mapstructure:"pool_size"`
	} `mapstructure:"storage"`
}

// Defaults returns a Config populated with sane standalone defaults,
// used when no config file is given.
func Defaults() Config {
	var c Config
	c.Storage.File = "./data/heap.db"
	c.Storage.PoolSize = 64
	return c
}

// Load reads and unmarshals the YAML config at path.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	if cfg.Storage.PoolSize < 1 {
		return Config{}, fmt.Errorf("config: storage.pool_size must be >= 1, got %d", cfg.Storage.PoolSize)
	}
	return cfg, nil
}
