package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Registry RegistryConfig `toml:"registry"`
	Scripts  ScriptsConfig  `toml:"scripts"`
	Loop     LoopConfig     `toml:"loop"`
	Logging  LoggingConfig  `toml:"logging"`
}

type RegistryConfig struct {
	IDPrefix string `toml:"id_prefix"`
	Seed     int64  `toml:"seed"` // 0 = time-based
}

type ScriptsConfig struct {
	Dir string `toml:"dir"`
}

type LoopConfig struct {
	TickRate time.Duration `toml:"tick_rate"`
	Ticks    int           `toml:"ticks"` // demo run length, 0 = run until signal
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		Registry: RegistryConfig{
			IDPrefix: "id",
		},
		Scripts: ScriptsConfig{
			Dir: "scripts",
		},
		Loop: LoopConfig{
			TickRate: 200 * time.Millisecond,
			Ticks:    0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
