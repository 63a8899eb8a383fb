package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the pipeline service
type Config struct {
	General GeneralConfig `mapstructure:"general"`
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Search  SearchConfig  `mapstructure:"search"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Storage StorageConfig `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Workers int    `mapstructure:"workers"`
}

// LLMConfig contains the generative provider configuration
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SearchConfig contains the web search provider configuration
type SearchConfig struct {
	Provider string `mapstructure:"provider"` // serper, brave
	APIKey   string `mapstructure:"api_key"`
	MaxCalls int    `mapstructure:"max_calls"` // per-process provider call budget
}

// FetchConfig contains page fetch settings for the research fallback
type FetchConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

// StorageConfig selects the run-state backend
type StorageConfig struct {
	Backend string      `mapstructure:"backend"` // file, redis
	RunsDir string      `mapstructure:"runs_dir"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (s StorageConfig) Validate() error {
	switch s.Backend {
	case "file", "":
		return nil
	case "redis":
		if s.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr required for redis backend")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage backend: %s", s.Backend)
	}
}

// LoadConfig loads config from file with POSTFORGE_* env overrides
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("server.address", ":10011")
	viper.SetDefault("server.workers", 4)
	viper.SetDefault("llm.model", "gemini-2.5-flash")
	viper.SetDefault("llm.max_attempts", 6)
	viper.SetDefault("llm.timeout", 120*time.Second)
	viper.SetDefault("search.provider", "serper")
	viper.SetDefault("search.max_calls", 3)
	viper.SetDefault("fetch.timeout", 8*time.Second)
	viper.SetDefault("fetch.max_chars", 1200)
	viper.SetDefault("storage.backend", "file")
	viper.SetDefault("storage.runs_dir", "storage/agent-runs")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("POSTFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// config file is optional; env + defaults are enough to run
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	if err := config.Storage.Validate(); err != nil {
		panic(err)
	}
	return &config
}
