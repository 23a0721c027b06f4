// Package config provides configuration management for the traffic-class
// scheduler and its surrounding tooling.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Tree      TreeConfig      `mapstructure:"tree"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

// TreeConfig describes a scheduling tree to build declaratively, without
// writing Go. Root is the tree's root node descriptor.
type TreeConfig struct {
	Name    string     `mapstructure:"name"`
	DataDir string     `mapstructure:"data_dir"`
	Root    NodeConfig `mapstructure:"root"`
}

// NodeConfig describes one node of a scheduling tree. Which fields are
// meaningful depends on Policy:
//   - "priority": children carry Priority.
//   - "weighted_fair": Resource selects the fair-shared dimension; children carry Share.
//   - "round_robin": children carry nothing extra.
//   - "rate_limit": Resource/Limit/MaxBurst apply; exactly one child.
//   - "leaf": Task names a registered task factory; no children.
type NodeConfig struct {
	Name     string       `mapstructure:"name"`
	Policy   string       `mapstructure:"policy"`
	Resource string       `mapstructure:"resource"`
	Priority int          `mapstructure:"priority"`
	Share    int          `mapstructure:"share"`
	Limit    uint64       `mapstructure:"limit"`
	MaxBurst uint64       `mapstructure:"max_burst"`
	Task     string       `mapstructure:"task"`
	Children []NodeConfig `mapstructure:"children"`
}

// DatabaseConfig holds the audit trail's database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // postgres or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
	Enabled  bool   `mapstructure:"enabled"`
}

// StorageConfig holds statistics-archive object storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
	LocalPath string `mapstructure:"local_path"`
	Enabled   bool   `mapstructure:"enabled"`
}

// SchedulerConfig holds tick-loop runtime configuration.
type SchedulerConfig struct {
	TickBatchSize    int `mapstructure:"tick_batch_size"`
	IdleSleepMillis  int `mapstructure:"idle_sleep_millis"`
	BenchWorkerCount int `mapstructure:"bench_worker_count"`
	SnapshotInterval int `mapstructure:"snapshot_interval_ticks"`
	HistorySize      int `mapstructure:"history_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/pktsched")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("tree.name", "root")
	v.SetDefault("tree.data_dir", "./data")

	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.enabled", false)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./statsarchive")
	v.SetDefault("storage.enabled", false)

	v.SetDefault("scheduler.tick_batch_size", 64)
	v.SetDefault("scheduler.idle_sleep_millis", 10)
	v.SetDefault("scheduler.bench_worker_count", 4)
	v.SetDefault("scheduler.snapshot_interval_ticks", 1000)
	v.SetDefault("scheduler.history_size", 64)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Type != "postgres" && c.Database.Type != "mysql" {
			return fmt.Errorf("unsupported database type: %s", c.Database.Type)
		}
	}

	// Storage config validation is delegated to the statsarchive package.

	if c.Scheduler.TickBatchSize < 1 {
		return fmt.Errorf("tick batch size must be at least 1")
	}

	return nil
}

// EnsureDataDir creates the tree's data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Tree.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Tree.DataDir, 0755)
}

// TreeDir returns the tree-specific directory path for auxiliary files.
func (c *Config) TreeDir() string {
	return filepath.Join(c.Tree.DataDir, c.Tree.Name)
}
