// Package config loads server configuration with the precedence flags >
// env > YAML file > defaults, the order github.com/spf13/viper gives for
// free when bound in that order.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is every tunable the server reads at startup. Fields are re-read
// only at process start; this is not a hot-reloading config watcher.
type Config struct {
	Addr string `mapstructure:"addr"`

	Databases int `mapstructure:"databases"`

	MaxMemoryBytes int64 `mapstructure:"max_memory_bytes"`

	// ActiveExpireHz is converted by ActiveExpirePeriod into
	// server.Options.ActiveExpirePeriod. internal/expire's Cycle does not
	// read it: the cycle runs on its own fixed 100 ms fast and 1000 ms slow
	// periods.
	ActiveExpireHz int `mapstructure:"active_expire_hz"`

	LazyFreePoolSize int `mapstructure:"lazyfree_pool_size"`

	KeyspaceNotifications bool `mapstructure:"keyspace_notifications"`

	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
	LogFile  string `mapstructure:"log_file"`

	ConfigFile string `mapstructure:"-"`
}

func defaults() Config {
	return Config{
		Addr:                   ":6390",
		Databases:              16,
		MaxMemoryBytes:         0, // 0 means unbounded
		ActiveExpireHz:         10,
		LazyFreePoolSize:       8,
		KeyspaceNotifications:  false,
		LogLevel:               "info",
		LogJSON:                true,
	}
}

// Load builds a Config from, in ascending precedence: built-in defaults,
// a YAML file (if the --config flag on fs names one; the TEMPUSKV_CONFIG
// environment variable is not consulted for the file path), environment
// variables prefixed TEMPUSKV_, then flags already parsed onto fs.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	d := defaults()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("tempuskv")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefault(v, d)

	configFile, _ := fs.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	for key, flag := range map[string]string{
		"addr":                   "addr",
		"databases":              "databases",
		"max_memory_bytes":       "max-memory-bytes",
		"active_expire_hz":       "active-expire-hz",
		"lazyfree_pool_size":     "lazyfree-pool-size",
		"keyspace_notifications": "keyspace-notifications",
		"log_level":              "log-level",
		"log_json":               "log-json",
		"log_file":               "log-file",
	} {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, err
		}
	}

	cfg := d
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ConfigFile = configFile
	return &cfg, nil
}

func setDefault(v *viper.Viper, d Config) {
	v.SetDefault("addr", d.Addr)
	v.SetDefault("databases", d.Databases)
	v.SetDefault("max_memory_bytes", d.MaxMemoryBytes)
	v.SetDefault("active_expire_hz", d.ActiveExpireHz)
	v.SetDefault("lazyfree_pool_size", d.LazyFreePoolSize)
	v.SetDefault("keyspace_notifications", d.KeyspaceNotifications)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_json", d.LogJSON)
	v.SetDefault("log_file", d.LogFile)
}

// ActiveExpirePeriod converts ActiveExpireHz into an interval for
// server.Options.ActiveExpirePeriod. internal/expire.Cycle's timer does not
// use this interval.
func (c *Config) ActiveExpirePeriod() time.Duration {
	if c.ActiveExpireHz <= 0 {
		return 100 * time.Millisecond
	}
	return time.Second / time.Duration(c.ActiveExpireHz)
}

// RegisterFlags adds every Config field as a flag on fs, so cmd/
// tempuskv-server can parse them with cobra/pflag before Load binds them
// back through viper.
func RegisterFlags(fs *pflag.FlagSet) {
	d := defaults()
	fs.String("config", "", "path to a YAML config file")
	fs.String("addr", d.Addr, "listen address")
	fs.Int("databases", d.Databases, "number of logical databases")
	fs.Int64("max-memory-bytes", d.MaxMemoryBytes, "maximum memory in bytes (0 = unbounded)")
	fs.Int("active-expire-hz", d.ActiveExpireHz, "active-expire cycles per second in slow mode")
	fs.Int("lazyfree-pool-size", d.LazyFreePoolSize, "goroutine pool size for background value teardown")
	fs.Bool("keyspace-notifications", d.KeyspaceNotifications, "enable keyspace notification events")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	fs.Bool("log-json", d.LogJSON, "emit logs as JSON")
	fs.String("log-file", d.LogFile, "rotate logs to this file path instead of stderr")
}
