package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	Server     ServerConfig     `mapstructure:"server"`
	Phonemizer PhonemizerConfig `mapstructure:"phonemizer"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	MaxLyricBytes   int    `mapstructure:"max_lyric_bytes"`
	MaxBatchNotes   int    `mapstructure:"max_batch_notes"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type PhonemizerConfig struct {
	DefaultDuration int  `mapstructure:"default_duration"`
	Legato          bool `mapstructure:"legato"`
	Concurrency     int  `mapstructure:"concurrency"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// flagKeys maps each command line flag to its config key.
var flagKeys = map[string]string{
	"log-level":               "log_level",
	"server-listen-addr":      "server.listen_addr",
	"workers":                 "server.workers",
	"server-max-lyric-bytes":  "server.max_lyric_bytes",
	"server-max-batch-notes":  "server.max_batch_notes",
	"server-request-timeout":  "server.request_timeout",
	"server-shutdown-timeout": "server.shutdown_timeout",
	"duration":                "phonemizer.default_duration",
	"legato":                  "phonemizer.legato",
	"concurrency":             "phonemizer.concurrency",
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         4,
			MaxLyricBytes:   256,
			MaxBatchNotes:   4096,
			RequestTimeout:  10,
			ShutdownTimeout: 30,
		},
		Phonemizer: PhonemizerConfig{
			DefaultDuration: 480,
			Legato:          false,
			Concurrency:     0,
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent phonemize requests served")
	fs.Int("server-max-lyric-bytes", defaults.Server.MaxLyricBytes, "Max lyric size in bytes per note")
	fs.Int("server-max-batch-notes", defaults.Server.MaxBatchNotes, "Max notes per batch request")
	fs.Int("server-request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
	fs.Int("duration", defaults.Phonemizer.DefaultDuration, "Note duration in ticks when none is given")
	fs.Bool("legato", defaults.Phonemizer.Legato, "Link consecutive notes through their shared vowel")
	fs.Int("concurrency", defaults.Phonemizer.Concurrency, "Notes phonemized in parallel per batch (0 = GOMAXPROCS)")
}

const envPrefix = "GERMANCV"

var envKeyReplacer = strings.NewReplacer("-", "_", ".", "_")

// EnvVar returns the environment variable that sets key.
func EnvVar(key string) string {
	return envPrefix + "_" + strings.ToUpper(envKeyReplacer.Replace(key))
}

// Overridden reports whether key was set by a changed flag in fs or by its
// environment variable. Values from those sources outrank note files.
func Overridden(fs *pflag.FlagSet, key string) bool {
	for name, k := range flagKeys {
		if k != key || fs == nil {
			continue
		}
		if f := fs.Lookup(name); f != nil && f.Changed {
			return true
		}
	}
	return os.Getenv(EnvVar(key)) != ""
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("germancv")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_lyric_bytes", c.Server.MaxLyricBytes)
	v.SetDefault("server.max_batch_notes", c.Server.MaxBatchNotes)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("phonemizer.default_duration", c.Phonemizer.DefaultDuration)
	v.SetDefault("phonemizer.legato", c.Phonemizer.Legato)
	v.SetDefault("phonemizer.concurrency", c.Phonemizer.Concurrency)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}
	return nil
}
