package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered and
// parsed from args.
func newFlagBinder(t *testing.T, defaults Config, args ...string) *fakeBinder {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}

	return &fakeBinder{fs: fs}
}

// chdirTemp moves into an empty directory so a stray germancv.yaml in the
// package directory cannot leak into Load.
func chdirTemp(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":8080")
	}

	if cfg.Server.Workers != 4 {
		t.Errorf("Server.Workers = %d; want 4", cfg.Server.Workers)
	}

	if cfg.Server.MaxLyricBytes != 256 {
		t.Errorf("Server.MaxLyricBytes = %d; want 256", cfg.Server.MaxLyricBytes)
	}

	if cfg.Server.MaxBatchNotes != 4096 {
		t.Errorf("Server.MaxBatchNotes = %d; want 4096", cfg.Server.MaxBatchNotes)
	}

	if cfg.Phonemizer.DefaultDuration != 480 {
		t.Errorf("Phonemizer.DefaultDuration = %d; want 480", cfg.Phonemizer.DefaultDuration)
	}

	if cfg.Phonemizer.Legato {
		t.Error("Phonemizer.Legato = true; want false")
	}
}

func TestRegisterFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	checks := []struct {
		flag string
		want string
	}{
		{"log-level", "info"},
		{"server-listen-addr", ":8080"},
		{"workers", "4"},
		{"duration", "480"},
		{"legato", "false"},
		{"concurrency", "0"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}

		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
}

func TestRegisterFlags_EveryFlagHasAKey(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	fs.VisitAll(func(f *pflag.Flag) {
		if _, ok := flagKeys[f.Name]; !ok {
			t.Errorf("flag %q has no config key", f.Name)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(t, defaults),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg != defaults {
		t.Errorf("Load() = %+v; want defaults %+v", cfg, defaults)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	chdirTemp(t)

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(t, defaults, "--workers=8", "--log-level=debug", "--duration=960", "--legato"),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Workers != 8 {
		t.Errorf("Server.Workers = %d; want 8", cfg.Server.Workers)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}

	if cfg.Phonemizer.DefaultDuration != 960 {
		t.Errorf("Phonemizer.DefaultDuration = %d; want 960", cfg.Phonemizer.DefaultDuration)
	}

	if !cfg.Phonemizer.Legato {
		t.Error("Phonemizer.Legato = false; want true")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("GERMANCV_LOG_LEVEL", "warn")
	t.Setenv("GERMANCV_SERVER_LISTEN_ADDR", ":9999")
	t.Setenv("GERMANCV_PHONEMIZER_CONCURRENCY", "3")

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(t, defaults),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "warn")
	}

	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":9999")
	}

	if cfg.Phonemizer.Concurrency != 3 {
		t.Errorf("Phonemizer.Concurrency = %d; want 3", cfg.Phonemizer.Concurrency)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "germancv.yaml")

	content := `
log_level: error
server:
  workers: 16
  listen_addr: ":7777"
phonemizer:
  default_duration: 240
  legato: true
`

	err := os.WriteFile(cfgFile, []byte(content), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(t, defaults),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "error")
	}

	if cfg.Server.Workers != 16 {
		t.Errorf("Server.Workers = %d; want 16", cfg.Server.Workers)
	}

	if cfg.Server.ListenAddr != ":7777" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":7777")
	}

	if cfg.Phonemizer.DefaultDuration != 240 {
		t.Errorf("Phonemizer.DefaultDuration = %d; want 240", cfg.Phonemizer.DefaultDuration)
	}

	if !cfg.Phonemizer.Legato {
		t.Error("Phonemizer.Legato = false; want true")
	}

	// Unset keys keep their defaults.
	if cfg.Server.MaxBatchNotes != defaults.Server.MaxBatchNotes {
		t.Errorf("Server.MaxBatchNotes = %d; want default %d", cfg.Server.MaxBatchNotes, defaults.Server.MaxBatchNotes)
	}
}

func TestLoad_FlagBeatsConfigFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "germancv.yaml")

	err := os.WriteFile(cfgFile, []byte("server:\n  workers: 16\n"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(t, defaults, "--workers=2"),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Workers != 2 {
		t.Errorf("Server.Workers = %d; want flag value 2", cfg.Server.Workers)
	}
}

func TestLoad_DiscoversConfigInWorkingDir(t *testing.T) {
	chdirTemp(t)

	err := os.WriteFile("germancv.yaml", []byte("log_level: debug\n"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "bad.yaml")

	err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err = Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/germancv.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

func TestLoad_NilCmd(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load(LoadOptions{
		Cmd:      nil,
		Defaults: DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Workers != DefaultConfig().Server.Workers {
		t.Errorf("Server.Workers = %d; want default", cfg.Server.Workers)
	}
}

func TestEnvVar(t *testing.T) {
	if got := EnvVar("phonemizer.default_duration"); got != "GERMANCV_PHONEMIZER_DEFAULT_DURATION" {
		t.Errorf("EnvVar = %q", got)
	}
}

func TestOverridden(t *testing.T) {
	t.Setenv("GERMANCV_PHONEMIZER_LEGATO", "")

	unchanged := newFlagBinder(t, DefaultConfig())
	if Overridden(unchanged.Flags(), "phonemizer.legato") {
		t.Error("unchanged flag reported as overridden")
	}

	changed := newFlagBinder(t, DefaultConfig(), "--legato=false")
	if !Overridden(changed.Flags(), "phonemizer.legato") {
		t.Error("--legato=false not reported as overridden")
	}

	if Overridden(changed.Flags(), "phonemizer.concurrency") {
		t.Error("unrelated key reported as overridden")
	}

	t.Setenv("GERMANCV_PHONEMIZER_LEGATO", "true")
	if !Overridden(nil, "phonemizer.legato") {
		t.Error("env var not reported as overridden")
	}
}
