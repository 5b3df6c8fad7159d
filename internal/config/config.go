// Package config handles loading and validating the ransom configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration for a rendering session.
type Config struct {
	Session SessionConfig `mapstructure:"session"`
	Scan    ScanConfig    `mapstructure:"scan"`
	TTS     TTSConfig     `mapstructure:"tts"`
	Render  RenderConfig  `mapstructure:"render"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SessionConfig holds the per-session filesystem settings.
type SessionConfig struct {
	WorkDir string `mapstructure:"work_dir"` // parent of the ephemeral clip directory; empty = OS temp dir
	Output  string `mapstructure:"output"`   // rendered WAV path
}

// ScanConfig controls the word synthesis phase.
type ScanConfig struct {
	Workers int `mapstructure:"workers"` // concurrent backend invocations
}

// TTSConfig selects and configures the speech backends.
type TTSConfig struct {
	// Backends lists the enabled backends in registry order
	// ("festival", "espeak", "rhvoice", "flite", "mimic", "piper").
	Backends  []string       `mapstructure:"backends"`
	Timeout   time.Duration  `mapstructure:"timeout"`    // per backend call
	KillGrace time.Duration  `mapstructure:"kill_grace"` // SIGTERM -> SIGKILL delay
	Espeak    EspeakConfig   `mapstructure:"espeak"`
	Festival  FestivalConfig `mapstructure:"festival"`
	RHVoice   RHVoiceConfig  `mapstructure:"rhvoice"`
	Flite     FliteConfig    `mapstructure:"flite"`
	Mimic     MimicConfig    `mapstructure:"mimic"`
	Piper     PiperConfig    `mapstructure:"piper"`
}

// EspeakConfig configures the espeak-ng backend.
type EspeakConfig struct {
	Binary   string `mapstructure:"binary"`
	Language string `mapstructure:"language"` // passed as --voices=<language>
}

// FestivalConfig configures the festival server and client.
type FestivalConfig struct {
	Server         string        `mapstructure:"server"` // festival binary, started with --server
	Client         string        `mapstructure:"client"` // festival_client binary
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
}

// RHVoiceConfig configures the RHVoice backend. RHVoice has no voice
// enumeration command, so the voice list comes from here.
type RHVoiceConfig struct {
	Binary string   `mapstructure:"binary"`
	Voices []string `mapstructure:"voices"`
}

// FliteConfig configures the flite backend.
type FliteConfig struct {
	Binary   string `mapstructure:"binary"`
	VoiceDir string `mapstructure:"voice_dir"`
}

// MimicConfig configures the mimic backend.
type MimicConfig struct {
	Binary string `mapstructure:"binary"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
type PiperConfig struct {
	Endpoint string   `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
	Voices   []string `mapstructure:"voices"`   // overrides the server's voice list when set
}

// RenderConfig configures the csound invocation.
type RenderConfig struct {
	Binary string   `mapstructure:"binary"`
	Flags  []string `mapstructure:"flags"` // extra flags placed before the orchestra/score pair
}

// ServerConfig holds the ports used by `ransom serve`.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
	HTTPPort   int `mapstructure:"http_port"`
	GRPCPort   int `mapstructure:"grpc_port"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json, text
}

// KnownBackends lists the backend names accepted in tts.backends.
var KnownBackends = []string{"festival", "espeak", "rhvoice", "flite", "mimic", "piper"}

// Load reads the configuration from file, environment variables, flags and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./ransom.yaml, ./configs/ransom.yaml, the user
// config dirs, /etc/ransom/ransom.yaml.
//
// bindings maps config keys to flag names in flags; flags the user set
// take precedence over every other source.
func Load(configFile string, flags *pflag.FlagSet, bindings map[string]string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ransom")
		v.SetConfigType("yaml")
		for _, dir := range searchDirs() {
			v.AddConfigPath(dir)
		}
	}

	// Environment variables: RANSOM_SCAN_WORKERS, RANSOM_TTS_TIMEOUT, etc.
	v.SetEnvPrefix("RANSOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range bindings {
			f := flags.Lookup(name)
			if f == nil {
				return nil, fmt.Errorf("binding %q: no flag named %q", key, name)
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding %q: %w", key, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.TTS.Flite.VoiceDir = expandHome(cfg.TTS.Flite.VoiceDir)
	cfg.Session.WorkDir = expandHome(cfg.Session.WorkDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.work_dir", "")
	v.SetDefault("session.output", "output.wav")
	v.SetDefault("scan.workers", 1)
	v.SetDefault("tts.backends", []string{"festival", "espeak", "rhvoice"})
	v.SetDefault("tts.timeout", "30s")
	v.SetDefault("tts.kill_grace", "2s")
	v.SetDefault("tts.espeak.binary", "espeak-ng")
	v.SetDefault("tts.espeak.language", "en")
	v.SetDefault("tts.festival.server", "festival")
	v.SetDefault("tts.festival.client", "festival_client")
	v.SetDefault("tts.festival.startup_timeout", "10s")
	v.SetDefault("tts.rhvoice.binary", "RHVoice-test")
	v.SetDefault("tts.rhvoice.voices", []string{"alan", "bdl", "clb", "evgeniy-eng", "lyubov", "slt"})
	v.SetDefault("tts.flite.binary", "flite")
	v.SetDefault("tts.flite.voice_dir", "/usr/lib/flite/")
	v.SetDefault("tts.mimic.binary", "mimic")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("render.binary", "csound")
	v.SetDefault("render.flags", []string{"-d"})
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// searchDirs returns the config file search path in priority order.
func searchDirs() []string {
	dirs := []string{".", "./configs"}
	if c := os.Getenv("RANSOM_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	if userDirs, err := gap.NewScope(gap.User, "ransom").ConfigDirs(); err == nil {
		dirs = append(dirs, userDirs...)
	}
	return append(dirs, "/etc/ransom")
}

// Validate reports configuration values that would make every session fail.
func (c *Config) Validate() error {
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1, got %d", c.Scan.Workers)
	}
	if len(c.TTS.Backends) == 0 {
		return fmt.Errorf("tts.backends is empty: enable at least one of %s", strings.Join(KnownBackends, ", "))
	}
	seen := make(map[string]bool, len(c.TTS.Backends))
	for _, name := range c.TTS.Backends {
		if !isKnownBackend(name) {
			return fmt.Errorf("tts.backends: unknown backend %q", name)
		}
		if seen[name] {
			return fmt.Errorf("tts.backends: %q listed twice", name)
		}
		seen[name] = true
	}
	if c.TTS.Timeout <= 0 {
		return fmt.Errorf("tts.timeout must be positive, got %v", c.TTS.Timeout)
	}
	if c.Session.Output == "" {
		return fmt.Errorf("session.output must not be empty")
	}
	if c.Render.Binary == "" {
		return fmt.Errorf("render.binary must not be empty")
	}
	return nil
}

func isKnownBackend(name string) bool {
	for _, k := range KnownBackends {
		if k == name {
			return true
		}
	}
	return false
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// SetupLogging configures the global slog logger based on config.
// Logs go to stderr so stdout stays free for command output.
func SetupLogging(cfg LoggingConfig) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	default:
		handler = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			Level:           charmlog.Level(level),
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		})
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
