package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"voiceprint-server-go/internal/platform/errors"
)

// 指令执行门限和最短音频(一帧)的下限
const (
	minExecutionThreshold = 0.7
	minAudioBytes         = 1024
)

// 默认查找的配置文件
var defaultPaths = []string{".config.yaml", "config.yaml"}

// Loader reads YAML configuration on top of DefaultConfig and applies env overrides.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that searches the working directory for a config file.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the config file instead of searching for one.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// a missing .env is normal outside development
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path := l.resolvePath()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.read", "failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.parse", fmt.Sprintf("failed to parse %s", path), err)
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

func (l *Loader) resolvePath() string {
	if l.path != "" {
		return l.path
	}
	if v, ok := l.lookupEnv("VOICE_CONFIG"); ok && v != "" {
		return v
	}
	for _, candidate := range defaultPaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.lookupEnv("VOICE_JWT_SECRET"); ok && v != "" {
		cfg.Server.Auth.JWTSecret = v
	}
	if v, ok := l.lookupEnv("VOICE_OPENAI_API_KEY"); ok && v != "" {
		cfg.Transcriber.APIKey = v
	}
	if v, ok := l.lookupEnv("VOICE_REDIS_ADDR"); ok && v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v, ok := l.lookupEnv("VOICE_STORE_DRIVER"); ok && v != "" {
		cfg.Store.Driver = v
	}
	if v, ok := l.lookupEnv("VOICE_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.KindConfig, "config.env", "VOICE_PORT must be an integer", err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func (l *Loader) validate(cfg *Config) error {
	const op = "config.validate"

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New(errors.KindConfig, op, fmt.Sprintf("invalid server port %d", cfg.Server.Port))
	}
	if cfg.Voice.MatchThreshold <= 0 || cfg.Voice.MatchThreshold > 1 {
		return errors.New(errors.KindConfig, op, "voice.match_threshold must be within (0,1]")
	}
	if cfg.Command.ExecutionThreshold < minExecutionThreshold || cfg.Command.ExecutionThreshold > 1 {
		return errors.New(errors.KindConfig, op,
			fmt.Sprintf("command.execution_threshold must be within [%.1f,1]", minExecutionThreshold))
	}
	if cfg.Voice.MinAudioBytes < minAudioBytes {
		return errors.New(errors.KindConfig, op,
			fmt.Sprintf("voice.min_audio_bytes must be at least %d", minAudioBytes))
	}
	if cfg.Voice.IdentifyWorkers <= 0 {
		return errors.New(errors.KindConfig, op, "voice.identify_workers must be positive")
	}

	switch cfg.Store.Driver {
	case "memory", "sqlite":
	case "redis":
		if cfg.Store.Redis.Addr == "" {
			return errors.New(errors.KindConfig, op, "store.redis.addr is required for the redis driver")
		}
	default:
		return errors.New(errors.KindConfig, op, fmt.Sprintf("unsupported store driver %q", cfg.Store.Driver))
	}

	switch cfg.Transcriber.Type {
	case "static":
	case "openai":
		if cfg.Transcriber.APIKey == "" {
			return errors.New(errors.KindConfig, op, "transcriber.api_key is required for openai")
		}
	default:
		return errors.New(errors.KindConfig, op, fmt.Sprintf("unsupported transcriber %q", cfg.Transcriber.Type))
	}

	if cfg.Server.Auth.Enabled && cfg.Server.Auth.JWTSecret == "" {
		return errors.New(errors.KindConfig, op, "server.auth.jwt_secret is required when auth is enabled")
	}
	if cfg.Server.Auth.TokenTTL <= 0 {
		return errors.New(errors.KindConfig, op, "server.auth.token_ttl must be positive")
	}
	return nil
}

