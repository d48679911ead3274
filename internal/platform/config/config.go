package config

import "time"

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Database      DatabaseConfig      `yaml:"database"`
	Store         StoreConfig         `yaml:"store"`
	Voice         VoiceConfig         `yaml:"voice"`
	Command       CommandConfig       `yaml:"command"`
	Transcriber   TranscriberConfig   `yaml:"transcriber"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	IP              string        `yaml:"ip"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	Auth            AuthConfig    `yaml:"auth"`
}

// AuthConfig 控制语音令牌的签发和校验
type AuthConfig struct {
	Enabled   bool          `yaml:"enabled"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// StoreConfig 选择声纹模板存储驱动
type StoreConfig struct {
	Driver string           `yaml:"driver"`
	Redis  RedisStoreConfig `yaml:"redis,omitempty"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type VoiceConfig struct {
	MatchThreshold       float64       `yaml:"match_threshold"`
	MinAudioBytes        int           `yaml:"min_audio_bytes"`
	IdentifyWorkers      int           `yaml:"identify_workers"`
	OperationTimeout     time.Duration `yaml:"operation_timeout"`
	Passphrases          []string      `yaml:"passphrases"`
	SecurityRecentWindow time.Duration `yaml:"security_recent_window"`
	MaxUploadBytes       int64         `yaml:"max_upload_bytes"`
}

type CommandConfig struct {
	ExecutionThreshold float64 `yaml:"execution_threshold"`
}

// TranscriberConfig 语音指令转写后端: static 或 openai
type TranscriberConfig struct {
	Type       string `yaml:"type"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Language   string `yaml:"language"`
	StaticText string `yaml:"static_text"`
}

type ObservabilityConfig struct {
	Enabled bool `yaml:"enabled"`
}
