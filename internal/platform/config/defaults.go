package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:              "0.0.0.0",
			Port:            8090,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			Auth: AuthConfig{
				Enabled:   false,
				JWTSecret: "change-me",
				TokenTTL:  8 * time.Hour,
			},
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "voiceprint.log",
		},
		Database: DatabaseConfig{
			DSN: "data/voiceprint.db",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Redis: RedisStoreConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "voiceprint:template:",
			},
		},
		Voice: VoiceConfig{
			MatchThreshold:   0.75,
			MinAudioBytes:    1024,
			IdentifyWorkers:  8,
			OperationTimeout: 10 * time.Second,
			Passphrases: []string{
				"my voice is my password",
				"secure access granted",
				"voice authentication",
			},
			SecurityRecentWindow: 30 * 24 * time.Hour,
			MaxUploadBytes:       10 << 20,
		},
		Command: CommandConfig{
			ExecutionThreshold: 0.7,
		},
		Transcriber: TranscriberConfig{
			Type:     "static",
			Model:    "whisper-1",
			Language: "en",
		},
	}
}
