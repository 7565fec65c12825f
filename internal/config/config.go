package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	WS     WSConfig     `mapstructure:"ws"`
	NATS   NATSConfig   `mapstructure:"nats"`
	Auth   AuthConfig   `mapstructure:"auth"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig REST 服务端配置
type ServerConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	HTTP3    bool          `mapstructure:"http3"` // 使用 HTTP/3 访问 REST 接口
	PageSize int           `mapstructure:"page_size"`
}

// WSConfig STOMP/WebSocket 实时通道配置
type WSConfig struct {
	URL            string        `mapstructure:"url"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
}

// NATSConfig NATS 桥接通道配置（替代 WebSocket 直连后端消息总线）
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
}

// AuthConfig 身份系统配置（Keycloak 风格的 token 端点）
type AuthConfig struct {
	TokenURL     string `mapstructure:"token_url"`
	ClientID     string `mapstructure:"client_id"`
	AccessToken  string `mapstructure:"access_token"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// Load 从指定路径加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = 10 * time.Second
	}
	if cfg.Server.PageSize <= 0 {
		cfg.Server.PageSize = 50
	}
	if cfg.WS.BackoffInitial <= 0 {
		cfg.WS.BackoffInitial = time.Second
	}
	if cfg.WS.BackoffMax <= 0 {
		cfg.WS.BackoffMax = 30 * time.Second
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "im.client.notify"
	}
}
