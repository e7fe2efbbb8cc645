package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Store      StoreConfig      `mapstructure:"store"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	GrabCut    GrabCutConfig    `mapstructure:"grabcut"`
	Preview    PreviewConfig    `mapstructure:"preview"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StoreConfig 项目历史存储，backend 为 memory 或 redis
type StoreConfig struct {
	Backend      string `mapstructure:"backend"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// ExtractionConfig 抠图服务，provider 为 gemini 或 grabcut
type ExtractionConfig struct {
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type GrabCutConfig struct {
	Iterations        int  `mapstructure:"iterations"`
	BorderSize        int  `mapstructure:"border_size"`
	MaxConcurrent     int  `mapstructure:"max_concurrent"`
	QueueTimeout      int  `mapstructure:"queue_timeout"`
	MaxForegroundOnly bool `mapstructure:"max_foreground_only"`
}

type PreviewConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)
	bindEnv(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		// 如果加载失败，返回默认配置
		return getDefaultConfig()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := getDefaultConfig()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.history_limit", d.Store.HistoryLimit)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.allowed_types", d.Upload.AllowedTypes)

	v.SetDefault("extraction.provider", d.Extraction.Provider)
	v.SetDefault("extraction.model", d.Extraction.Model)
	v.SetDefault("extraction.timeout", d.Extraction.Timeout)

	v.SetDefault("grabcut.iterations", d.GrabCut.Iterations)
	v.SetDefault("grabcut.border_size", d.GrabCut.BorderSize)
	v.SetDefault("grabcut.max_concurrent", d.GrabCut.MaxConcurrent)
	v.SetDefault("grabcut.queue_timeout", d.GrabCut.QueueTimeout)
	v.SetDefault("grabcut.max_foreground_only", d.GrabCut.MaxForegroundOnly)

	v.SetDefault("preview.max_size", d.Preview.MaxSize)
}

// bindEnv API key 只从环境变量读取，避免写进配置文件
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("extraction.api_key", "GEMINI_API_KEY", "API_KEY")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      0,
		},
		Store: StoreConfig{
			Backend:      "memory",
			HistoryLimit: 15,
		},
		Upload: UploadConfig{
			MaxSize: 20 * 1024 * 1024,
			AllowedTypes: []string{
				"image/jpeg", "image/png", "image/jpg", "image/webp", "image/gif", "image/bmp", "image/tiff",
			},
		},
		Extraction: ExtractionConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash-image",
			Timeout:  90 * time.Second,
		},
		GrabCut: GrabCutConfig{
			Iterations:    5,
			BorderSize:    10,
			MaxConcurrent: 3,
			QueueTimeout:  30,
		},
		Preview: PreviewConfig{
			MaxSize: 1200,
		},
	}
}
