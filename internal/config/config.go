package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort          = "8080"
	defaultChatKitURL    = "https://api.openai.com/v1"
	defaultBetaHeader    = "chatkit_beta=v1"
	defaultTimeout       = 10 * time.Second
	defaultMaxBodyBytes  = 2 << 20
	defaultAllowedOrigin = "*"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	ChatKit ChatKitConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
//
// ChatKit 的密钥不在这里加载，每个请求通过 EnvSecrets 单独读取。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chatKit, err := loadChatKitConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, ChatKit: chatKit, Log: loadLogConfig()}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = defaultPort
	}

	origins := parseListEnv("CORS_ALLOWED_ORIGINS")
	if len(origins) == 0 {
		origins = []string{defaultAllowedOrigin}
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// ChatKitConfig 描述上游会话接口的非敏感配置。
type ChatKitConfig struct {
	BaseURL      string
	BetaHeader   string
	Timeout      time.Duration
	MaxBodyBytes int64
}

func loadChatKitConfig() (ChatKitConfig, error) {
	timeout := defaultTimeout
	seconds, err := parseOptionalIntEnv("CHATKIT_TIMEOUT_SECONDS")
	if err != nil {
		return ChatKitConfig{}, err
	}
	if seconds != nil {
		if *seconds < 1 {
			return ChatKitConfig{}, fmt.Errorf("invalid CHATKIT_TIMEOUT_SECONDS value %d: must be at least 1", *seconds)
		}
		timeout = time.Duration(*seconds) * time.Second
	}

	maxBody := int64(defaultMaxBodyBytes)
	limit, err := parseOptionalIntEnv("CHATKIT_MAX_BODY_BYTES")
	if err != nil {
		return ChatKitConfig{}, err
	}
	if limit != nil && *limit > 0 {
		maxBody = int64(*limit)
	}

	return ChatKitConfig{
		BaseURL:      strings.TrimRight(getEnvOrDefault("CHATKIT_BASE_URL", defaultChatKitURL), "/"),
		BetaHeader:   getEnvOrDefault("CHATKIT_BETA_HEADER", defaultBetaHeader),
		Timeout:      timeout,
		MaxBodyBytes: maxBody,
	}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
