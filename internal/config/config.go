package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultAutoSaveInterval = 30 * time.Second

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	AutoSaveInterval  time.Duration
	LogLevel          string
	LogFormat         string
	LogFile           string
	SuperRootUserName string
	SuperRootPassword string
}

// LoadEnvFile 读取工作目录下可选的 .env 文件，文件不存在时静默跳过。
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	existing := make([]string, 0, len(paths))
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	// godotenv.Load 不会覆盖已经存在的环境变量
	return godotenv.Load(existing...)
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envOrDefault("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      envOrDefault("DATABASE_PATH", "agencyops.db"),
		SessionSecret:     envOrDefault("SESSION_SECRET", "agencyops-dev-secret"),
		GinMode:           envOrDefault("GIN_MODE", "release"),
		AutoSaveInterval:  parseInterval(os.Getenv("AUTOSAVE_INTERVAL"), defaultAutoSaveInterval),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("LOG_FORMAT", "text"),
		LogFile:           strings.TrimSpace(os.Getenv("LOG_FILE")),
		SuperRootUserName: strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME")),
		SuperRootPassword: strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),
	}
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

// parseInterval 支持 "30s"/"1m" 等 Duration 写法，纯数字按秒处理；小于 1 秒回退默认值。
func parseInterval(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		var seconds int
		if _, scanErr := fmt.Sscanf(raw, "%d", &seconds); scanErr != nil {
			return fallback
		}
		d = time.Duration(seconds) * time.Second
	}

	if d < time.Second {
		return fallback
	}
	return d
}
