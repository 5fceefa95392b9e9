// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// 存档后端
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config 存储应用配置
type Config struct {
	Port      string
	DataDir   string
	LogDir    string
	LogLevel  string
	DebugMode bool

	// LLM相关配置
	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string

	// 存档配置
	SaveBackend string
	SQLitePath  string
	PostgresDSN string
	RedisAddr   string

	// 情感引擎配置
	AffectionConfigPath string
	LexiconPath         string
	RandomSeed          int64
}

// Load 从 .env 与环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:      getEnv("PORT", "8080"),
		DataDir:   getEnvPath("DATA_DIR", "data"),
		LogDir:    getEnvPath("LOG_DIR", "logs"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		DebugMode: getEnvBool("DEBUG_MODE", false),

		LLMProvider: getEnv("LLM_PROVIDER", "openai"),
		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMBaseURL:  getEnv("LLM_BASE_URL", ""),
		LLMModel:    getEnv("LLM_MODEL", ""),

		SaveBackend: strings.ToLower(getEnv("SAVE_BACKEND", BackendFile)),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),

		AffectionConfigPath: getEnv("AFFECTION_CONFIG", ""),
		LexiconPath:         getEnv("LEXICON_PATH", ""),
		RandomSeed:          getEnvInt64("RANDOM_SEED", 0),
	}
	config.SQLitePath = getEnv("SQLITE_PATH", config.DataDir+"/saves.db")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.LLMAPIKey == "" {
		// 只记录警告，不返回错误
		log.Println("警告: 未设置LLM_API_KEY，角色回复将使用内置备用台词")
	}

	return config, nil
}

// Validate 检查存档后端及其必需参数
func (c *Config) Validate() error {
	switch c.SaveBackend {
	case BackendFile, BackendSQLite, BackendRedis:
		return nil
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("SAVE_BACKEND=postgres 需要设置 POSTGRES_DSN")
		}
		return nil
	default:
		return fmt.Errorf("未知的存档后端: %s", c.SaveBackend)
	}
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，并确保目录存在
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		err = os.MkdirAll(path, 0755)
		if err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("警告: %s 不是有效整数，使用默认值 %d", key, defaultValue)
		return defaultValue
	}
	return n
}
