// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 存储应用配置
type Config struct {
	Port      string
	DebugMode bool
	LogDir    string

	// 数据存储目录
	MemoryDir      string
	CommunityDir   string
	InteractionDir string

	// 角色配置文件
	PersonasFile string

	// 记忆与作息参数
	MemoryMaxLength    int // 近期记忆序列化长度预算（字符数）
	DefaultSleepStart  int
	DefaultSleepEnd    int
	NightOwlSleepStart int
	NightOwlSleepEnd   int
	ActiveHoursMin     int
	ActiveHoursMax     int

	// 调度器轮询间隔（真实时间）
	TickInterval time.Duration

	// LLM相关配置
	LLMProvider string
	LLMConfig   map[string]string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:      getEnv("PORT", "8080"),
		DebugMode: getEnvBool("DEBUG_MODE", true),
		LogDir:    getEnvPath("LOG_DIR", "logs"),

		MemoryDir:      getEnvPath("MEMORY_STORAGE_DIR", "memories"),
		CommunityDir:   getEnvPath("COMMUNITY_STORAGE_DIR", "community_data"),
		InteractionDir: getEnvPath("INTERACTION_STORAGE_DIR", "interaction_data"),

		PersonasFile: getEnv("PERSONAS_FILE", "personas.yaml"),

		MemoryMaxLength:    getEnvInt("MEMORY_MAX_LENGTH", 10000),
		DefaultSleepStart:  getEnvInt("DEFAULT_SLEEP_START", 1),
		DefaultSleepEnd:    getEnvInt("DEFAULT_SLEEP_END", 7),
		NightOwlSleepStart: getEnvInt("NIGHT_OWL_SLEEP_START", 2),
		NightOwlSleepEnd:   getEnvInt("NIGHT_OWL_SLEEP_END", 9),
		ActiveHoursMin:     getEnvInt("ACTIVE_HOURS_MIN", 3),
		ActiveHoursMax:     getEnvInt("ACTIVE_HOURS_MAX", 8),

		TickInterval: getEnvDuration("TICK_INTERVAL", time.Minute),

		LLMProvider: getEnv("LLM_PROVIDER", "glm"),
		LLMConfig: map[string]string{
			"api_key":       getEnv("ZHIPU_API_KEY", ""),
			"default_model": getEnv("LLM_MODEL", "glm-4"),
		},
	}

	if config.LLMConfig["api_key"] == "" {
		// 只记录警告，不返回错误：没有密钥时生成调用会全部静默失败
		log.Println("警告: 未设置ZHIPU_API_KEY，LLM生成功能将不可用")
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate 检查小时类配置的取值范围
func (c *Config) validate() error {
	for name, v := range map[string]int{
		"DEFAULT_SLEEP_START":   c.DefaultSleepStart,
		"DEFAULT_SLEEP_END":     c.DefaultSleepEnd,
		"NIGHT_OWL_SLEEP_START": c.NightOwlSleepStart,
		"NIGHT_OWL_SLEEP_END":   c.NightOwlSleepEnd,
	} {
		if v < 0 || v > 23 {
			return fmt.Errorf("配置%s超出小时范围[0,23]: %d", name, v)
		}
	}

	if c.ActiveHoursMin < 0 || c.ActiveHoursMax < c.ActiveHoursMin {
		return fmt.Errorf("活跃小时数范围无效: [%d,%d]", c.ActiveHoursMin, c.ActiveHoursMax)
	}

	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
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

// getEnvInt 获取整数类型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("警告: 环境变量%s不是有效整数(%q)，使用默认值%d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvDuration 获取时长类型环境变量（如"30s"、"1m"）
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("警告: 环境变量%s不是有效时长(%q)，使用默认值%v", key, value, defaultValue)
		return defaultValue
	}
	return d
}
