package server

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config 服务端运行配置（TOML 文件，缺省值兜底）
type Config struct {
	Addr     string `toml:"addr"`      // 监听地址，如 :8080
	WebDir   string `toml:"web_dir"`   // 前端静态资源目录
	LogFile  string `toml:"log_file"`  // 日志文件路径（lumberjack 滚动）
	LogLevel string `toml:"log_level"` // debug / info / warn / error

	ReadLimitBytes int `toml:"read_limit_bytes"` // 单条入站消息上限
	SendQueueSize  int `toml:"send_queue_size"`  // 每连接发送队列容量

	ReadTimeoutSec  int `toml:"read_timeout_sec"`  // 读超时（pong 续期）
	WriteTimeoutSec int `toml:"write_timeout_sec"` // 单次写超时
	PingIntervalSec int `toml:"ping_interval_sec"` // 服务端主动 ping 间隔

	StatsIntervalSec int `toml:"stats_interval_sec"` // 运行统计日志间隔，0 关闭
}

// DefaultConfig 不依赖配置文件即可试跑的缺省值
func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		WebDir:           "web",
		LogFile:          "app.log",
		LogLevel:         "debug",
		ReadLimitBytes:   1 << 20, // 1MB
		SendQueueSize:    64,
		ReadTimeoutSec:   60,
		WriteTimeoutSec:  5,
		PingIntervalSec:  25,
		StatsIntervalSec: 30,
	}
}

// LoadConfig 读取 TOML 配置，path 为空时直接返回缺省值；
// 文件里省略的字段保留缺省
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("config: send_queue_size must be positive")
	}
	if c.ReadLimitBytes <= 0 {
		return fmt.Errorf("config: read_limit_bytes must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// 超时类字段的 Duration 便捷访问
func (c Config) ReadTimeout() time.Duration  { return time.Duration(c.ReadTimeoutSec) * time.Second }
func (c Config) WriteTimeout() time.Duration { return time.Duration(c.WriteTimeoutSec) * time.Second }
func (c Config) PingInterval() time.Duration { return time.Duration(c.PingIntervalSec) * time.Second }
func (c Config) StatsInterval() time.Duration {
	return time.Duration(c.StatsIntervalSec) * time.Second
}
