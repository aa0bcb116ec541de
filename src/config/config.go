package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config 应用配置结构
type Config struct {
	Data struct {
		Dir       string `json:"dir"`        // 数据目录
		File      string `json:"file"`       // posts导出文件名(csv或xlsx)
		SheetName string `json:"sheet_name"` // xlsx导出时的工作表名
	} `json:"data"`

	Server struct {
		Listen string `json:"listen"` // dashboard监听地址
	} `json:"server"`

	Email struct {
		Enabled       bool     `json:"enabled"`
		Server        string   `json:"server"`         // IMAP服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码/授权码
		TargetSubject string   `json:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	Render struct {
		Enabled  bool   `json:"enabled"`
		Endpoint string `json:"endpoint"` // 图表渲染服务地址
		Token    string `json:"token"`    // 渲染服务访问令牌
	} `json:"render"`

	LogName    string `json:"log_name"`
	LogMaxSize int64  `json:"log_max_size"` // 日志轮转阈值(字节)
}

var (
	once     sync.Once
	instance *Config
)

// LoadConfig 加载配置(进程内只加载一次)
func LoadConfig(jsonFolder, jsonFile string) (*Config, error) {
	var err error
	once.Do(func() {
		instance, err = loadConfig(filepath.Join(jsonFolder, jsonFile))
	})
	if instance == nil && err == nil {
		err = fmt.Errorf("配置未加载成功")
	}
	return instance, err
}

func loadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Data.Dir == "" {
		c.Data.Dir = "./data"
	}
	if c.Data.File == "" {
		c.Data.File = "posts.csv"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.Email.CheckInterval == 0 {
		c.Email.CheckInterval = Duration(5 * time.Minute)
	}
}

// applyEnv 敏感信息优先从环境变量读取(.env由godotenv加载)
func (c *Config) applyEnv() {
	if v := os.Getenv("POSTS_MAIL_SERVER"); v != "" {
		c.Email.Server = v
	}
	if v := os.Getenv("POSTS_MAIL_USERNAME"); v != "" {
		c.Email.Username = v
	}
	if v := os.Getenv("POSTS_MAIL_PASSWORD"); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv("POSTS_RENDER_TOKEN"); v != "" {
		c.Render.Token = v
	}
}

// DataPath 数据文件的完整路径
func (c *Config) DataPath() string {
	return filepath.Join(c.Data.Dir, c.Data.File)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
