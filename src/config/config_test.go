package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "data": {"dir": "./testdata", "file": "posts.csv"},
  "server": {"listen": ":9090"},
  "email": {"enabled": true, "server": "imap.example.com:993", "check_interval": "10m"},
  "log_name": "dashboard.log",
  "log_max_size": 1048576
}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatalf("写入测试配置失败: %v", err)
	}

	cfg, err := LoadConfig(dir, "config.json")
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Server.Listen != ":9090" {
		t.Errorf("listen = %q, want :9090", cfg.Server.Listen)
	}
	if time.Duration(cfg.Email.CheckInterval) != 10*time.Minute {
		t.Errorf("check_interval = %v, want 10m", time.Duration(cfg.Email.CheckInterval))
	}
	if cfg.DataPath() != filepath.Join("./testdata", "posts.csv") {
		t.Errorf("DataPath() = %q", cfg.DataPath())
	}

	// 单例：再次加载返回同一实例
	cfg2, err := LoadConfig(dir, "other.json")
	if err != nil {
		t.Fatalf("二次加载出错: %v", err)
	}
	if cfg2 != cfg {
		t.Error("LoadConfig应返回同一实例")
	}
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"90s"`), &d); err != nil {
		t.Fatalf("反序列化失败: %v", err)
	}
	if time.Duration(d) != 90*time.Second {
		t.Errorf("d = %v, want 90s", time.Duration(d))
	}

	out, err := json.Marshal(Duration(2 * time.Minute))
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	if string(out) != `"2m0s"` {
		t.Errorf("序列化结果 = %s, want \"2m0s\"", out)
	}

	if err := json.Unmarshal([]byte(`"bogus"`), &d); err == nil {
		t.Error("非法的duration应当报错")
	}
}
