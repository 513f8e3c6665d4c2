package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfgPath := testConfigPath(t, "valid.toml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if !filepath.IsAbs(cfg.Global.StoragePath) {
		t.Fatalf("StoragePath 应转换为绝对路径: %s", cfg.Global.StoragePath)
	}
	if cfg.Global.ListenPort != 8000 {
		t.Fatalf("ListenPort 应当被解析")
	}
	if cfg.Global.JSONRequestLimit != 1<<20 {
		t.Fatalf("JSONRequestLimit 解析错误: %d", cfg.Global.JSONRequestLimit)
	}
	if cfg.Global.ReadTimeout.DurationValue() != 15*time.Second {
		t.Fatalf("ReadTimeout 解析错误: %s", cfg.Global.ReadTimeout.DurationValue())
	}
	if cfg.Global.WriteTimeout.DurationValue() != 30*time.Second {
		t.Fatalf("WriteTimeout 应使用默认值")
	}
	if !cfg.Global.CORSEnabled() {
		t.Fatalf("配置了 AllowOrigins 时应启用 CORS")
	}
	if !filepath.IsAbs(cfg.Global.StaticPath) || filepath.Base(cfg.Global.StaticPath) != "static" {
		t.Fatalf("StaticPath 默认应为绝对化的 ./static，得到 %s", cfg.Global.StaticPath)
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestValidateRequiresPositiveRequestLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Global.JSONRequestLimit = -1
	err := cfg.Validate()
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("应返回 FieldError，得到 %v", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("FieldError 应匹配 ErrInvalid")
	}
	if fieldErr.Field != "Global.JSONRequestLimit" {
		t.Fatalf("字段路径错误: %s", fieldErr.Field)
	}
}

func TestValidateOrigins(t *testing.T) {
	testCases := []struct {
		name      string
		origin    string
		shouldErr bool
	}{
		{"wildcard", "*", false},
		{"http origin", "http://localhost:3000", false},
		{"https origin", "https://blobs.example.com", false},
		{"missing scheme", "localhost:3000", true},
		{"with path", "https://blobs.example.com/app", true},
		{"ftp", "ftp://files.example.com", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Global.AllowOrigins = []string{tc.origin}
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for origin %q", tc.origin)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for origin %q: %v", tc.origin, err)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:       8000,
			StoragePath:      "./data",
			JSONRequestLimit: 1024,
			ReadTimeout:      Duration(time.Second),
			WriteTimeout:     Duration(time.Second),
			ShutdownTimeout:  Duration(time.Second),
		},
	}
}
