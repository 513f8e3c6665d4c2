package config

import (
	"errors"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if strings.TrimSpace(g.StoragePath) == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if g.JSONRequestLimit <= 0 {
		return newFieldError("Global.JSONRequestLimit", "必须大于 0")
	}
	if g.ReadTimeout.DurationValue() < 0 {
		return newFieldError("Global.ReadTimeout", "不能为负数")
	}
	if g.WriteTimeout.DurationValue() < 0 {
		return newFieldError("Global.WriteTimeout", "不能为负数")
	}
	if g.ShutdownTimeout.DurationValue() < 0 {
		return newFieldError("Global.ShutdownTimeout", "不能为负数")
	}
	for i, origin := range g.AllowOrigins {
		if err := validateOrigin(origin); err != nil {
			return newFieldError(indexedField("Global.AllowOrigins", i), err.Error())
		}
	}

	return nil
}

func validateOrigin(raw string) error {
	if raw == "*" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("仅支持 http/https 来源")
	}
	if parsed.Host == "" {
		return errors.New("来源缺少 Host")
	}
	if parsed.Path != "" && parsed.Path != "/" {
		return errors.New("来源不允许包含路径")
	}
	return nil
}
