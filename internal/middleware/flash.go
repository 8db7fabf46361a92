package middleware

import (
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

var flashLevels = []string{FlashSuccess, FlashInfo, FlashError}

// Flash 一次性提示
type Flash struct {
	Level   string
	Message string
}

// AddFlash 写入下一次页面展示的提示
func AddFlash(c *gin.Context, level, message string) {
	session := sessions.Default(c)
	session.AddFlash(message, level)
	_ = session.Save()
}

// PopFlashes 读取并清空所有提示
func PopFlashes(c *gin.Context) []Flash {
	session := sessions.Default(c)
	var out []Flash
	for _, level := range flashLevels {
		for _, v := range session.Flashes(level) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Level: level, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		_ = session.Save()
	}
	return out
}

// BackURL 同站 Referer 的路径，否则 def
func BackURL(c *gin.Context, def string) string {
	ref := c.Request.Referer()
	if ref == "" {
		return def
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Request.Host) {
		return def
	}
	p := u.EscapedPath()
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return def
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
