package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// KeyFunc builds a rate-limit key from the request
type KeyFunc func(c *gin.Context) string

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyByActor 登录用户按用户 ID，匿名按 IP，再区分路由
func KeyByActor() KeyFunc {
	return func(c *gin.Context) string {
		if a := CurrentActor(c); a.Authenticated {
			return "rl:" + normalizePath(c) + ":user:" + strconv.FormatUint(uint64(a.UserID), 10)
		}
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		return "rl:" + normalizePath(c) + ":ip:" + ip
	}
}

// 原子 INCR，首次设置过期时间
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateLimit 固定窗口限流。rdb 为 nil 时不限流，redis 出错时放行
func RateLimit(rdb *redis.Client, max int, window time.Duration, keyFn KeyFunc) gin.HandlerFunc {
	if rdb == nil || max <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := keyFn(c)
		count, err := incrExpireScript.Run(ctx, rdb, []string{key}, window.Milliseconds()).Int()
		if err != nil {
			c.Next()
			return
		}

		resetSec := 0
		if ttl, err := rdb.PTTL(ctx, key).Result(); err == nil && ttl > 0 {
			resetSec = int((ttl + time.Second - 1) / time.Second)
		}
		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > max {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			if WantsJSON(c) {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
				return
			}
			AddFlash(c, FlashError, "You are doing that too often. Please wait a moment.")
			c.Redirect(http.StatusFound, BackURL(c, "/"))
			c.Abort()
			return
		}
		c.Next()
	}
}
