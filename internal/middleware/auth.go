package middleware

import (
	"folio/internal/models"
	"folio/internal/services"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	CurrentUserKey = "user"
	ActorKey       = "actor"
	SessionUserKey = "user_id"
)

// LoadUser 从 session 读取用户并构造 Actor 写入上下文，用户已不存在时清除 session
func LoadUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := services.Anonymous()
		session := sessions.Default(c)
		if userID := session.Get(SessionUserKey); userID != nil {
			var user models.User
			if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err == nil {
				c.Set(CurrentUserKey, &user)
				actor = services.ActorFor(&user)
			} else {
				session.Delete(SessionUserKey)
				_ = session.Save()
			}
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// CurrentActor 当前请求的 Actor，未经过 LoadUser 时为匿名
func CurrentActor(c *gin.Context) services.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if a, ok := v.(services.Actor); ok {
			return a
		}
	}
	return services.Anonymous()
}

// CurrentUser 当前登录用户，未登录返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CurrentUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// WantsJSON 脚本请求返回 JSON，其余重定向
func WantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

// LoginURL 登录页，带上回跳地址
func LoginURL(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentActor(c).Authenticated {
			c.Next()
			return
		}
		if WantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		AddFlash(c, FlashInfo, "Please log in to continue.")
		c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// SuperuserRequired 仅超级用户,其他人带提示重定向
func SuperuserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		switch {
		case actor.Superuser:
			c.Next()
			return
		case WantsJSON(c) && !actor.Authenticated:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		case WantsJSON(c):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		case !actor.Authenticated:
			AddFlash(c, FlashInfo, "Please log in to continue.")
			c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
		default:
			AddFlash(c, FlashError, "You do not have permission to perform this action.")
			c.Redirect(http.StatusFound, "/")
		}
		c.Abort()
	}
}
