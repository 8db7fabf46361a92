package handlers

import (
	"folio/internal/apperr"
	"folio/internal/middleware"
	"folio/internal/utils"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}
	obj["Actor"] = middleware.CurrentActor(c)
	obj["Flashes"] = middleware.PopFlashes(c)
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// RenderError 错误页
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message, "Status": code})
}

// redirect 带提示重定向
func redirect(c *gin.Context, level, message, to string) {
	if message != "" {
		middleware.AddFlash(c, level, message)
	}
	c.Redirect(http.StatusFound, to)
}

// safeNext 只接受站内相对路径
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" {
		return "/"
	}
	return next
}

func msg(err error) string {
	if ae, ok := apperr.As(err); ok {
		return capitalize(ae.Message)
	}
	return "Something went wrong. Please try again."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// fail 按错误码响应页面请求
func fail(c *gin.Context, log logrus.FieldLogger, err error) {
	switch apperr.CodeOf(err) {
	case apperr.CodeUnauthorized:
		redirect(c, middleware.FlashInfo, "Please log in to continue.", middleware.LoginURL(c.Request.URL.RequestURI()))
	case apperr.CodeForbidden:
		redirect(c, middleware.FlashError, "You do not have permission to perform this action.", "/")
	case apperr.CodeNotFound:
		RenderError(c, http.StatusNotFound, msg(err))
	case apperr.CodeInvalid:
		RenderError(c, http.StatusBadRequest, msg(err))
	case apperr.CodeConflict:
		RenderError(c, http.StatusConflict, msg(err))
	default:
		utils.LogError(log, "request failed", err, logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey),
			"path":       c.Request.URL.Path,
		})
		middleware.AddFlash(c, middleware.FlashError, msg(err))
		RenderError(c, http.StatusInternalServerError, msg(err))
	}
}

// failForm 校验和冲突错误回填表单，其余按 fail 处理
func failForm(c *gin.Context, log logrus.FieldLogger, err error, view string, obj gin.H) {
	ae, ok := apperr.As(err)
	if !ok || (ae.Code != apperr.CodeInvalid && ae.Code != apperr.CodeConflict) {
		fail(c, log, err)
		return
	}
	if obj == nil {
		obj = gin.H{}
	}
	obj["Error"] = capitalize(ae.Message)
	obj["Errors"] = ae.Fields
	status := http.StatusBadRequest
	if ae.Code == apperr.CodeConflict {
		status = http.StatusConflict
	}
	Render(c, status, view, obj)
}

// idParam 解析数字路由参数，非法时直接 404
func idParam(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		RenderError(c, http.StatusNotFound, "Page not found")
	}
	return id, ok
}

