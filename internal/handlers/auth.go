package handlers

import (
	"folio/internal/apperr"
	"folio/internal/middleware"
	"folio/internal/services"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	accounts *services.AccountService
	log      logrus.FieldLogger
}

func NewAuthHandler(accounts *services.AccountService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

func login(c *gin.Context, userID uint) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(middleware.SessionUserKey, userID)
	return session.Save()
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	Render(c, http.StatusOK, "auth/register.html", gin.H{"Form": services.RegisterInput{}})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	obj := gin.H{"Form": &in}
	if err := bind(c, &in); err != nil {
		failForm(c, h.log, err, "auth/register.html", obj)
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), in)
	if err != nil {
		// 不回显密码
		in.Password, in.Password2 = "", ""
		failForm(c, h.log, err, "auth/register.html", obj)
		return
	}
	if err := login(c, user.ID); err != nil {
		fail(c, h.log, apperr.Wrap(err, apperr.CodeInternal, "could not start session"))
		return
	}
	h.log.WithField("user_id", user.ID).Info("user registered")
	redirect(c, middleware.FlashSuccess, "Account created successfully.", "/")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	if middleware.CurrentActor(c).Authenticated {
		c.Redirect(http.StatusFound, "/")
		return
	}
	Render(c, http.StatusOK, "auth/login.html", gin.H{"Next": c.Query("next")})
}

func (h *AuthHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	next := c.PostForm("next")

	user, err := h.accounts.Authenticate(c.Request.Context(), username, c.PostForm("password"))
	if err != nil {
		if apperr.IsCode(err, apperr.CodeUnauthorized) {
			Render(c, http.StatusBadRequest, "auth/login.html", gin.H{
				"Error":    msg(err),
				"Username": username,
				"Next":     next,
			})
			return
		}
		fail(c, h.log, err)
		return
	}
	if err := login(c, user.ID); err != nil {
		fail(c, h.log, apperr.Wrap(err, apperr.CodeInternal, "could not start session"))
		return
	}
	redirect(c, middleware.FlashSuccess, "Welcome, "+user.Username+"!", safeNext(next))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	redirect(c, middleware.FlashSuccess, "You have been logged out.", "/")
}
