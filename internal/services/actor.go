package services

import (
	"folio/internal/apperr"
	"folio/internal/models"
)

// Actor 当前请求的操作者，由中间件根据 session 构造后显式传入每个 service 方法
type Actor struct {
	UserID        uint
	Username      string
	Authenticated bool
	Superuser     bool
}

// Anonymous 未登录访客
func Anonymous() Actor { return Actor{} }

// ActorFor 由已加载的用户构造
func ActorFor(u *models.User) Actor {
	if u == nil {
		return Anonymous()
	}
	return Actor{UserID: u.ID, Username: u.Username, Authenticated: true, Superuser: u.IsSuperuser}
}

func (a Actor) requireAuth() error {
	if !a.Authenticated || a.UserID == 0 {
		return apperr.New(apperr.CodeUnauthorized, "please log in to continue")
	}
	return nil
}

func (a Actor) requireSuperuser() error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if !a.Superuser {
		return apperr.New(apperr.CodeForbidden, "you do not have permission to perform this action")
	}
	return nil
}
