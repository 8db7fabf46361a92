package handlers

import (
	"folio/internal/apperr"
	"folio/internal/middleware"
	"folio/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CommentHandler struct {
	comments *services.CommentService
	log      logrus.FieldLogger
}

func NewCommentHandler(comments *services.CommentService, log logrus.FieldLogger) *CommentHandler {
	return &CommentHandler{comments: comments, log: log}
}

func projectURL(slug string) string { return "/projects/" + slug }

func (h *CommentHandler) Create(c *gin.Context) {
	projectID, ok := idParam(c, "project")
	if !ok {
		return
	}
	comment, err := h.comments.Create(c.Request.Context(), middleware.CurrentActor(c), projectID, c.PostForm("content"))
	if err != nil {
		if apperr.IsCode(err, apperr.CodeInvalid) {
			redirect(c, middleware.FlashError, "Could not add the comment. "+fieldMessage(err, "content"), middleware.BackURL(c, "/projects"))
			return
		}
		fail(c, h.log, err)
		return
	}
	redirect(c, middleware.FlashSuccess, "Comment added successfully.", projectURL(comment.Project.Slug)+"#comments")
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	comment, err := h.comments.Delete(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	redirect(c, middleware.FlashSuccess, "Comment deleted.", projectURL(comment.Project.Slug)+"#comments")
}

// Approve 切换可见状态，approved=false 隐藏
func (h *CommentHandler) Approve(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	approved := c.DefaultPostForm("approved", "true") != "false"
	comment, err := h.comments.SetApproved(c.Request.Context(), middleware.CurrentActor(c), id, approved)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	text := "Comment approved."
	if !approved {
		text = "Comment hidden."
	}
	redirect(c, middleware.FlashSuccess, text, projectURL(comment.Project.Slug)+"#comments")
}

func fieldMessage(err error, field string) string {
	if ae, ok := apperr.As(err); ok {
		if m, ok := ae.Fields[field]; ok {
			return m
		}
		return capitalize(ae.Message)
	}
	return ""
}
