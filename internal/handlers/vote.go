package handlers

import (
	"folio/internal/apperr"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/services"
	"folio/internal/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type VoteHandler struct {
	votes *services.VoteService
	log   logrus.FieldLogger
}

func NewVoteHandler(votes *services.VoteService, log logrus.FieldLogger) *VoteHandler {
	return &VoteHandler{votes: votes, log: log}
}

var voteStatus = map[apperr.Code]int{
	apperr.CodeInvalid:      http.StatusBadRequest,
	apperr.CodeUnauthorized: http.StatusUnauthorized,
	apperr.CodeForbidden:    http.StatusForbidden,
	apperr.CodeNotFound:     http.StatusNotFound,
	apperr.CodeConflict:     http.StatusConflict,
}

// Vote 切换赞/踩，返回最新计数
func (h *VoteHandler) Vote(c *gin.Context) {
	projectID, ok := utils.ParseID(c.Param("project"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	res, err := h.votes.Toggle(c.Request.Context(), middleware.CurrentActor(c), projectID, models.VoteType(c.PostForm("vote_type")))
	if err != nil {
		status, known := voteStatus[apperr.CodeOf(err)]
		if !known {
			utils.LogError(h.log, "vote failed", err, logrus.Fields{"project_id": projectID})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.JSON(status, gin.H{"error": msg(err)})
		return
	}
	c.JSON(http.StatusOK, res)
}

// InvalidMethod 只接受 POST
func (h *VoteHandler) InvalidMethod(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}
