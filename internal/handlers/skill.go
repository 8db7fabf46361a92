package handlers

import (
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SkillHandler struct {
	skills *services.SkillService
	log    logrus.FieldLogger
}

func NewSkillHandler(skills *services.SkillService, log logrus.FieldLogger) *SkillHandler {
	return &SkillHandler{skills: skills, log: log}
}

// Manage 技能目录
func (h *SkillHandler) Manage(c *gin.Context) {
	h.renderCatalog(c, nil, gin.H{"Form": services.SkillInput{Category: string(models.SkillOther), ProficiencyLevel: 3}})
}

func (h *SkillHandler) renderCatalog(c *gin.Context, err error, obj gin.H) {
	skills, lerr := h.skills.List(c.Request.Context())
	if lerr != nil {
		fail(c, h.log, lerr)
		return
	}
	obj["Skills"] = skills
	obj["SkillCategories"] = models.SkillCategories
	if err != nil {
		failForm(c, h.log, err, "skills/manage.html", obj)
		return
	}
	Render(c, http.StatusOK, "skills/manage.html", obj)
}

func (h *SkillHandler) Create(c *gin.Context) {
	var in services.SkillInput
	if err := bind(c, &in); err != nil {
		h.renderCatalog(c, err, gin.H{"Form": in})
		return
	}
	sk, err := h.skills.Create(c.Request.Context(), middleware.CurrentActor(c), in)
	if err != nil {
		h.renderCatalog(c, err, gin.H{"Form": in})
		return
	}
	redirect(c, middleware.FlashSuccess, "Skill "+sk.Name+" added.", "/skills")
}

func (h *SkillHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.SkillInput
	if err := bind(c, &in); err != nil {
		h.renderCatalog(c, err, gin.H{"Form": in, "EditID": id})
		return
	}
	if _, err := h.skills.Update(c.Request.Context(), middleware.CurrentActor(c), id, in); err != nil {
		h.renderCatalog(c, err, gin.H{"Form": in, "EditID": id})
		return
	}
	redirect(c, middleware.FlashSuccess, "Skill updated.", "/skills")
}

func (h *SkillHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.skills.Delete(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	redirect(c, middleware.FlashSuccess, "Skill deleted.", "/skills")
}

// Mine 当前用户的技能评分
func (h *SkillHandler) Mine(c *gin.Context) {
	h.renderMine(c, nil, gin.H{"Form": services.UserSkillInput{ProficiencyLevel: 3}})
}

func (h *SkillHandler) renderMine(c *gin.Context, err error, obj gin.H) {
	ctx := c.Request.Context()
	mine, lerr := h.skills.ListUserSkills(ctx, middleware.CurrentActor(c).UserID)
	if lerr != nil {
		fail(c, h.log, lerr)
		return
	}
	catalog, lerr := h.skills.List(ctx)
	if lerr != nil {
		fail(c, h.log, lerr)
		return
	}
	obj["UserSkills"] = mine
	obj["Skills"] = catalog
	if err != nil {
		failForm(c, h.log, err, "skills/mine.html", obj)
		return
	}
	Render(c, http.StatusOK, "skills/mine.html", obj)
}

func (h *SkillHandler) AddMine(c *gin.Context) {
	var in services.UserSkillInput
	if err := bind(c, &in); err != nil {
		h.renderMine(c, err, gin.H{"Form": in})
		return
	}
	if _, err := h.skills.AddUserSkill(c.Request.Context(), middleware.CurrentActor(c), in); err != nil {
		h.renderMine(c, err, gin.H{"Form": in})
		return
	}
	redirect(c, middleware.FlashSuccess, "Skill added to your profile.", "/me/skills")
}

func (h *SkillHandler) UpdateMine(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.UserSkillInput
	if err := bind(c, &in); err != nil {
		h.renderMine(c, err, gin.H{"Form": in, "EditID": id})
		return
	}
	if _, err := h.skills.UpdateUserSkill(c.Request.Context(), middleware.CurrentActor(c), id, in); err != nil {
		h.renderMine(c, err, gin.H{"Form": in, "EditID": id})
		return
	}
	redirect(c, middleware.FlashSuccess, "Skill updated.", "/me/skills")
}

func (h *SkillHandler) RemoveMine(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.skills.RemoveUserSkill(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	redirect(c, middleware.FlashSuccess, "Skill removed from your profile.", "/me/skills")
}
