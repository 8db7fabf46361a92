package handlers

import (
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/services"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const dayLayout = "2006-01-02"

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dayLayout)
}

// TimelineHandler 经历和证书的增删改，成功后回到关于页
type TimelineHandler struct {
	timeline *services.TimelineService
	skills   *services.SkillService
	log      logrus.FieldLogger
}

func NewTimelineHandler(timeline *services.TimelineService, skills *services.SkillService, log logrus.FieldLogger) *TimelineHandler {
	return &TimelineHandler{timeline: timeline, skills: skills, log: log}
}

func experienceInput(e *models.Experience) services.ExperienceInput {
	in := services.ExperienceInput{
		Title:          e.Title,
		Company:        e.Company,
		ExperienceType: string(e.ExperienceType),
		StartDate:      e.StartDate.Format(dayLayout),
		EndDate:        formatDay(e.EndDate),
		Current:        e.Current,
		Description:    e.Description,
		Achievements:   e.Achievements,
		Location:       e.Location,
	}
	for _, s := range e.Technologies {
		in.SkillIDs = append(in.SkillIDs, s.ID)
	}
	return in
}

func (h *TimelineHandler) renderExperience(c *gin.Context, err error, obj gin.H) {
	skills, lerr := h.skills.List(c.Request.Context())
	if lerr != nil {
		fail(c, h.log, lerr)
		return
	}
	obj["Skills"] = skills
	obj["ExperienceTypes"] = models.ExperienceTypes
	if err != nil {
		failForm(c, h.log, err, "experience/form.html", obj)
		return
	}
	Render(c, http.StatusOK, "experience/form.html", obj)
}

func (h *TimelineHandler) ShowCreateExperience(c *gin.Context) {
	h.renderExperience(c, nil, gin.H{"Form": services.ExperienceInput{ExperienceType: string(models.ExperienceWork)}})
}

func (h *TimelineHandler) CreateExperience(c *gin.Context) {
	var in services.ExperienceInput
	if err := bind(c, &in); err != nil {
		h.renderExperience(c, err, gin.H{"Form": in})
		return
	}
	if _, err := h.timeline.CreateExperience(c.Request.Context(), middleware.CurrentActor(c), in); err != nil {
		h.renderExperience(c, err, gin.H{"Form": in})
		return
	}
	redirect(c, middleware.FlashSuccess, "Experience added successfully.", "/about")
}

func (h *TimelineHandler) ShowEditExperience(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	e, err := h.timeline.GetExperience(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	h.renderExperience(c, nil, gin.H{"Form": experienceInput(e), "Experience": e})
}

func (h *TimelineHandler) UpdateExperience(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.ExperienceInput
	if err := bind(c, &in); err != nil {
		h.renderExperience(c, err, gin.H{"Form": in, "ID": id})
		return
	}
	if _, err := h.timeline.UpdateExperience(c.Request.Context(), middleware.CurrentActor(c), id, in); err != nil {
		h.renderExperience(c, err, gin.H{"Form": in, "ID": id})
		return
	}
	redirect(c, middleware.FlashSuccess, "Experience updated successfully.", "/about")
}

func (h *TimelineHandler) ConfirmDeleteExperience(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	e, err := h.timeline.GetExperience(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Object": e.Title + " at " + e.Company,
		"Action": c.Request.URL.Path,
		"Cancel": "/about",
	})
}

func (h *TimelineHandler) DeleteExperience(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.timeline.DeleteExperience(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	redirect(c, middleware.FlashSuccess, "Experience deleted successfully.", "/about")
}

func certificationInput(cert *models.Certification) services.CertificationInput {
	return services.CertificationInput{
		Name:                cert.Name,
		IssuingOrganization: cert.IssuingOrganization,
		IssueDate:           cert.IssueDate.Format(dayLayout),
		ExpiryDate:          formatDay(cert.ExpiryDate),
		CredentialID:        cert.CredentialID,
		CredentialURL:       cert.CredentialURL,
		Description:         cert.Description,
	}
}

func (h *TimelineHandler) ShowCreateCertification(c *gin.Context) {
	Render(c, http.StatusOK, "certification/form.html", gin.H{"Form": services.CertificationInput{}})
}

func (h *TimelineHandler) CreateCertification(c *gin.Context) {
	var in services.CertificationInput
	if err := bind(c, &in); err != nil {
		failForm(c, h.log, err, "certification/form.html", gin.H{"Form": in})
		return
	}
	doc, done, err := formUpload(c, "document")
	if err != nil {
		failForm(c, h.log, err, "certification/form.html", gin.H{"Form": in})
		return
	}
	defer done()

	if _, err := h.timeline.CreateCertification(c.Request.Context(), middleware.CurrentActor(c), in, doc); err != nil {
		failForm(c, h.log, err, "certification/form.html", gin.H{"Form": in})
		return
	}
	redirect(c, middleware.FlashSuccess, "Certification added successfully.", "/about")
}

func (h *TimelineHandler) ShowEditCertification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	cert, err := h.timeline.GetCertification(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "certification/form.html", gin.H{"Form": certificationInput(cert), "Certification": cert})
}

func (h *TimelineHandler) UpdateCertification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.CertificationInput
	obj := gin.H{"Form": &in, "ID": id}
	if err := bind(c, &in); err != nil {
		failForm(c, h.log, err, "certification/form.html", obj)
		return
	}
	doc, done, err := formUpload(c, "document")
	if err != nil {
		failForm(c, h.log, err, "certification/form.html", obj)
		return
	}
	defer done()

	if _, err := h.timeline.UpdateCertification(c.Request.Context(), middleware.CurrentActor(c), id, in, doc); err != nil {
		failForm(c, h.log, err, "certification/form.html", obj)
		return
	}
	redirect(c, middleware.FlashSuccess, "Certification updated successfully.", "/about")
}

func (h *TimelineHandler) ConfirmDeleteCertification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	cert, err := h.timeline.GetCertification(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Object": cert.Name,
		"Action": c.Request.URL.Path,
		"Cancel": "/about",
	})
}

func (h *TimelineHandler) DeleteCertification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.timeline.DeleteCertification(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	redirect(c, middleware.FlashSuccess, "Certification deleted successfully.", "/about")
}
