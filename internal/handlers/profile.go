package handlers

import (
	"folio/internal/apperr"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	log      logrus.FieldLogger
}

func NewProfileHandler(profiles *services.ProfileService, log logrus.FieldLogger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, log: log}
}

// About 关于页，尚无站长时也能打开
func (h *ProfileHandler) About(c *gin.Context) {
	owner, err := h.profiles.Owner(c.Request.Context())
	if err != nil && !apperr.IsCode(err, apperr.CodeNotFound) {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "about.html", gin.H{"Owner": owner})
}

// Detail 站长资料页，没有超级用户时 404
func (h *ProfileHandler) Detail(c *gin.Context) {
	owner, err := h.profiles.Owner(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "profile/detail.html", gin.H{"Owner": owner})
}

func profileInput(p *models.Profile) services.ProfileInput {
	in := services.ProfileInput{
		Bio:         p.Bio,
		Location:    p.Location,
		Website:     p.Website,
		LinkedinURL: p.LinkedinURL,
		GithubURL:   p.GithubURL,
		TwitterURL:  p.TwitterURL,
		Phone:       p.Phone,
	}
	if p.BirthDate != nil {
		in.BirthDate = p.BirthDate.Format(dayLayout)
	}
	return in
}

func (h *ProfileHandler) ShowEdit(c *gin.Context) {
	profile, err := h.profiles.EnsureProfile(c.Request.Context(), middleware.CurrentActor(c).UserID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "profile/edit.html", gin.H{"Form": profileInput(profile), "Profile": profile})
}

func (h *ProfileHandler) Edit(c *gin.Context) {
	var in services.ProfileInput
	if err := bind(c, &in); err != nil {
		failForm(c, h.log, err, "profile/edit.html", gin.H{"Form": in})
		return
	}
	image, done, err := formUpload(c, "profile_image")
	if err != nil {
		failForm(c, h.log, err, "profile/edit.html", gin.H{"Form": in})
		return
	}
	defer done()

	if _, err := h.profiles.Upsert(c.Request.Context(), middleware.CurrentActor(c), in, image); err != nil {
		failForm(c, h.log, err, "profile/edit.html", gin.H{"Form": in})
		return
	}
	redirect(c, middleware.FlashSuccess, "Profile updated successfully.", "/about")
}
