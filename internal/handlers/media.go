package handlers

import (
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MediaHandler 项目图片和附件
type MediaHandler struct {
	media *services.MediaService
	log   logrus.FieldLogger
}

func NewMediaHandler(media *services.MediaService, log logrus.FieldLogger) *MediaHandler {
	return &MediaHandler{media: media, log: log}
}

func imagesURL(slug string) string { return projectURL(slug) + "/images" }

func (h *MediaHandler) renderImages(c *gin.Context, err error, obj gin.H) {
	project, images, lerr := h.media.ListImages(c.Request.Context(), c.Param("project"))
	if lerr != nil {
		fail(c, h.log, lerr)
		return
	}
	obj["Project"] = project
	obj["Images"] = images
	if _, ok := obj["Form"]; !ok {
		obj["Form"] = services.ImageInput{}
	}
	if err != nil {
		failForm(c, h.log, err, "projects/images.html", obj)
		return
	}
	Render(c, http.StatusOK, "projects/images.html", obj)
}

// Images 图片和附件管理页
func (h *MediaHandler) Images(c *gin.Context) {
	h.renderImages(c, nil, gin.H{})
}

func (h *MediaHandler) AddImage(c *gin.Context) {
	slug := c.Param("project")
	var in services.ImageInput
	if err := bind(c, &in); err != nil {
		h.renderImages(c, err, gin.H{"Form": in})
		return
	}
	upload, done, err := formUpload(c, "image")
	if err != nil {
		h.renderImages(c, err, gin.H{"Form": in})
		return
	}
	defer done()

	if _, err := h.media.AddImage(c.Request.Context(), middleware.CurrentActor(c), slug, in, upload); err != nil {
		h.renderImages(c, err, gin.H{"Form": in})
		return
	}
	redirect(c, middleware.FlashSuccess, "Image added successfully.", imagesURL(slug))
}

func imageInput(img *models.ProjectImage) services.ImageInput {
	return services.ImageInput{Title: img.Title, Description: img.Description, Order: img.Order, IsCover: img.IsCover}
}

func (h *MediaHandler) ShowEditImage(c *gin.Context) {
	id, ok := idParam(c, "image_id")
	if !ok {
		return
	}
	project, img, err := h.media.GetImage(c.Request.Context(), c.Param("project"), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "projects/image_form.html", gin.H{"Project": project, "Image": img, "Form": imageInput(img)})
}

func (h *MediaHandler) UpdateImage(c *gin.Context) {
	id, ok := idParam(c, "image_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	slug := c.Param("project")
	project, img, err := h.media.GetImage(ctx, slug, id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	obj := gin.H{"Project": project, "Image": img}

	var in services.ImageInput
	if err := bind(c, &in); err != nil {
		obj["Form"] = in
		failForm(c, h.log, err, "projects/image_form.html", obj)
		return
	}
	obj["Form"] = in
	upload, done, err := formUpload(c, "image")
	if err != nil {
		failForm(c, h.log, err, "projects/image_form.html", obj)
		return
	}
	defer done()

	if _, err := h.media.UpdateImage(ctx, middleware.CurrentActor(c), slug, id, in, upload); err != nil {
		failForm(c, h.log, err, "projects/image_form.html", obj)
		return
	}
	redirect(c, middleware.FlashSuccess, "Image updated successfully.", imagesURL(slug))
}

func (h *MediaHandler) ConfirmDeleteImage(c *gin.Context) {
	id, ok := idParam(c, "image_id")
	if !ok {
		return
	}
	project, img, err := h.media.GetImage(c.Request.Context(), c.Param("project"), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	name := img.Title
	if name == "" {
		name = "this image"
	}
	Render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Object": name,
		"Action": c.Request.URL.Path,
		"Cancel": imagesURL(project.Slug),
	})
}

func (h *MediaHandler) DeleteImage(c *gin.Context) {
	id, ok := idParam(c, "image_id")
	if !ok {
		return
	}
	slug := c.Param("project")
	if err := h.media.DeleteImage(c.Request.Context(), middleware.CurrentActor(c), slug, id); err != nil {
		fail(c, h.log, err)
		return
	}
	redirect(c, middleware.FlashSuccess, "Image deleted successfully.", imagesURL(slug))
}

func (h *MediaHandler) AddFile(c *gin.Context) {
	slug := c.Param("project")
	var in services.FileInput
	if err := bind(c, &in); err != nil {
		h.renderImages(c, err, gin.H{"FileForm": in})
		return
	}
	upload, done, err := formUpload(c, "file")
	if err != nil {
		h.renderImages(c, err, gin.H{"FileForm": in})
		return
	}
	defer done()

	if _, err := h.media.AddFile(c.Request.Context(), middleware.CurrentActor(c), slug, in, upload); err != nil {
		h.renderImages(c, err, gin.H{"FileForm": in})
		return
	}
	redirect(c, middleware.FlashSuccess, "File added successfully.", imagesURL(slug))
}

func (h *MediaHandler) DeleteFile(c *gin.Context) {
	id, ok := idParam(c, "file_id")
	if !ok {
		return
	}
	slug := c.Param("project")
	if err := h.media.DeleteFile(c.Request.Context(), middleware.CurrentActor(c), slug, id); err != nil {
		fail(c, h.log, err)
		return
	}
	redirect(c, middleware.FlashSuccess, "File deleted successfully.", imagesURL(slug))
}
