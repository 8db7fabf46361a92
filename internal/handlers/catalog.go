package handlers

import (
	"folio/internal/middleware"
	"folio/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CatalogHandler 分类和技术管理
type CatalogHandler struct {
	catalog *services.CatalogService
	log     logrus.FieldLogger
}

func NewCatalogHandler(catalog *services.CatalogService, log logrus.FieldLogger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, log: log}
}

func (h *CatalogHandler) renderCategories(c *gin.Context, err error, obj gin.H) {
	categories, lerr := h.catalog.ListCategories(c.Request.Context())
	if lerr != nil {
		fail(c, h.log, lerr)
		return
	}
	obj["Categories"] = categories
	if err != nil {
		failForm(c, h.log, err, "catalog/categories.html", obj)
		return
	}
	Render(c, http.StatusOK, "catalog/categories.html", obj)
}

func (h *CatalogHandler) Categories(c *gin.Context) {
	h.renderCategories(c, nil, gin.H{"Form": services.CategoryInput{}})
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var in services.CategoryInput
	if err := bind(c, &in); err != nil {
		h.renderCategories(c, err, gin.H{"Form": in})
		return
	}
	cat, err := h.catalog.CreateCategory(c.Request.Context(), middleware.CurrentActor(c), in)
	if err != nil {
		h.renderCategories(c, err, gin.H{"Form": in})
		return
	}
	redirect(c, middleware.FlashSuccess, "Category "+cat.Name+" created.", "/categories")
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.CategoryInput
	if err := bind(c, &in); err != nil {
		h.renderCategories(c, err, gin.H{"Form": in, "EditID": id})
		return
	}
	if _, err := h.catalog.UpdateCategory(c.Request.Context(), middleware.CurrentActor(c), id, in); err != nil {
		h.renderCategories(c, err, gin.H{"Form": in, "EditID": id})
		return
	}
	redirect(c, middleware.FlashSuccess, "Category updated.", "/categories")
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	redirect(c, middleware.FlashSuccess, "Category deleted.", "/categories")
}

func (h *CatalogHandler) renderTechnologies(c *gin.Context, err error, obj gin.H) {
	technologies, lerr := h.catalog.ListTechnologies(c.Request.Context())
	if lerr != nil {
		fail(c, h.log, lerr)
		return
	}
	obj["Technologies"] = technologies
	if err != nil {
		failForm(c, h.log, err, "catalog/technologies.html", obj)
		return
	}
	Render(c, http.StatusOK, "catalog/technologies.html", obj)
}

func (h *CatalogHandler) Technologies(c *gin.Context) {
	h.renderTechnologies(c, nil, gin.H{"Form": services.TechnologyInput{}})
}

func (h *CatalogHandler) CreateTechnology(c *gin.Context) {
	var in services.TechnologyInput
	if err := bind(c, &in); err != nil {
		h.renderTechnologies(c, err, gin.H{"Form": in})
		return
	}
	t, err := h.catalog.CreateTechnology(c.Request.Context(), middleware.CurrentActor(c), in)
	if err != nil {
		h.renderTechnologies(c, err, gin.H{"Form": in})
		return
	}
	redirect(c, middleware.FlashSuccess, "Technology "+t.Name+" created.", "/technologies")
}

func (h *CatalogHandler) UpdateTechnology(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.TechnologyInput
	if err := bind(c, &in); err != nil {
		h.renderTechnologies(c, err, gin.H{"Form": in, "EditID": id})
		return
	}
	if _, err := h.catalog.UpdateTechnology(c.Request.Context(), middleware.CurrentActor(c), id, in); err != nil {
		h.renderTechnologies(c, err, gin.H{"Form": in, "EditID": id})
		return
	}
	redirect(c, middleware.FlashSuccess, "Technology updated.", "/technologies")
}

func (h *CatalogHandler) DeleteTechnology(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteTechnology(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	redirect(c, middleware.FlashSuccess, "Technology deleted.", "/technologies")
}
