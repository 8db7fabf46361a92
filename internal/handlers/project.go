package handlers

import (
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/services"
	"folio/internal/utils"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProjectHandler struct {
	projects *services.ProjectService
	catalog  *services.CatalogService
	comments *services.CommentService
	votes    *services.VoteService
	log      logrus.FieldLogger
}

func NewProjectHandler(projects *services.ProjectService, catalog *services.CatalogService, comments *services.CommentService, votes *services.VoteService, log logrus.FieldLogger) *ProjectHandler {
	return &ProjectHandler{projects: projects, catalog: catalog, comments: comments, votes: votes, log: log}
}

// Home 首页
func (h *ProjectHandler) Home(c *gin.Context) {
	home, err := h.projects.Home(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "home.html", gin.H{"Home": home})
}

// List 项目列表，支持 category / technology / search / page
func (h *ProjectHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	f := services.ProjectFilter{
		Category:   c.Query("category"),
		Technology: c.Query("technology"),
		Search:     c.Query("search"),
		Page:       utils.ParsePage(c.Query("page")),
	}
	page, err := h.projects.List(ctx, f)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	facets, err := h.projects.Facets(ctx)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "projects/list.html", gin.H{
		"Page":   page,
		"Facets": facets,
		"Filter": f,
		"Query":  filterQuery(f),
	})
}

// filterQuery 分页链接保留的筛选参数，非空时以 & 结尾
func filterQuery(f services.ProjectFilter) template.URL {
	q := url.Values{}
	for k, v := range map[string]string{"category": f.Category, "technology": f.Technology, "search": f.Search} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return ""
	}
	return template.URL(q.Encode() + "&")
}

func (h *ProjectHandler) ByCategory(c *gin.Context) {
	category, page, err := h.projects.ListByCategory(c.Request.Context(), c.Param("slug"), utils.ParsePage(c.Query("page")))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "projects/category.html", gin.H{"Category": category, "Page": page, "Query": template.URL("")})
}

// Detail 详情页，每次访问浏览数加一
func (h *ProjectHandler) Detail(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.CurrentActor(c)

	project, err := h.projects.View(ctx, c.Param("project"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	comments, err := h.comments.ListApproved(ctx, project.ID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	likes, dislikes, err := h.votes.Counts(ctx, project.ID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	userVote, err := h.votes.UserVote(ctx, actor, project.ID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	current := ""
	if userVote != nil {
		current = string(*userVote)
	}
	Render(c, http.StatusOK, "projects/detail.html", gin.H{
		"Project":  project,
		"Comments": comments,
		"Likes":    likes,
		"Dislikes": dislikes,
		"UserVote": current,
	})
}

// formData 表单页需要的分类和技术选项
func (h *ProjectHandler) formData(c *gin.Context, obj gin.H) (gin.H, bool) {
	ctx := c.Request.Context()
	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		fail(c, h.log, err)
		return nil, false
	}
	technologies, err := h.catalog.ListTechnologies(ctx)
	if err != nil {
		fail(c, h.log, err)
		return nil, false
	}
	obj["Categories"] = categories
	obj["Technologies"] = technologies
	return obj, true
}

func projectInput(p *models.Project) services.ProjectInput {
	in := services.ProjectInput{
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		Content:     p.Content,
		GithubURL:   p.GithubURL,
		LiveURL:     p.LiveURL,
		IsFeatured:  p.IsFeatured,
	}
	for _, cat := range p.Categories {
		in.CategoryIDs = append(in.CategoryIDs, cat.ID)
	}
	for _, t := range p.Technologies {
		in.TechnologyIDs = append(in.TechnologyIDs, t.ID)
	}
	return in
}

func (h *ProjectHandler) ShowCreate(c *gin.Context) {
	if obj, ok := h.formData(c, gin.H{"Form": services.ProjectInput{}}); ok {
		Render(c, http.StatusOK, "projects/form.html", obj)
	}
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var in services.ProjectInput
	if err := bind(c, &in); err != nil {
		h.failForm(c, err, gin.H{"Form": in})
		return
	}
	image, done, err := formUpload(c, "featured_image")
	if err != nil {
		h.failForm(c, err, gin.H{"Form": in})
		return
	}
	defer done()

	project, err := h.projects.Create(c.Request.Context(), middleware.CurrentActor(c), in, image)
	if err != nil {
		h.failForm(c, err, gin.H{"Form": in})
		return
	}
	redirect(c, middleware.FlashSuccess, "Project created successfully.", projectURL(project.Slug))
}

func (h *ProjectHandler) ShowEdit(c *gin.Context) {
	project, err := h.projects.GetBySlug(c.Request.Context(), c.Param("project"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if obj, ok := h.formData(c, gin.H{"Form": projectInput(project), "Project": project}); ok {
		Render(c, http.StatusOK, "projects/form.html", obj)
	}
}

func (h *ProjectHandler) Update(c *gin.Context) {
	slug := c.Param("project")
	obj := gin.H{"Slug": slug}
	var in services.ProjectInput
	if err := bind(c, &in); err != nil {
		obj["Form"] = in
		h.failForm(c, err, obj)
		return
	}
	obj["Form"] = in
	image, done, err := formUpload(c, "featured_image")
	if err != nil {
		h.failForm(c, err, obj)
		return
	}
	defer done()

	project, err := h.projects.Update(c.Request.Context(), middleware.CurrentActor(c), slug, in, image)
	if err != nil {
		h.failForm(c, err, obj)
		return
	}
	redirect(c, middleware.FlashSuccess, "Project updated successfully.", projectURL(project.Slug))
}

func (h *ProjectHandler) failForm(c *gin.Context, err error, obj gin.H) {
	if obj, ok := h.formData(c, obj); ok {
		failForm(c, h.log, err, "projects/form.html", obj)
	}
}

// ConfirmDelete GET 确认页
func (h *ProjectHandler) ConfirmDelete(c *gin.Context) {
	project, err := h.projects.GetBySlug(c.Request.Context(), c.Param("project"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	Render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Object": project.Title,
		"Action": c.Request.URL.Path,
		"Cancel": projectURL(project.Slug),
	})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), middleware.CurrentActor(c), c.Param("project")); err != nil {
		fail(c, h.log, err)
		return
	}
	redirect(c, middleware.FlashSuccess, "Project deleted successfully.", "/projects")
}
