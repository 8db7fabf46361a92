package services

import (
	"context"
	"folio/internal/apperr"
	"folio/internal/models"
	"folio/internal/utils"
	"folio/internal/validation"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	PerPage         = 9
	featuredFacet   = 3
	featuredHome    = 6
	facetPrefix     = "facets:"
	facetCategories = facetPrefix + "categories"
	facetTechnology = facetPrefix + "technologies"
	facetFeatured   = facetPrefix + "featured"
	likeEscape      = `\`
)

// ProjectFilter 列表筛选，均可选，可组合
type ProjectFilter struct {
	Category   string // 分类 slug，精确匹配
	Technology string // 技术名，不区分大小写的子串
	Search     string // 标题、简介、正文或技术名
	Page       int
}

// ProjectPage 一页项目及分页信息
type ProjectPage struct {
	Projects   []models.Project
	Page       int
	TotalPages int
	Total      int64
	HasPrev    bool
	HasNext    bool
}

func (p *ProjectPage) PrevPage() int { return p.Page - 1 }
func (p *ProjectPage) NextPage() int { return p.Page + 1 }

// Facets 列表页侧栏
type Facets struct {
	Categories   []models.Category
	Technologies []models.Technology
	Featured     []models.Project
}

// HomeView 首页数据
type HomeView struct {
	Featured      []models.Project
	Categories    []models.Category
	TotalProjects int64
}

// ProjectInput 项目表单
type ProjectInput struct {
	Title         string `form:"title" validate:"required,max=200"`
	Slug          string `form:"slug" validate:"omitempty,max=200,slug"`
	Description   string `form:"description" validate:"required"`
	Content       string `form:"content" validate:"required"`
	GithubURL     string `form:"github_url" validate:"omitempty,url,max=200"`
	LiveURL       string `form:"live_url" validate:"omitempty,url,max=200"`
	CategoryIDs   []uint `form:"categories"`
	TechnologyIDs []uint `form:"technologies"`
	IsFeatured    bool   `form:"is_featured"`
}

type ProjectService struct {
	db       *gorm.DB
	storage  Storage
	cache    *utils.Cache
	cacheTTL time.Duration
	log      logrus.FieldLogger
}

func NewProjectService(db *gorm.DB, storage Storage, cache *utils.Cache, cacheTTL time.Duration, log logrus.FieldLogger) *ProjectService {
	return &ProjectService{db: db, storage: storage, cache: cache, cacheTTL: cacheTTL, log: log}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// techMatch 技术名匹配的项目 ID 子查询
func (s *ProjectService) techMatch(db *gorm.DB, like string) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Table("project_technologies").
		Select("project_technologies.project_id").
		Joins("JOIN technologies ON technologies.id = project_technologies.technology_id").
		Where("LOWER(technologies.name) LIKE ? ESCAPE '"+likeEscape+"'", like)
}

// filtered 用子查询过滤，结果天然去重
func (s *ProjectService) filtered(db *gorm.DB, f ProjectFilter) *gorm.DB {
	q := db.Model(&models.Project{})
	if f.Category != "" {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Table("project_categories").
			Select("project_categories.project_id").
			Joins("JOIN categories ON categories.id = project_categories.category_id").
			Where("categories.slug = ?", f.Category)
		q = q.Where("projects.id IN (?)", sub)
	}
	if t := strings.TrimSpace(f.Technology); t != "" {
		q = q.Where("projects.id IN (?)", s.techMatch(db, escapeLike(t)))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := escapeLike(term)
		esc := " ESCAPE '" + likeEscape + "'"
		q = q.Where("(LOWER(projects.title) LIKE ?"+esc+
			" OR LOWER(projects.description) LIKE ?"+esc+
			" OR LOWER(projects.content) LIKE ?"+esc+
			" OR projects.id IN (?))", like, like, like, s.techMatch(db, like))
	}
	return q
}

// List 按创建时间倒序分页，每页 9 条，页码越界时取最近的有效页
func (s *ProjectService) List(ctx context.Context, f ProjectFilter) (*ProjectPage, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := s.filtered(db, f).Count(&total).Error; err != nil {
		return nil, apperr.FromDB(err, "project")
	}

	totalPages := int(math.Ceil(float64(total) / float64(PerPage)))
	if totalPages == 0 {
		totalPages = 1
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	projects := []models.Project{}
	err := s.filtered(db, f).
		Preload("Categories", orderByName).
		Preload("Technologies", orderByName).
		Order("projects.created_at DESC, projects.id DESC").
		Limit(PerPage).
		Offset((page - 1) * PerPage).
		Find(&projects).Error
	if err != nil {
		return nil, apperr.FromDB(err, "project")
	}

	return &ProjectPage{
		Projects:   projects,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}, nil
}

// ListByCategory 分类页
func (s *ProjectService) ListByCategory(ctx context.Context, slug string, page int) (*models.Category, *ProjectPage, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, nil, apperr.FromDB(err, "category")
	}
	p, err := s.List(ctx, ProjectFilter{Category: slug, Page: page})
	if err != nil {
		return nil, nil, err
	}
	return &c, p, nil
}

func orderByName(db *gorm.DB) *gorm.DB { return db.Order("name") }

func (s *ProjectService) featured(db *gorm.DB, limit int) ([]models.Project, error) {
	projects := []models.Project{}
	err := db.Preload("Categories", orderByName).Preload("Technologies", orderByName).
		Where("is_featured = ?", true).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&projects).Error
	return projects, err
}

// Facets 全部分类、全部技术、最多 3 个推荐项目，带缓存
func (s *ProjectService) Facets(ctx context.Context) (*Facets, error) {
	db := s.db.WithContext(ctx)
	f := &Facets{}

	if v, ok := s.cacheGet(facetCategories); ok {
		f.Categories = v.([]models.Category)
	} else {
		if err := db.Order("name").Find(&f.Categories).Error; err != nil {
			return nil, apperr.FromDB(err, "category")
		}
		s.cacheSet(facetCategories, f.Categories)
	}

	if v, ok := s.cacheGet(facetTechnology); ok {
		f.Technologies = v.([]models.Technology)
	} else {
		if err := db.Order("name").Find(&f.Technologies).Error; err != nil {
			return nil, apperr.FromDB(err, "technology")
		}
		s.cacheSet(facetTechnology, f.Technologies)
	}

	if v, ok := s.cacheGet(facetFeatured); ok {
		f.Featured = v.([]models.Project)
	} else {
		featured, err := s.featured(db, featuredFacet)
		if err != nil {
			return nil, apperr.FromDB(err, "project")
		}
		f.Featured = featured
		s.cacheSet(facetFeatured, featured)
	}
	return f, nil
}

func (s *ProjectService) cacheGet(key string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *ProjectService) cacheSet(key string, v any) {
	if s.cache != nil && s.cacheTTL > 0 {
		s.cache.Set(key, v, s.cacheTTL)
	}
}

func (s *ProjectService) invalidate() {
	if s.cache != nil {
		s.cache.DeletePrefix(facetPrefix)
	}
}

// Home 首页：最多 6 个推荐项目、全部分类、项目总数
func (s *ProjectService) Home(ctx context.Context) (*HomeView, error) {
	db := s.db.WithContext(ctx)
	featured, err := s.featured(db, featuredHome)
	if err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	v := &HomeView{Featured: featured}
	if err := db.Order("name").Find(&v.Categories).Error; err != nil {
		return nil, apperr.FromDB(err, "category")
	}
	if err := db.Model(&models.Project{}).Count(&v.TotalProjects).Error; err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	return v, nil
}

// Recent 最近更新的项目，用于 sitemap 和 feed
func (s *ProjectService) Recent(ctx context.Context, limit int) ([]models.Project, error) {
	projects := []models.Project{}
	err := s.db.WithContext(ctx).Preload("Categories", orderByName).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Find(&projects).Error
	return projects, apperr.FromDB(err, "project")
}

// GetBySlug 读取项目及其分类、技术、图片（按 order, created_at）和附件
func (s *ProjectService) GetBySlug(ctx context.Context, slug string) (*models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).
		Preload("Categories", orderByName).
		Preload("Technologies", orderByName).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, created_at") }).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at DESC") }).
		Where("slug = ?", slug).
		First(&p).Error
	if err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	return &p, nil
}

// View 详情页访问：浏览数原子加一后返回项目，不去重
func (s *ProjectService) View(ctx context.Context, slug string) (*models.Project, error) {
	db := s.db.WithContext(ctx)
	var ref models.Project
	if err := db.Select("id").Where("slug = ?", slug).First(&ref).Error; err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	if err := db.Model(&models.Project{}).Where("id = ?", ref.ID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	return s.GetBySlug(ctx, slug)
}

func (in *ProjectInput) check() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	return validation.Struct(*in)
}

func loadTags(tx *gorm.DB, in ProjectInput) ([]models.Category, []models.Technology, error) {
	cats := []models.Category{}
	techs := []models.Technology{}
	if ids := uniqueIDs(in.CategoryIDs); len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&cats).Error; err != nil {
			return nil, nil, err
		}
		if len(cats) != len(ids) {
			return nil, nil, apperr.Invalid(map[string]string{"categories": "Select a valid choice."})
		}
	}
	if ids := uniqueIDs(in.TechnologyIDs); len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&techs).Error; err != nil {
			return nil, nil, err
		}
		if len(techs) != len(ids) {
			return nil, nil, apperr.Invalid(map[string]string{"technologies": "Select a valid choice."})
		}
	}
	return cats, techs, nil
}

func slugConflict(err error) error {
	return apperr.Wrap(err, apperr.CodeConflict, "slug already exists").
		WithField("slug", "Project with this slug already exists.")
}

// Create 新建项目。slug 未提供时由标题生成，重复时返回 conflict，已有项目不受影响
func (s *ProjectService) Create(ctx context.Context, actor Actor, in ProjectInput, featured *Upload) (*models.Project, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}
	slug, err := deriveSlug(in.Slug, in.Title, "title")
	if err != nil {
		return nil, err
	}
	if featured != nil {
		if err := checkImage(featured); err != nil {
			return nil, err
		}
	}

	p := models.Project{
		Title:       in.Title,
		Slug:        slug,
		Description: in.Description,
		Content:     in.Content,
		GithubURL:   in.GithubURL,
		LiveURL:     in.LiveURL,
		IsFeatured:  in.IsFeatured,
	}
	if featured != nil {
		ref, err := s.storage.Save(ctx, "projects/featured", featured)
		if err != nil {
			return nil, err
		}
		p.FeaturedImage = ref
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats, techs, err := loadTags(tx, in)
		if err != nil {
			return err
		}
		p.Categories = cats
		p.Technologies = techs
		return tx.Omit("Categories.*", "Technologies.*").Create(&p).Error
	})
	if err != nil {
		s.removeMedia(ctx, p.FeaturedImage)
		if apperr.IsUniqueViolation(err) {
			return nil, slugConflict(err)
		}
		return nil, passAppErr(err, "project")
	}
	s.invalidate()
	return &p, nil
}

// Update 修改项目，slug 保持不变
func (s *ProjectService) Update(ctx context.Context, actor Actor, slug string, in ProjectInput, featured *Upload) (*models.Project, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	p, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	in.Slug = ""
	if err := in.check(); err != nil {
		return nil, err
	}
	if featured != nil {
		if err := checkImage(featured); err != nil {
			return nil, err
		}
	}

	old := p.FeaturedImage
	p.Title = in.Title
	p.Description = in.Description
	p.Content = in.Content
	p.GithubURL = in.GithubURL
	p.LiveURL = in.LiveURL
	p.IsFeatured = in.IsFeatured
	if featured != nil {
		ref, err := s.storage.Save(ctx, "projects/featured", featured)
		if err != nil {
			return nil, err
		}
		p.FeaturedImage = ref
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats, techs, err := loadTags(tx, in)
		if err != nil {
			return err
		}
		if err := tx.Model(p).Select("title", "description", "content", "github_url", "live_url",
			"is_featured", "featured_image", "updated_at").Updates(p).Error; err != nil {
			return err
		}
		if err := replaceAssoc(tx, p, "Categories", cats, len(cats)); err != nil {
			return err
		}
		if err := replaceAssoc(tx, p, "Technologies", techs, len(techs)); err != nil {
			return err
		}
		p.Categories = cats
		p.Technologies = techs
		return nil
	})
	if err != nil {
		if featured != nil {
			s.removeMedia(ctx, p.FeaturedImage)
		}
		return nil, passAppErr(err, "project")
	}
	if featured != nil && old != "" {
		s.removeMedia(ctx, old)
	}
	s.invalidate()
	return p, nil
}

// Delete 删除项目及其图片、附件、评论、投票，存储文件尽力删除
func (s *ProjectService) Delete(ctx context.Context, actor Actor, slug string) error {
	if err := actor.requireSuperuser(); err != nil {
		return err
	}
	p, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Select("Images", "Files", "Categories", "Technologies").Delete(p).Error
	})
	if err != nil {
		return apperr.FromDB(err, "project")
	}

	s.removeMedia(ctx, p.FeaturedImage)
	for _, img := range p.Images {
		s.removeMedia(ctx, img.Image)
	}
	for _, f := range p.Files {
		s.removeMedia(ctx, f.File)
	}
	s.invalidate()
	return nil
}

func (s *ProjectService) removeMedia(ctx context.Context, ref string) {
	discard(ctx, s.storage, s.log, ref)
}
