package services

import (
	"context"
	"folio/internal/apperr"
	"folio/internal/models"
	"folio/internal/utils"
	"folio/internal/validation"
	"strings"

	"gorm.io/gorm"
)

type CategoryInput struct {
	Name        string `form:"name" validate:"required,max=100"`
	Slug        string `form:"slug" validate:"omitempty,max=100,slug"`
	Description string `form:"description"`
	Color       string `form:"color" validate:"omitempty,hexcolor,len=7"`
}

type TechnologyInput struct {
	Name string `form:"name" validate:"required,max=100"`
	Icon string `form:"icon" validate:"max=50"`
}

// CatalogService 分类与技术标签，写操作会清空筛选项缓存
type CatalogService struct {
	db    *gorm.DB
	cache *utils.Cache
}

func NewCatalogService(db *gorm.DB, cache *utils.Cache) *CatalogService {
	return &CatalogService{db: db, cache: cache}
}

func (s *CatalogService) invalidate() {
	if s.cache != nil {
		s.cache.DeletePrefix(facetPrefix)
	}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var list []models.Category
	err := s.db.WithContext(ctx).Order("name").Find(&list).Error
	return list, apperr.FromDB(err, "category")
}

func (s *CatalogService) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, apperr.FromDB(err, "category")
	}
	return &c, nil
}

// deriveSlug 未提供 slug 时由名称生成
func deriveSlug(given, from, field string) (string, error) {
	slug := strings.TrimSpace(given)
	if slug == "" {
		slug = utils.Slugify(from)
	}
	if slug == "" {
		return "", apperr.Invalid(map[string]string{field: "Could not derive a URL slug from this value."})
	}
	return slug, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor Actor, in CategoryInput) (*models.Category, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	slug, err := deriveSlug(in.Slug, in.Name, "name")
	if err != nil {
		return nil, err
	}
	c := models.Category{Name: in.Name, Slug: slug, Description: in.Description, Color: in.Color}
	if c.Color == "" {
		c.Color = "#6c757d"
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Wrap(err, apperr.CodeConflict, "A category with this name or slug already exists.").
				WithField("name", "A category with this name or slug already exists.")
		}
		return nil, apperr.FromDB(err, "category")
	}
	s.invalidate()
	return &c, nil
}

// UpdateCategory slug 创建后不再变化
func (s *CatalogService) UpdateCategory(ctx context.Context, actor Actor, id uint, in CategoryInput) (*models.Category, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = ""
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var c models.Category
	if err := db.First(&c, id).Error; err != nil {
		return nil, apperr.FromDB(err, "category")
	}
	c.Name = in.Name
	c.Description = in.Description
	if in.Color != "" {
		c.Color = in.Color
	}
	if err := db.Model(&c).Select("name", "description", "color", "updated_at").Updates(&c).Error; err != nil {
		return nil, apperr.FromDB(err, "category")
	}
	s.invalidate()
	return &c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, actor Actor, id uint) error {
	if err := actor.requireSuperuser(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Category
		if err := tx.First(&c, id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM project_categories WHERE category_id = ?", c.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
	if err != nil {
		return apperr.FromDB(err, "category")
	}
	s.invalidate()
	return nil
}

func (s *CatalogService) ListTechnologies(ctx context.Context) ([]models.Technology, error) {
	var list []models.Technology
	err := s.db.WithContext(ctx).Order("name").Find(&list).Error
	return list, apperr.FromDB(err, "technology")
}

func (s *CatalogService) CreateTechnology(ctx context.Context, actor Actor, in TechnologyInput) (*models.Technology, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	t := models.Technology{Name: in.Name, Icon: strings.TrimSpace(in.Icon)}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Wrap(err, apperr.CodeConflict, "Technology with this name already exists.").
				WithField("name", "Technology with this name already exists.")
		}
		return nil, apperr.FromDB(err, "technology")
	}
	s.invalidate()
	return &t, nil
}

func (s *CatalogService) UpdateTechnology(ctx context.Context, actor Actor, id uint, in TechnologyInput) (*models.Technology, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var t models.Technology
	if err := db.First(&t, id).Error; err != nil {
		return nil, apperr.FromDB(err, "technology")
	}
	t.Name = in.Name
	t.Icon = strings.TrimSpace(in.Icon)
	if err := db.Save(&t).Error; err != nil {
		return nil, apperr.FromDB(err, "technology")
	}
	s.invalidate()
	return &t, nil
}

func (s *CatalogService) DeleteTechnology(ctx context.Context, actor Actor, id uint) error {
	if err := actor.requireSuperuser(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Technology
		if err := tx.First(&t, id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM project_technologies WHERE technology_id = ?", t.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&t).Error
	})
	if err != nil {
		return apperr.FromDB(err, "technology")
	}
	s.invalidate()
	return nil
}
