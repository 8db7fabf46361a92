package services

import (
	"context"
	"folio/internal/apperr"
	"folio/internal/models"
	"folio/internal/validation"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	MaxImageSize = 10 << 20
	MaxFileSize  = 50 << 20
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

func checkImage(u *Upload) error {
	if u.Size > MaxImageSize {
		return apperr.Invalid(map[string]string{"image": "Images may be at most 10 MB."})
	}
	if !strings.HasPrefix(u.ContentType, "image/") || !imageExts[u.Ext()] {
		return apperr.Invalid(map[string]string{"image": "Upload a valid image. The file you uploaded was either not an image or a corrupted image."})
	}
	return nil
}

func checkDocument(u *Upload) error {
	if u.Ext() != ".pdf" {
		return apperr.Invalid(map[string]string{"document": "Only PDF documents are allowed."})
	}
	if u.Size > MaxFileSize {
		return apperr.Invalid(map[string]string{"document": "Documents may be at most 50 MB."})
	}
	return nil
}

type ImageInput struct {
	Title       string `form:"title" validate:"max=200"`
	Description string `form:"description"`
	Order       int    `form:"order" validate:"gte=0"`
	IsCover     bool   `form:"is_cover"`
}

type FileInput struct {
	Name        string `form:"name" validate:"required,max=200"`
	Description string `form:"description"`
}

// MediaService 项目图片与附件，仅超级用户
type MediaService struct {
	db      *gorm.DB
	storage Storage
	log     logrus.FieldLogger
}

func NewMediaService(db *gorm.DB, storage Storage, log logrus.FieldLogger) *MediaService {
	return &MediaService{db: db, storage: storage, log: log}
}

func (s *MediaService) project(db *gorm.DB, slug string) (*models.Project, error) {
	var p models.Project
	if err := db.Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	return &p, nil
}

// ListImages 按 (order, created_at) 排序，项目附带附件列表
func (s *MediaService) ListImages(ctx context.Context, slug string) (*models.Project, []models.ProjectImage, error) {
	db := s.db.WithContext(ctx)
	p, err := s.project(db.Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at DESC") }), slug)
	if err != nil {
		return nil, nil, err
	}
	images := []models.ProjectImage{}
	if err := db.Where("project_id = ?", p.ID).Order("sort_order, created_at").Find(&images).Error; err != nil {
		return nil, nil, apperr.FromDB(err, "image")
	}
	return p, images, nil
}

// GetImage 图片不属于该项目时视为不存在
func (s *MediaService) GetImage(ctx context.Context, slug string, imageID uint) (*models.Project, *models.ProjectImage, error) {
	db := s.db.WithContext(ctx)
	p, err := s.project(db, slug)
	if err != nil {
		return nil, nil, err
	}
	var img models.ProjectImage
	if err := db.Where("id = ? AND project_id = ?", imageID, p.ID).First(&img).Error; err != nil {
		return nil, nil, apperr.FromDB(err, "image")
	}
	return p, &img, nil
}

// clearCover 同一项目只保留一张封面
func clearCover(tx *gorm.DB, projectID, keepID uint) error {
	return tx.Model(&models.ProjectImage{}).
		Where("project_id = ? AND id <> ? AND is_cover = ?", projectID, keepID, true).
		UpdateColumn("is_cover", false).Error
}

func (s *MediaService) AddImage(ctx context.Context, actor Actor, slug string, in ImageInput, u *Upload) (*models.ProjectImage, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Invalid(map[string]string{"image": "This field is required."})
	}
	if err := checkImage(u); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	p, err := s.project(db, slug)
	if err != nil {
		return nil, err
	}
	ref, err := s.storage.Save(ctx, "projects/gallery", u)
	if err != nil {
		return nil, err
	}

	img := models.ProjectImage{
		ProjectID:   p.ID,
		Image:       ref,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Order:       in.Order,
		IsCover:     in.IsCover,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&img).Error; err != nil {
			return err
		}
		if img.IsCover {
			return clearCover(tx, p.ID, img.ID)
		}
		return nil
	})
	if err != nil {
		s.removeMedia(ctx, ref)
		return nil, apperr.FromDB(err, "image")
	}
	return &img, nil
}

// UpdateImage u 为 nil 时保留原图
func (s *MediaService) UpdateImage(ctx context.Context, actor Actor, slug string, imageID uint, in ImageInput, u *Upload) (*models.ProjectImage, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if u != nil {
		if err := checkImage(u); err != nil {
			return nil, err
		}
	}
	p, img, err := s.GetImage(ctx, slug, imageID)
	if err != nil {
		return nil, err
	}

	old := img.Image
	if u != nil {
		ref, err := s.storage.Save(ctx, "projects/gallery", u)
		if err != nil {
			return nil, err
		}
		img.Image = ref
	}
	img.Title = strings.TrimSpace(in.Title)
	img.Description = in.Description
	img.Order = in.Order
	img.IsCover = in.IsCover

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(img).Select("image", "title", "description", "sort_order", "is_cover").Updates(img).Error; err != nil {
			return err
		}
		if img.IsCover {
			return clearCover(tx, p.ID, img.ID)
		}
		return nil
	})
	if err != nil {
		if u != nil {
			s.removeMedia(ctx, img.Image)
		}
		return nil, apperr.FromDB(err, "image")
	}
	if u != nil {
		s.removeMedia(ctx, old)
	}
	return img, nil
}

func (s *MediaService) DeleteImage(ctx context.Context, actor Actor, slug string, imageID uint) error {
	if err := actor.requireSuperuser(); err != nil {
		return err
	}
	_, img, err := s.GetImage(ctx, slug, imageID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(img).Error; err != nil {
		return apperr.FromDB(err, "image")
	}
	s.removeMedia(ctx, img.Image)
	return nil
}

func (s *MediaService) AddFile(ctx context.Context, actor Actor, slug string, in FileInput, u *Upload) (*models.ProjectFile, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if u != nil && in.Name == "" {
		in.Name = u.Filename
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Invalid(map[string]string{"file": "This field is required."})
	}
	if u.Size > MaxFileSize {
		return nil, apperr.Invalid(map[string]string{"file": "Files may be at most 50 MB."})
	}
	db := s.db.WithContext(ctx)
	p, err := s.project(db, slug)
	if err != nil {
		return nil, err
	}
	ref, err := s.storage.Save(ctx, "projects/files", u)
	if err != nil {
		return nil, err
	}
	f := models.ProjectFile{ProjectID: p.ID, File: ref, Name: in.Name, Description: in.Description}
	if err := db.Create(&f).Error; err != nil {
		s.removeMedia(ctx, ref)
		return nil, apperr.FromDB(err, "file")
	}
	return &f, nil
}

func (s *MediaService) DeleteFile(ctx context.Context, actor Actor, slug string, fileID uint) error {
	if err := actor.requireSuperuser(); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	p, err := s.project(db, slug)
	if err != nil {
		return err
	}
	var f models.ProjectFile
	if err := db.Where("id = ? AND project_id = ?", fileID, p.ID).First(&f).Error; err != nil {
		return apperr.FromDB(err, "file")
	}
	if err := db.Delete(&f).Error; err != nil {
		return apperr.FromDB(err, "file")
	}
	s.removeMedia(ctx, f.File)
	return nil
}

func (s *MediaService) removeMedia(ctx context.Context, ref string) {
	discard(ctx, s.storage, s.log, ref)
}
