package services

import (
	"context"
	"folio/internal/apperr"
	"folio/internal/models"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

const maxCommentLength = 5000

type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// Create 发表评论，默认即审核通过，立即可见
func (s *CommentService) Create(ctx context.Context, actor Actor, projectID uint, content string) (*models.Comment, error) {
	if err := actor.requireAuth(); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Invalid(map[string]string{"content": "This field is required."})
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, apperr.Invalid(map[string]string{"content": "Ensure this value has at most 5000 characters."})
	}

	db := s.db.WithContext(ctx)
	var p models.Project
	if err := db.Select("id", "slug").First(&p, projectID).Error; err != nil {
		return nil, apperr.FromDB(err, "project")
	}
	c := models.Comment{ProjectID: p.ID, UserID: actor.UserID, Content: content, IsApproved: true}
	if err := db.Omit("Project", "User").Create(&c).Error; err != nil {
		return nil, apperr.FromDB(err, "comment")
	}
	c.Project = p
	return &c, nil
}

// ListApproved 项目下已审核的评论，最新在前
func (s *CommentService) ListApproved(ctx context.Context, projectID uint) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := s.db.WithContext(ctx).Preload("User").
		Where("project_id = ? AND is_approved = ?", projectID, true).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	return comments, apperr.FromDB(err, "comment")
}

// SetApproved 管理员切换评论的可见状态
func (s *CommentService) SetApproved(ctx context.Context, actor Actor, commentID uint, approved bool) (*models.Comment, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var c models.Comment
	if err := db.Preload("Project").First(&c, commentID).Error; err != nil {
		return nil, apperr.FromDB(err, "comment")
	}
	if err := db.Model(&models.Comment{}).Where("id = ?", c.ID).Update("is_approved", approved).Error; err != nil {
		return nil, apperr.FromDB(err, "comment")
	}
	c.IsApproved = approved
	return &c, nil
}

// Delete 作者本人或超级用户可删除
func (s *CommentService) Delete(ctx context.Context, actor Actor, commentID uint) (*models.Comment, error) {
	if err := actor.requireAuth(); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var c models.Comment
	if err := db.Preload("Project").First(&c, commentID).Error; err != nil {
		return nil, apperr.FromDB(err, "comment")
	}
	if c.UserID != actor.UserID && !actor.Superuser {
		return nil, apperr.New(apperr.CodeForbidden, "you do not have permission to delete this comment")
	}
	if err := db.Delete(&c).Error; err != nil {
		return nil, apperr.FromDB(err, "comment")
	}
	return &c, nil
}
