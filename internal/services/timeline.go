package services

import (
	"context"
	"errors"
	"folio/internal/apperr"
	"folio/internal/models"
	"folio/internal/validation"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ExperienceInput 工作经历表单
type ExperienceInput struct {
	Title          string `form:"title" validate:"required,max=200"`
	Company        string `form:"company" validate:"required,max=200"`
	ExperienceType string `form:"experience_type" validate:"omitempty,oneof=work freelance internship"`
	StartDate      string `form:"start_date" validate:"required,day"`
	EndDate        string `form:"end_date" validate:"omitempty,day"`
	Current        bool   `form:"current"`
	Description    string `form:"description" validate:"required"`
	Achievements   string `form:"achievements"`
	Location       string `form:"location" validate:"max=100"`
	SkillIDs       []uint `form:"technologies"`
}

// CertificationInput 证书表单
type CertificationInput struct {
	Name                string `form:"name" validate:"required,max=200"`
	IssuingOrganization string `form:"issuing_organization" validate:"required,max=200"`
	IssueDate           string `form:"issue_date" validate:"required,day"`
	ExpiryDate          string `form:"expiry_date" validate:"omitempty,day"`
	CredentialID        string `form:"credential_id" validate:"max=100"`
	CredentialURL       string `form:"credential_url" validate:"omitempty,url,max=200"`
	Description         string `form:"description"`
}

// TimelineService 经历与证书，仅超级用户可写，且只能操作自己的记录
type TimelineService struct {
	db      *gorm.DB
	storage Storage
	log     logrus.FieldLogger
}

func NewTimelineService(db *gorm.DB, storage Storage, log logrus.FieldLogger) *TimelineService {
	return &TimelineService{db: db, storage: storage, log: log}
}

func parseDay(s string) *time.Time {
	if s == "" {
		return nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &d
}

func (in *ExperienceInput) check() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Company = strings.TrimSpace(in.Company)
	if in.ExperienceType == "" {
		in.ExperienceType = string(models.ExperienceWork)
	}
	if err := validation.Struct(*in); err != nil {
		return err
	}
	// 在职时不能填写结束日期
	if in.Current && in.EndDate != "" {
		return apperr.Invalid(map[string]string{"end_date": "Leave the end date empty for a current position."})
	}
	if in.EndDate != "" && parseDay(in.EndDate).Before(*parseDay(in.StartDate)) {
		return apperr.Invalid(map[string]string{"end_date": "End date cannot be before the start date."})
	}
	return nil
}

func (s *TimelineService) skills(tx *gorm.DB, ids []uint) ([]models.Skill, error) {
	skills := []models.Skill{}
	if len(ids) == 0 {
		return skills, nil
	}
	if err := tx.Where("id IN ?", ids).Find(&skills).Error; err != nil {
		return nil, err
	}
	if len(skills) != len(uniqueIDs(ids)) {
		return nil, apperr.Invalid(map[string]string{"technologies": "Select a valid choice."})
	}
	return skills, nil
}

func (s *TimelineService) ListExperiences(ctx context.Context, userID uint) ([]models.Experience, error) {
	var list []models.Experience
	err := s.db.WithContext(ctx).Preload("Technologies").
		Where("user_id = ?", userID).Order("start_date DESC").Find(&list).Error
	return list, apperr.FromDB(err, "experience")
}

// GetExperience 读取操作者自己的经历，别人的记录视为不存在
func (s *TimelineService) GetExperience(ctx context.Context, actor Actor, id uint) (*models.Experience, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	var e models.Experience
	err := s.db.WithContext(ctx).Preload("Technologies").
		Where("id = ? AND user_id = ?", id, actor.UserID).First(&e).Error
	if err != nil {
		return nil, apperr.FromDB(err, "experience")
	}
	return &e, nil
}

func (s *TimelineService) CreateExperience(ctx context.Context, actor Actor, in ExperienceInput) (*models.Experience, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}
	e := models.Experience{UserID: actor.UserID}
	in.apply(&e)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skills, err := s.skills(tx, in.SkillIDs)
		if err != nil {
			return err
		}
		e.Technologies = skills
		return tx.Omit("Technologies.*").Create(&e).Error
	})
	if err != nil {
		return nil, passAppErr(err, "experience")
	}
	return &e, nil
}

func (s *TimelineService) UpdateExperience(ctx context.Context, actor Actor, id uint, in ExperienceInput) (*models.Experience, error) {
	e, err := s.GetExperience(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}
	in.apply(e)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skills, err := s.skills(tx, in.SkillIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(e).Select("title", "company", "experience_type", "start_date", "end_date",
			"current", "description", "achievements", "location", "updated_at").Updates(e).Error; err != nil {
			return err
		}
		e.Technologies = skills
		return replaceAssoc(tx, e, "Technologies", skills, len(skills))
	})
	if err != nil {
		return nil, passAppErr(err, "experience")
	}
	return e, nil
}

func (s *TimelineService) DeleteExperience(ctx context.Context, actor Actor, id uint) error {
	e, err := s.GetExperience(ctx, actor, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Select("Technologies").Delete(e).Error
	return apperr.FromDB(err, "experience")
}

func (in ExperienceInput) apply(e *models.Experience) {
	e.Title = in.Title
	e.Company = in.Company
	e.ExperienceType = models.ExperienceType(in.ExperienceType)
	e.StartDate = *parseDay(in.StartDate)
	e.EndDate = parseDay(in.EndDate)
	e.Current = in.Current
	e.Description = in.Description
	e.Achievements = in.Achievements
	e.Location = strings.TrimSpace(in.Location)
}

func (in *CertificationInput) check(doc *Upload) error {
	in.Name = strings.TrimSpace(in.Name)
	in.IssuingOrganization = strings.TrimSpace(in.IssuingOrganization)
	if err := validation.Struct(*in); err != nil {
		return err
	}
	if in.ExpiryDate != "" && parseDay(in.ExpiryDate).Before(*parseDay(in.IssueDate)) {
		return apperr.Invalid(map[string]string{"expiry_date": "Expiry date cannot be before the issue date."})
	}
	if doc != nil {
		if err := checkDocument(doc); err != nil {
			return err
		}
	}
	return nil
}

func (in CertificationInput) apply(c *models.Certification) {
	c.Name = in.Name
	c.IssuingOrganization = in.IssuingOrganization
	c.IssueDate = *parseDay(in.IssueDate)
	c.ExpiryDate = parseDay(in.ExpiryDate)
	c.CredentialID = strings.TrimSpace(in.CredentialID)
	c.CredentialURL = in.CredentialURL
	c.Description = in.Description
}

func (s *TimelineService) ListCertifications(ctx context.Context, userID uint) ([]models.Certification, error) {
	var list []models.Certification
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("issue_date DESC").Find(&list).Error
	return list, apperr.FromDB(err, "certification")
}

func (s *TimelineService) GetCertification(ctx context.Context, actor Actor, id uint) (*models.Certification, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	var c models.Certification
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, actor.UserID).First(&c).Error; err != nil {
		return nil, apperr.FromDB(err, "certification")
	}
	return &c, nil
}

// CreateCertification 证书附件 (PDF) 可选
func (s *TimelineService) CreateCertification(ctx context.Context, actor Actor, in CertificationInput, doc *Upload) (*models.Certification, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	if err := in.check(doc); err != nil {
		return nil, err
	}
	c := models.Certification{UserID: actor.UserID}
	in.apply(&c)
	if doc != nil {
		ref, err := s.storage.Save(ctx, "certifications", doc)
		if err != nil {
			return nil, err
		}
		c.Document = ref
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		s.removeMedia(ctx, c.Document)
		return nil, apperr.FromDB(err, "certification")
	}
	return &c, nil
}

func (s *TimelineService) UpdateCertification(ctx context.Context, actor Actor, id uint, in CertificationInput, doc *Upload) (*models.Certification, error) {
	c, err := s.GetCertification(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := in.check(doc); err != nil {
		return nil, err
	}
	in.apply(c)
	old := c.Document
	if doc != nil {
		ref, err := s.storage.Save(ctx, "certifications", doc)
		if err != nil {
			return nil, err
		}
		c.Document = ref
	}
	err = s.db.WithContext(ctx).Model(c).Select("name", "issuing_organization", "issue_date", "expiry_date",
		"credential_id", "credential_url", "description", "document", "updated_at").Updates(c).Error
	if err != nil {
		if doc != nil {
			s.removeMedia(ctx, c.Document)
		}
		return nil, apperr.FromDB(err, "certification")
	}
	if doc != nil && old != "" {
		s.removeMedia(ctx, old)
	}
	return c, nil
}

func (s *TimelineService) DeleteCertification(ctx context.Context, actor Actor, id uint) error {
	c, err := s.GetCertification(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(c).Error; err != nil {
		return apperr.FromDB(err, "certification")
	}
	s.removeMedia(ctx, c.Document)
	return nil
}

func (s *TimelineService) removeMedia(ctx context.Context, ref string) {
	discard(ctx, s.storage, s.log, ref)
}

// replaceAssoc 替换多对多关联，空集合时直接清空
func replaceAssoc(tx *gorm.DB, model any, name string, values any, n int) error {
	if n == 0 {
		return tx.Model(model).Association(name).Clear()
	}
	return tx.Model(model).Association(name).Replace(values)
}

// passAppErr 保留事务内返回的 AppError，其余按数据库错误处理
func passAppErr(err error, what string) error {
	var ae *apperr.AppError
	if errors.As(err, &ae) {
		return err
	}
	return apperr.FromDB(err, what)
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
