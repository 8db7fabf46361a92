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
	"gorm.io/gorm/clause"
)

const dateLayout = "2006-01-02"

// ProfileInput 个人资料表单
type ProfileInput struct {
	Bio         string `form:"bio"`
	Location    string `form:"location" validate:"max=100"`
	Website     string `form:"website" validate:"omitempty,url,max=200"`
	LinkedinURL string `form:"linkedin_url" validate:"omitempty,url,max=200"`
	GithubURL   string `form:"github_url" validate:"omitempty,url,max=200"`
	TwitterURL  string `form:"twitter_url" validate:"omitempty,url,max=200"`
	Phone       string `form:"phone" validate:"max=20"`
	BirthDate   string `form:"birth_date" validate:"omitempty,day"`
}

// OwnerView 关于页所需数据：站长资料、经历、证书、技能
type OwnerView struct {
	User           models.User
	Profile        models.Profile
	Experiences    []models.Experience
	Certifications []models.Certification
	Skills         []models.Skill
	UserSkills     []models.UserSkill
}

type ProfileService struct {
	db      *gorm.DB
	storage Storage
	log     logrus.FieldLogger
}

func NewProfileService(db *gorm.DB, storage Storage, log logrus.FieldLogger) *ProfileService {
	return &ProfileService{db: db, storage: storage, log: log}
}

func ensureProfile(tx *gorm.DB, userID uint) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&models.Profile{UserID: userID}).Error
}

// EnsureProfile 返回用户的资料，不存在时创建
func (s *ProfileService) EnsureProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	db := s.db.WithContext(ctx)
	if err := ensureProfile(db, userID); err != nil {
		return nil, apperr.FromDB(err, "profile")
	}
	var p models.Profile
	if err := db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, apperr.FromDB(err, "profile")
	}
	return &p, nil
}

// Upsert 保存操作者的资料，结束后该用户恰好有一条资料。
// 头像先写入存储，存储失败时不改动数据库。
func (s *ProfileService) Upsert(ctx context.Context, actor Actor, in ProfileInput, image *Upload) (*models.Profile, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if image != nil {
		if err := checkImage(image); err != nil {
			return nil, err
		}
	}

	p := models.Profile{
		UserID:      actor.UserID,
		Bio:         strings.TrimSpace(in.Bio),
		Location:    strings.TrimSpace(in.Location),
		Website:     in.Website,
		LinkedinURL: in.LinkedinURL,
		GithubURL:   in.GithubURL,
		TwitterURL:  in.TwitterURL,
		Phone:       strings.TrimSpace(in.Phone),
	}
	if in.BirthDate != "" {
		d, _ := time.Parse(dateLayout, in.BirthDate)
		p.BirthDate = &d
	}
	cols := []string{"bio", "location", "website", "linkedin_url", "github_url", "twitter_url", "phone", "birth_date", "updated_at"}

	db := s.db.WithContext(ctx)
	var previous models.Profile
	if err := db.Where("user_id = ?", actor.UserID).First(&previous).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.FromDB(err, "profile")
	}

	if image != nil {
		ref, err := s.storage.Save(ctx, "profile_images", image)
		if err != nil {
			return nil, err
		}
		p.ProfileImage = ref
		cols = append(cols, "profile_image")
	} else {
		p.ProfileImage = previous.ProfileImage
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(&p).Error
	if err != nil {
		if image != nil {
			s.removeMedia(ctx, p.ProfileImage)
		}
		return nil, apperr.FromDB(err, "profile")
	}
	if image != nil && previous.ProfileImage != "" && previous.ProfileImage != p.ProfileImage {
		s.removeMedia(ctx, previous.ProfileImage)
	}

	var saved models.Profile
	if err := db.Where("user_id = ?", actor.UserID).First(&saved).Error; err != nil {
		return nil, apperr.FromDB(err, "profile")
	}
	return &saved, nil
}

// Owner 站点所有者（第一个超级用户）的资料和履历
func (s *ProfileService) Owner(ctx context.Context) (*OwnerView, error) {
	db := s.db.WithContext(ctx)
	var v OwnerView
	if err := db.Where("is_superuser = ?", true).Order("id").First(&v.User).Error; err != nil {
		return nil, apperr.FromDB(err, "profile")
	}
	p, err := s.EnsureProfile(ctx, v.User.ID)
	if err != nil {
		return nil, err
	}
	v.Profile = *p
	v.Profile.User = v.User

	if err := db.Preload("Technologies", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Where("user_id = ?", v.User.ID).Order("start_date DESC").Find(&v.Experiences).Error; err != nil {
		return nil, apperr.FromDB(err, "experience")
	}
	if err := db.Where("user_id = ?", v.User.ID).Order("issue_date DESC").Find(&v.Certifications).Error; err != nil {
		return nil, apperr.FromDB(err, "certification")
	}
	if err := db.Order("category, name").Find(&v.Skills).Error; err != nil {
		return nil, apperr.FromDB(err, "skill")
	}
	if v.UserSkills, err = NewSkillService(s.db).ListUserSkills(ctx, v.User.ID); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *ProfileService) removeMedia(ctx context.Context, ref string) {
	discard(ctx, s.storage, s.log, ref)
}
