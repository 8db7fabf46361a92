package services

import (
	"context"
	"folio/internal/apperr"
	"folio/internal/models"
	"folio/internal/validation"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// SkillInput 技能目录表单
type SkillInput struct {
	Name             string `form:"name" validate:"required,max=100"`
	Category         string `form:"category" validate:"omitempty,oneof=programming database bi_tools ml_ai cloud other"`
	ProficiencyLevel int    `form:"proficiency_level" validate:"omitempty,level"`
	Icon             string `form:"icon" validate:"max=50"`
	Color            string `form:"color" validate:"omitempty,hexcolor,len=7"`
}

// UserSkillInput 个人技能评分
type UserSkillInput struct {
	SkillID          uint    `form:"skill" validate:"required"`
	ProficiencyLevel int     `form:"proficiency_level" validate:"level"`
	YearsExperience  float64 `form:"years_experience" validate:"gte=0,lte=99.9"`
}

type SkillService struct {
	db *gorm.DB
}

func NewSkillService(db *gorm.DB) *SkillService {
	return &SkillService{db: db}
}

// List 按 (category, name) 排序的技能目录
func (s *SkillService) List(ctx context.Context) ([]models.Skill, error) {
	var list []models.Skill
	err := s.db.WithContext(ctx).Order("category, name").Find(&list).Error
	return list, apperr.FromDB(err, "skill")
}

func (in *SkillInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	if in.Category == "" {
		in.Category = string(models.SkillOther)
	}
	if in.ProficiencyLevel == 0 {
		in.ProficiencyLevel = 3
	}
	if in.Color == "" {
		in.Color = "#6c757d"
	}
}

func (s *SkillService) Create(ctx context.Context, actor Actor, in SkillInput) (*models.Skill, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	sk := models.Skill{
		Name:             in.Name,
		Category:         models.SkillCategory(in.Category),
		ProficiencyLevel: in.ProficiencyLevel,
		Icon:             in.Icon,
		Color:            in.Color,
	}
	if err := s.db.WithContext(ctx).Create(&sk).Error; err != nil {
		return nil, apperr.FromDB(err, "skill")
	}
	return &sk, nil
}

func (s *SkillService) Update(ctx context.Context, actor Actor, id uint, in SkillInput) (*models.Skill, error) {
	if err := actor.requireSuperuser(); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var sk models.Skill
	if err := db.First(&sk, id).Error; err != nil {
		return nil, apperr.FromDB(err, "skill")
	}
	sk.Name = in.Name
	sk.Category = models.SkillCategory(in.Category)
	sk.ProficiencyLevel = in.ProficiencyLevel
	sk.Icon = in.Icon
	sk.Color = in.Color
	if err := db.Save(&sk).Error; err != nil {
		return nil, apperr.FromDB(err, "skill")
	}
	return &sk, nil
}

// Delete 删除目录中的技能，同时移除引用它的个人技能和经历关联
func (s *SkillService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := actor.requireSuperuser(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sk models.Skill
		if err := tx.First(&sk, id).Error; err != nil {
			return err
		}
		if err := tx.Where("skill_id = ?", id).Delete(&models.UserSkill{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM experience_skills WHERE skill_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&sk).Error
	})
	return apperr.FromDB(err, "skill")
}

// ListUserSkills 用户的技能评分，按目录顺序
func (s *SkillService) ListUserSkills(ctx context.Context, userID uint) ([]models.UserSkill, error) {
	var list []models.UserSkill
	if err := s.db.WithContext(ctx).Preload("Skill").Where("user_id = ?", userID).Find(&list).Error; err != nil {
		return nil, apperr.FromDB(err, "skill")
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Skill, list[j].Skill
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Name < b.Name
	})
	return list, nil
}

// AddUserSkill 同一用户同一技能只能有一条，重复时返回 conflict
func (s *SkillService) AddUserSkill(ctx context.Context, actor Actor, in UserSkillInput) (*models.UserSkill, error) {
	if err := actor.requireAuth(); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var sk models.Skill
	if err := db.First(&sk, in.SkillID).Error; err != nil {
		return nil, apperr.FromDB(err, "skill")
	}
	us := models.UserSkill{
		UserID:           actor.UserID,
		SkillID:          sk.ID,
		ProficiencyLevel: in.ProficiencyLevel,
		YearsExperience:  in.YearsExperience,
	}
	if err := db.Omit("User", "Skill").Create(&us).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Wrap(err, apperr.CodeConflict, "You already rated this skill.").
				WithField("skill", "You already rated this skill.")
		}
		return nil, apperr.FromDB(err, "skill")
	}
	us.Skill = sk
	return &us, nil
}

func (s *SkillService) UpdateUserSkill(ctx context.Context, actor Actor, id uint, in UserSkillInput) (*models.UserSkill, error) {
	if err := actor.requireAuth(); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var us models.UserSkill
	if err := db.Where("id = ? AND user_id = ?", id, actor.UserID).First(&us).Error; err != nil {
		return nil, apperr.FromDB(err, "skill")
	}
	err := db.Model(&us).Updates(map[string]any{
		"proficiency_level": in.ProficiencyLevel,
		"years_experience":  in.YearsExperience,
	}).Error
	if err != nil {
		return nil, apperr.FromDB(err, "skill")
	}
	us.ProficiencyLevel = in.ProficiencyLevel
	us.YearsExperience = in.YearsExperience
	return &us, nil
}

func (s *SkillService) RemoveUserSkill(ctx context.Context, actor Actor, id uint) error {
	if err := actor.requireAuth(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, actor.UserID).Delete(&models.UserSkill{})
	if res.Error != nil {
		return apperr.FromDB(res.Error, "skill")
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, "skill not found")
	}
	return nil
}
