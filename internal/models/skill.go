package models

type SkillCategory string

const (
	SkillProgramming SkillCategory = "programming"
	SkillDatabase    SkillCategory = "database"
	SkillBITools     SkillCategory = "bi_tools"
	SkillMLAI        SkillCategory = "ml_ai"
	SkillCloud       SkillCategory = "cloud"
	SkillOther       SkillCategory = "other"
)

var SkillCategories = []SkillCategory{SkillProgramming, SkillDatabase, SkillBITools, SkillMLAI, SkillCloud, SkillOther}

var skillLabels = map[SkillCategory]string{
	SkillProgramming: "Programming",
	SkillDatabase:    "Databases",
	SkillBITools:     "BI Tools",
	SkillMLAI:        "Machine Learning / AI",
	SkillCloud:       "Cloud",
	SkillOther:       "Other",
}

func (c SkillCategory) Label() string {
	if l, ok := skillLabels[c]; ok {
		return l
	}
	return string(c)
}

func (c SkillCategory) Valid() bool {
	for _, v := range SkillCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Skill is a global catalog entry.
type Skill struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	Name             string        `gorm:"size:100;not null" json:"name"`
	Category         SkillCategory `gorm:"type:varchar(20);not null;default:'other';index" json:"category"`
	ProficiencyLevel int           `gorm:"not null;default:3" json:"proficiency_level"` // 1-5
	Icon             string        `gorm:"size:50" json:"icon"`
	Color            string        `gorm:"size:7;not null;default:'#6c757d'" json:"color"`
}

// UserSkill rates one catalog skill for one user.
type UserSkill struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	UserID           uint    `gorm:"not null;uniqueIndex:idx_user_skill" json:"user_id"`
	User             User    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	SkillID          uint    `gorm:"not null;uniqueIndex:idx_user_skill" json:"skill_id"`
	Skill            Skill   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"skill"`
	ProficiencyLevel int     `gorm:"not null;default:3" json:"proficiency_level"`
	YearsExperience  float64 `gorm:"type:decimal(3,1);not null;default:0" json:"years_experience"`
}
