package models

import (
	"time"
)

type ExperienceType string

const (
	ExperienceWork       ExperienceType = "work"
	ExperienceFreelance  ExperienceType = "freelance"
	ExperienceInternship ExperienceType = "internship"
)

// ExperienceTypes lists the selectable types in display order.
var ExperienceTypes = []ExperienceType{ExperienceWork, ExperienceFreelance, ExperienceInternship}

var experienceLabels = map[ExperienceType]string{
	ExperienceWork:       "Work",
	ExperienceFreelance:  "Freelance",
	ExperienceInternship: "Internship",
}

// Label 展示名
func (t ExperienceType) Label() string {
	if l, ok := experienceLabels[t]; ok {
		return l
	}
	return string(t)
}

func (t ExperienceType) Valid() bool {
	switch t {
	case ExperienceWork, ExperienceFreelance, ExperienceInternship:
		return true
	}
	return false
}

type Experience struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"not null;index" json:"user_id"`
	User           User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title          string         `gorm:"size:200;not null" json:"title"`
	Company        string         `gorm:"size:200;not null" json:"company"`
	ExperienceType ExperienceType `gorm:"type:varchar(20);not null;default:'work'" json:"experience_type"`
	StartDate      time.Time      `gorm:"type:date;not null;index" json:"start_date"`
	EndDate        *time.Time     `gorm:"type:date" json:"end_date"`
	Current        bool           `gorm:"not null;default:false" json:"current"`
	Description    string         `gorm:"type:text;not null" json:"description"`
	Technologies   []Skill        `gorm:"many2many:experience_skills;" json:"technologies"`
	Achievements   string         `gorm:"type:text" json:"achievements"`
	Location       string         `gorm:"size:100" json:"location"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
