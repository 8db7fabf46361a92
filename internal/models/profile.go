package models

import (
	"time"
)

// Profile holds the personal data shown on the about page. One per user.
type Profile struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	User         User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Bio          string     `gorm:"type:text" json:"bio"`
	ProfileImage string     `json:"profile_image"` // storage reference
	Location     string     `gorm:"size:100" json:"location"`
	Website      string     `json:"website"`
	LinkedinURL  string     `json:"linkedin_url"`
	GithubURL    string     `json:"github_url"`
	TwitterURL   string     `json:"twitter_url"`
	Phone        string     `gorm:"size:20" json:"phone"`
	BirthDate    *time.Time `gorm:"type:date" json:"birth_date"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
