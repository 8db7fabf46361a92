package models

import (
	"time"
)

type Project struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"size:200;not null" json:"title"`
	Slug          string         `gorm:"size:200;not null;uniqueIndex" json:"slug"`
	Description   string         `gorm:"type:text;not null" json:"description"`
	Content       string         `gorm:"type:text;not null" json:"content"` // markdown
	FeaturedImage string         `json:"featured_image"`
	GithubURL     string         `json:"github_url"`
	LiveURL       string         `json:"live_url"`
	Categories    []Category     `gorm:"many2many:project_categories;" json:"categories"`
	Technologies  []Technology   `gorm:"many2many:project_technologies;" json:"technologies"`
	Images        []ProjectImage `gorm:"constraint:OnDelete:CASCADE;" json:"images"`
	Files         []ProjectFile  `gorm:"constraint:OnDelete:CASCADE;" json:"files"`
	IsFeatured    bool           `gorm:"not null;default:false;index" json:"is_featured"`
	Views         uint           `gorm:"not null;default:0" json:"views"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type ProjectImage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;index" json:"project_id"`
	Image       string    `gorm:"not null" json:"image"` // storage reference
	Title       string    `gorm:"size:200" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsCover     bool      `gorm:"not null;default:false" json:"is_cover"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProjectFile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;index" json:"project_id"`
	File        string    `gorm:"not null" json:"file"` // storage reference
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	UploadedAt  time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}
