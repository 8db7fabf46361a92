package models

import (
	"time"
)

type Certification struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	UserID              uint       `gorm:"not null;index" json:"user_id"`
	User                User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Name                string     `gorm:"size:200;not null" json:"name"`
	IssuingOrganization string     `gorm:"size:200;not null" json:"issuing_organization"`
	IssueDate           time.Time  `gorm:"type:date;not null;index" json:"issue_date"`
	ExpiryDate          *time.Time `gorm:"type:date" json:"expiry_date"`
	CredentialID        string     `gorm:"size:100" json:"credential_id"`
	CredentialURL       string     `json:"credential_url"`
	Description         string     `gorm:"type:text" json:"description"`
	Document            string     `json:"document"` // storage reference, PDF only
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
