package model

import (
	"time"

	"gorm.io/gorm"
)

// EmailMessage is an ingested email pending or holding a triage
// classification. Classification fields stay null until the external
// classifier has been consulted; a failed or unconfigured classifier yields
// the fallback category instead of an error.
type EmailMessage struct {
	gorm.Model
	UserID   uint    `gorm:"not null;index"`
	FromAddr string  `gorm:"type:varchar(128);not null"`
	Subject  string  `gorm:"type:varchar(256);not null"`
	Snippet  string  `gorm:"type:varchar(256)"`
	Body     *string `gorm:"type:text"`

	Category     *string `gorm:"type:varchar(32)"`
	Confidence   *float64
	Reasoning    *string `gorm:"type:varchar(512)"`
	ClassifiedAt *time.Time
}
