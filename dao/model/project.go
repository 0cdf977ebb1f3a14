package model

import (
	"time"

	"gorm.io/gorm"
)

// Project belongs to exactly one workspace. The workspace owner and admins
// have implicit project access even without a ProjectMember row; that
// derivation lives in pkg/permit, not in the schema.
type Project struct {
	gorm.Model
	WorkspaceID uint    `gorm:"not null;index"`
	OwnerID     uint    `gorm:"not null;comment:project owner"`
	Name        string  `gorm:"type:varchar(64);not null"`
	Description *string `gorm:"type:varchar(256)"`

	Members []ProjectMember
	Tasks   []Task
}

// ProjectMember is hard-deleted on removal, like WorkspaceMember: a removed
// member must free the (project_id, user_id) unique slot so re-adding them
// creates a fresh row instead of a silent conflict no-op.
type ProjectMember struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	ProjectID uint `gorm:"not null;uniqueIndex:idx_project_user"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_project_user"`
	Role      Role `gorm:"not null;comment:project-scoped role"`

	User User `gorm:"foreignKey:UserID"`
}
