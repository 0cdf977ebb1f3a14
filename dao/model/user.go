package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is the basic entity of the system
type User struct {
	gorm.Model
	Name       string                            `gorm:"uniqueIndex;type:varchar(32);not null;comment:login name"`
	Password   *string                           `gorm:"type:varchar(128);comment:bcrypt hash, null for LDAP-only users"`
	Role       Role                              `gorm:"not null;comment:platform role (member, admin)"`
	Status     Status                            `gorm:"not null;comment:user status (pending, active, inactive)"`
	Attributes datatypes.JSONType[UserAttribute] `gorm:"comment:profile attributes"`

	WorkspaceMembers []WorkspaceMember
}

// UserAttribute holds profile fields that do not need their own columns.
type UserAttribute struct {
	Nickname *string `json:"nickname,omitempty"`
	Email    *string `json:"email,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
}
