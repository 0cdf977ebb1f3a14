package model

import (
	"time"

	"gorm.io/gorm"
)

// Workspace is the top-level tenant container owning projects and members.
// The owner always has an explicit member row with RoleOwner, created in the
// same transaction as the workspace itself.
type Workspace struct {
	gorm.Model
	Name        string  `gorm:"type:varchar(64);not null;comment:workspace name"`
	Description *string `gorm:"type:varchar(256);comment:workspace description"`
	OwnerID     uint    `gorm:"not null;index;comment:owning user"`

	Members  []WorkspaceMember
	Projects []Project
}

// WorkspaceMember is hard-deleted on removal so a user who left can rejoin:
// a soft-deleted row would keep holding the (workspace_id, user_id) unique
// slot and turn the re-join insert into a silent no-op.
type WorkspaceMember struct {
	ID          uint `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	WorkspaceID uint `gorm:"not null;uniqueIndex:idx_workspace_user"`
	UserID      uint `gorm:"not null;uniqueIndex:idx_workspace_user"`
	Role        Role `gorm:"not null;comment:role in workspace (member, admin, owner)"`

	User User `gorm:"foreignKey:UserID"`
}

// WorkspaceInvitation invites an email address into a workspace. Unique per
// (workspace, email); accept/decline are terminal, expiry is a timestamp
// comparison against ExpiresAt.
type WorkspaceInvitation struct {
	gorm.Model
	WorkspaceID uint             `gorm:"not null;uniqueIndex:idx_workspace_email"`
	Email       string           `gorm:"type:varchar(128);not null;uniqueIndex:idx_workspace_email"`
	Role        Role             `gorm:"not null"`
	Status      InvitationStatus `gorm:"not null"`
	Token       string           `gorm:"type:varchar(64);uniqueIndex;not null;comment:opaque accept token"`
	InviterID   uint             `gorm:"not null"`
	ExpiresAt   time.Time        `gorm:"not null"`

	Workspace Workspace `gorm:"foreignKey:WorkspaceID"`
	Inviter   User      `gorm:"foreignKey:InviterID"`
}

// Expired reports whether the invitation has passed its deadline, regardless
// of whether the sweep worker has materialized InvitationExpired yet.
func (i *WorkspaceInvitation) Expired(now time.Time) bool {
	return i.Status == InvitationExpired ||
		(i.Status == InvitationPending && now.After(i.ExpiresAt))
}
