package model

import "gorm.io/gorm"

// Channel is a team messaging room scoped to a workspace.
type Channel struct {
	gorm.Model
	WorkspaceID uint   `gorm:"not null;uniqueIndex:idx_workspace_channel"`
	Name        string `gorm:"type:varchar(64);not null;uniqueIndex:idx_workspace_channel"`
	CreatedBy   uint   `gorm:"not null"`

	Messages []ChannelMessage
}

type ChannelMessage struct {
	gorm.Model
	ChannelID uint   `gorm:"not null;index"`
	AuthorID  uint   `gorm:"not null"`
	Body      string `gorm:"type:text;not null"`

	Author User `gorm:"foreignKey:AuthorID"`
}
