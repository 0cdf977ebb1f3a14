package model

import (
	"time"

	"gorm.io/gorm"
)

// Task belongs to a project. AssigneeID is a legacy single-assignee mirror
// kept for older consumers: it is derived from the TaskAssignee collection and
// recomputed on every assignee mutation, never set directly.
type Task struct {
	gorm.Model
	ProjectID   uint         `gorm:"not null;index"`
	CreatorID   uint         `gorm:"not null"`
	AssigneeID  *uint        `gorm:"comment:legacy mirror of the first assignee"`
	Title       string       `gorm:"type:varchar(128);not null"`
	Description *string      `gorm:"type:text"`
	Status      TaskStatus   `gorm:"not null"`
	Priority    TaskPriority `gorm:"not null"`
	DueDate     *time.Time

	Assignees   []TaskAssignee
	Comments    []Comment
	Attachments []Attachment
}

// TaskAssignee is one user assigned to one task. The unique index on
// (task_id, user_id) is the sole guard against duplicate assignment under
// concurrent requests; a conflicting insert is treated as a no-op.
// No soft delete: a removed row must free its unique slot immediately, or a
// later re-add of the same user would conflict with the invisible row and
// insert nothing.
type TaskAssignee struct {
	ID         uint `gorm:"primarykey"`
	CreatedAt  time.Time
	TaskID     uint      `gorm:"not null;uniqueIndex:idx_task_user"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_task_user"`
	AssignedBy uint      `gorm:"not null;comment:acting user"`
	AssignedAt time.Time `gorm:"not null"`

	User     User `gorm:"foreignKey:UserID"`
	Assigner User `gorm:"foreignKey:AssignedBy"`
}

type Comment struct {
	gorm.Model
	TaskID   uint   `gorm:"not null;index"`
	AuthorID uint   `gorm:"not null"`
	Body     string `gorm:"type:text;not null"`

	Author User `gorm:"foreignKey:AuthorID"`
}

type Attachment struct {
	gorm.Model
	TaskID      uint   `gorm:"not null;index"`
	UploaderID  uint   `gorm:"not null"`
	FileName    string `gorm:"type:varchar(256);not null"`
	ContentType string `gorm:"type:varchar(128)"`
	Size        int64  `gorm:"not null"`
}
