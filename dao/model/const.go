// Constants mapped to database columns.
// Gin rejects zero values for fields tagged `binding:"required"`, so enum
// constants start at iota + 1 to keep the zero value out of the valid range.
package model

// Role is the capability level of a user inside a workspace or project.
// Platform-wide admin reuses the same enum.
type Role uint8

const (
	RoleMember Role = iota + 1
	RoleAdmin
	RoleOwner
)

// User status
type Status uint8

const (
	StatusPending  Status = iota + 1 // Pending status, not yet activated
	StatusActive                     // Active status
	StatusInactive                   // Inactive status
)

// Task status
type TaskStatus uint8

const (
	TaskTodo TaskStatus = iota + 1
	TaskInProgress
	TaskDone
)

// Task priority
type TaskPriority uint8

const (
	PriorityLow TaskPriority = iota + 1
	PriorityMedium
	PriorityHigh
)

// Workspace invitation status. Expiry is evaluated by timestamp comparison at
// read time; StatusExpired is only materialized by the sweep worker.
type InvitationStatus uint8

const (
	InvitationPending InvitationStatus = iota + 1
	InvitationAccepted
	InvitationDeclined
	InvitationExpired
)

// Notification type
type NotificationType string

const (
	NotifyTaskAssigned    NotificationType = "task_assigned"
	NotifyCommentAdded    NotificationType = "comment_added"
	NotifyWorkspaceInvite NotificationType = "workspace_invite"
	NotifyInviteAccepted  NotificationType = "invite_accepted"
	NotifyChannelMessage  NotificationType = "channel_message"
)
