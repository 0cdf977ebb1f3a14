package query

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/dao/model"
)

// Migrate runs the versioned schema migrations. New migrations are appended,
// never edited in place.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202608010001",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&model.User{},
					&model.Workspace{},
					&model.WorkspaceMember{},
					&model.WorkspaceInvitation{},
					&model.Project{},
					&model.ProjectMember{},
					&model.Task{},
					&model.TaskAssignee{},
					&model.Comment{},
					&model.Attachment{},
					&model.Notification{},
					&model.NotificationOutbox{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					"notification_outboxes", "notifications",
					"attachments", "comments", "task_assignees", "tasks",
					"project_members", "projects",
					"workspace_invitations", "workspace_members", "workspaces",
					"users",
				)
			},
		},
		{
			ID: "202608120001",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.Channel{}, &model.ChannelMessage{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("channel_messages", "channels")
			},
		},
		{
			ID: "202608200001",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.EmailMessage{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("email_messages")
			},
		},
	})
	return m.Migrate()
}
