// Package notify implements the notification outbox: primary mutations append
// rows inside their own transaction, and a cron-driven drain worker turns them
// into notification rows, websocket events and emails. Delivery failures are
// retried on the next tick and never surface to the caller of the primary
// action.
package notify

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/dao/model"
)

type Outbox struct{}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) append(tx *gorm.DB, row *model.NotificationOutbox) error {
	return tx.Create(row).Error
}

func metadata(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// TaskAssigned implements assign.Notifier.
func (o *Outbox) TaskAssigned(tx *gorm.DB, recipientID uint, task *model.Task, actorID uint) error {
	return o.append(tx, &model.NotificationOutbox{
		RecipientID: recipientID,
		Type:        model.NotifyTaskAssigned,
		Title:       "New task assignment",
		Message:     fmt.Sprintf("You have been assigned to task %q", task.Title),
		Metadata:    metadata(map[string]uint{"taskId": task.ID, "projectId": task.ProjectID, "actorId": actorID}),
	})
}

func (o *Outbox) CommentAdded(tx *gorm.DB, recipientID uint, task *model.Task, actorID uint) error {
	return o.append(tx, &model.NotificationOutbox{
		RecipientID: recipientID,
		Type:        model.NotifyCommentAdded,
		Title:       "New comment",
		Message:     fmt.Sprintf("New comment on task %q", task.Title),
		Metadata:    metadata(map[string]uint{"taskId": task.ID, "projectId": task.ProjectID, "actorId": actorID}),
	})
}

// WorkspaceInvite targets an email address; the invitee may not have an
// account yet, so RecipientID stays zero and delivery is mail-only.
func (o *Outbox) WorkspaceInvite(tx *gorm.DB, email string, ws *model.Workspace, token string) error {
	return o.append(tx, &model.NotificationOutbox{
		Type:     model.NotifyWorkspaceInvite,
		Title:    "Workspace invitation",
		Message:  fmt.Sprintf("You have been invited to join workspace %q", ws.Name),
		Email:    &email,
		Metadata: metadata(map[string]any{"workspaceId": ws.ID, "token": token}),
	})
}

func (o *Outbox) InviteAccepted(tx *gorm.DB, recipientID uint, ws *model.Workspace, inviteeName string) error {
	return o.append(tx, &model.NotificationOutbox{
		RecipientID: recipientID,
		Type:        model.NotifyInviteAccepted,
		Title:       "Invitation accepted",
		Message:     fmt.Sprintf("%s joined workspace %q", inviteeName, ws.Name),
		Metadata:    metadata(map[string]any{"workspaceId": ws.ID}),
	})
}

func (o *Outbox) ChannelMessage(tx *gorm.DB, recipientID uint, channel *model.Channel, authorID uint) error {
	return o.append(tx, &model.NotificationOutbox{
		RecipientID: recipientID,
		Type:        model.NotifyChannelMessage,
		Title:       "New message",
		Message:     fmt.Sprintf("New message in #%s", channel.Name),
		Metadata:    metadata(map[string]uint{"channelId": channel.ID, "workspaceId": channel.WorkspaceID, "actorId": authorID}),
	})
}
