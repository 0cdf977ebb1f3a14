// Package assign mutates the task assignee collection while keeping the
// legacy single-assignee mirror consistent and fanning out notifications
// through the outbox.
package assign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/raids-lab/teamspace/dao/model"
	"github.com/raids-lab/teamspace/pkg/logutils"
	"github.com/raids-lab/teamspace/pkg/permit"
)

// ErrForbidden is returned when the requester lacks assign capability and the
// mutation is not a pure self-assignment.
var ErrForbidden = errors.New("assignment not permitted")

// InvalidTargetsError reports target users that are not members of the task's
// workspace. Handled as a validation failure, not a permission one.
type InvalidTargetsError struct {
	UserIDs []uint
}

func (e *InvalidTargetsError) Error() string {
	return fmt.Sprintf("users %v are not members of the workspace", e.UserIDs)
}

// Notifier appends a task-assignment event for later delivery. Append errors
// are logged and swallowed; they never fail the primary mutation.
type Notifier interface {
	TaskAssigned(tx *gorm.DB, recipientID uint, task *model.Task, actorID uint) error
}

type Coordinator struct {
	db       *gorm.DB
	resolver *permit.Resolver
	notifier Notifier
}

func NewCoordinator(db *gorm.DB, resolver *permit.Resolver, notifier Notifier) *Coordinator {
	return &Coordinator{db: db, resolver: resolver, notifier: notifier}
}

type AddResult struct {
	Message     string
	NewUserIDs  []uint
	Assignments []model.TaskAssignee
}

type RemoveResult struct {
	Message      string
	RemovedCount int64
}

// AddAssignees attaches the target users to the task. Targets must all be
// members of the task's workspace; duplicates against current assignees are
// ignored. Zero genuinely new users is a success, not an error.
func (c *Coordinator) AddAssignees(ctx context.Context, taskID, requesterID uint, targetUserIDs []uint) (*AddResult, error) {
	rel, task, err := c.resolver.TaskRelation(ctx, requesterID, taskID)
	if err != nil {
		return nil, err
	}
	if !permit.CanMutateAssignment(rel, requesterID, targetUserIDs) {
		return nil, ErrForbidden
	}

	targets := lo.Uniq(targetUserIDs)
	if invalid, err := c.nonMembers(ctx, task.ProjectID, targets); err != nil {
		return nil, err
	} else if len(invalid) > 0 {
		return nil, &InvalidTargetsError{UserIDs: invalid}
	}

	current, err := c.assigneeIDs(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	newIDs := NewAssigneeIDs(current, targets)
	if len(newIDs) == 0 {
		return &AddResult{Message: "all requested users are already assigned"}, nil
	}

	now := time.Now()
	rows := lo.Map(newIDs, func(userID uint, _ int) model.TaskAssignee {
		return model.TaskAssignee{
			TaskID:     task.ID,
			UserID:     userID,
			AssignedBy: requesterID,
			AssignedAt: now,
		}
	})

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The unique index on (task_id, user_id) is the only guard against a
		// concurrent duplicate insert; a conflict is a no-op, not an error.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
		if mirror := MirrorAfterAdd(task.AssigneeID, newIDs); mirror != task.AssigneeID {
			if err := tx.Model(task).Update("assignee_id", mirror).Error; err != nil {
				return err
			}
		}
		for _, userID := range newIDs {
			if err := c.notifier.TaskAssigned(tx, userID, task, requesterID); err != nil {
				logutils.Log.WithFields(logutils.Fields{
					"task": task.ID, "user": userID,
				}).Warnf("append assignment notification failed: %v", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AddResult{
		Message:     fmt.Sprintf("assigned %d user(s)", len(newIDs)),
		NewUserIDs:  newIDs,
		Assignments: rows,
	}, nil
}

// RemoveAssignees detaches the target users. The requester must hold assign
// capability or be removing only themselves. The legacy mirror is re-derived
// in the same transaction.
func (c *Coordinator) RemoveAssignees(ctx context.Context, taskID, requesterID uint, targetUserIDs []uint) (*RemoveResult, error) {
	rel, task, err := c.resolver.TaskRelation(ctx, requesterID, taskID)
	if err != nil {
		return nil, err
	}
	if !permit.CanMutateAssignment(rel, requesterID, targetUserIDs) {
		return nil, ErrForbidden
	}

	targets := lo.Uniq(targetUserIDs)
	var removed int64
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("task_id = ? AND user_id IN ?", task.ID, targets).
			Delete(&model.TaskAssignee{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		var remaining []uint
		if err := tx.Model(&model.TaskAssignee{}).
			Where("task_id = ?", task.ID).
			Order("id").
			Pluck("user_id", &remaining).Error; err != nil {
			return err
		}
		if mirror := MirrorAfterRemove(task.AssigneeID, targets, remaining); !equalMirror(mirror, task.AssigneeID) {
			if err := tx.Model(task).Update("assignee_id", mirror).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("removed %d assignee(s)", removed)
	if removed == 0 {
		message = "no matching assignees to remove"
	}
	return &RemoveResult{Message: message, RemovedCount: removed}, nil
}

func (c *Coordinator) assigneeIDs(ctx context.Context, taskID uint) ([]uint, error) {
	var ids []uint
	err := c.db.WithContext(ctx).Model(&model.TaskAssignee{}).
		Where("task_id = ?", taskID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// nonMembers returns the target ids without a membership row in the task's
// workspace (the workspace owner counts as a member).
func (c *Coordinator) nonMembers(ctx context.Context, projectID uint, targets []uint) ([]uint, error) {
	var project model.Project
	if err := c.db.WithContext(ctx).First(&project, projectID).Error; err != nil {
		return nil, err
	}
	var ws model.Workspace
	if err := c.db.WithContext(ctx).First(&ws, project.WorkspaceID).Error; err != nil {
		return nil, err
	}
	var memberIDs []uint
	if err := c.db.WithContext(ctx).Model(&model.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id IN ?", ws.ID, targets).
		Pluck("user_id", &memberIDs).Error; err != nil {
		return nil, err
	}
	invalid := lo.Filter(targets, func(id uint, _ int) bool {
		return id != ws.OwnerID && !lo.Contains(memberIDs, id)
	})
	return invalid, nil
}

func equalMirror(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
