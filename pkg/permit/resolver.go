package permit

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/dao/model"
)

// ErrNotFound signals that the resource does not exist (or is soft-deleted).
// Callers answer 404 instead of 403 so a denial never leaks existence.
var ErrNotFound = errors.New("resource not found")

// Resolver walks ownership and membership relations to produce one Relation
// token per (user, resource). Read-only; it never mutates anything.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

func (r *Resolver) workspaceMemberRole(ctx context.Context, userID, workspaceID uint) (*model.Role, error) {
	var member model.WorkspaceMember
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member.Role, nil
}

// WorkspaceRelation resolves the user's relation to a workspace.
func (r *Resolver) WorkspaceRelation(ctx context.Context, userID, workspaceID uint) (Relation, *model.Workspace, error) {
	var ws model.Workspace
	if err := r.db.WithContext(ctx).First(&ws, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RelNone, nil, ErrNotFound
		}
		return RelNone, nil, err
	}
	role, err := r.workspaceMemberRole(ctx, userID, ws.ID)
	if err != nil {
		return RelNone, nil, err
	}
	return WorkspaceRelationOf(&ws, role, userID), &ws, nil
}

// ProjectRelation resolves the user's relation to a project, folding in the
// implicit access of the owning workspace's owner and admins.
func (r *Resolver) ProjectRelation(ctx context.Context, userID, projectID uint) (Relation, *model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RelNone, nil, ErrNotFound
		}
		return RelNone, nil, err
	}

	wsRel, _, err := r.WorkspaceRelation(ctx, userID, project.WorkspaceID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return RelNone, nil, err
	}

	var member model.ProjectMember
	var memberRole *model.Role
	err = r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", project.ID, userID).
		First(&member).Error
	switch {
	case err == nil:
		memberRole = &member.Role
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return RelNone, nil, err
	}

	return ProjectRelationOf(&project, wsRel, memberRole, userID), &project, nil
}

// TaskRelation resolves the user's relation to a task, treating creator,
// legacy single assignee and multi-assignee membership as implicit relations.
func (r *Resolver) TaskRelation(ctx context.Context, userID, taskID uint) (Relation, *model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RelNone, nil, ErrNotFound
		}
		return RelNone, nil, err
	}

	projRel, _, err := r.ProjectRelation(ctx, userID, task.ProjectID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return RelNone, nil, err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.TaskAssignee{}).
		Where("task_id = ? AND user_id = ?", task.ID, userID).
		Count(&count).Error; err != nil {
		return RelNone, nil, err
	}

	return TaskRelationOf(&task, projRel, count > 0, userID), &task, nil
}
