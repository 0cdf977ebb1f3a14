// Package permit centralizes role resolution and permission decisions.
// Handlers resolve a single relation token for (user, resource) and feed it to
// the pure evaluator; no route handler re-implements ownership checks.
package permit

import (
	"github.com/raids-lab/teamspace/dao/model"
)

// Relation is the effective relationship of a user to a resource, the tagged
// variant consumed by the evaluator. Structural power (owner, admin) shadows
// task-level relations; task-level relations shadow plain membership.
type Relation uint8

const (
	RelNone Relation = iota + 1
	RelMember
	RelTaskAssignee
	RelTaskCreator
	RelAdmin
	RelOwner
)

func (r Relation) String() string {
	switch r {
	case RelMember:
		return "member"
	case RelTaskAssignee:
		return "assignee"
	case RelTaskCreator:
		return "creator"
	case RelAdmin:
		return "admin"
	case RelOwner:
		return "owner"
	default:
		return "none"
	}
}

func roleRelation(role model.Role) Relation {
	switch role {
	case model.RoleOwner:
		return RelOwner
	case model.RoleAdmin:
		return RelAdmin
	case model.RoleMember:
		return RelMember
	default:
		return RelNone
	}
}

// WorkspaceRelationOf derives the workspace relation from the owner column and
// the membership row (nil when absent). The owner is an implicit owner-level
// member even if the member row is missing.
func WorkspaceRelationOf(ws *model.Workspace, memberRole *model.Role, userID uint) Relation {
	if ws.OwnerID == userID {
		return RelOwner
	}
	if memberRole == nil {
		return RelNone
	}
	return roleRelation(*memberRole)
}

// ProjectRelationOf derives the project relation. Workspace owners and admins
// have implicit admin access to every project in the workspace.
func ProjectRelationOf(p *model.Project, wsRel Relation, memberRole *model.Role, userID uint) Relation {
	if p.OwnerID == userID {
		return RelOwner
	}
	if wsRel == RelOwner || wsRel == RelAdmin {
		return RelAdmin
	}
	if memberRole == nil {
		return RelNone
	}
	return roleRelation(*memberRole)
}

// TaskRelationOf derives the task relation. Creator and assignee are implicit
// relations that grant access without any membership row; the legacy single
// assignee column counts the same as a TaskAssignee row.
func TaskRelationOf(t *model.Task, projRel Relation, isAssignee bool, userID uint) Relation {
	if projRel == RelOwner || projRel == RelAdmin {
		return projRel
	}
	if t.CreatorID == userID {
		return RelTaskCreator
	}
	if isAssignee || (t.AssigneeID != nil && *t.AssigneeID == userID) {
		return RelTaskAssignee
	}
	return projRel
}
