package permit

import "github.com/samber/lo"

// Action is a specific permitted operation on a resource.
type Action string

const (
	ActionViewWorkspace          Action = "workspace:view"
	ActionEditWorkspace          Action = "workspace:edit"
	ActionDeleteWorkspace        Action = "workspace:delete"
	ActionManageWorkspaceMembers Action = "workspace:manage_members"
	ActionInviteMember           Action = "workspace:invite"
	ActionCreateProject          Action = "workspace:create_project"

	ActionViewProject          Action = "project:view"
	ActionEditProject          Action = "project:edit"
	ActionDeleteProject        Action = "project:delete"
	ActionManageProjectMembers Action = "project:manage_members"
	ActionCreateTask           Action = "project:create_task"

	ActionViewTask        Action = "task:view"
	ActionEditTask        Action = "task:edit"
	ActionDeleteTask      Action = "task:delete"
	ActionComment         Action = "task:comment"
	ActionViewAttachments Action = "task:view_attachments"
	ActionAssignTask      Action = "task:assign"
)

// capability is the fixed table mapping an action to the relations allowed to
// perform it. The policy is defined once, here, and nowhere else.
var capability = map[Action][]Relation{
	ActionViewWorkspace:          {RelMember, RelTaskAssignee, RelTaskCreator, RelAdmin, RelOwner},
	ActionEditWorkspace:          {RelAdmin, RelOwner},
	ActionDeleteWorkspace:        {RelOwner},
	ActionManageWorkspaceMembers: {RelAdmin, RelOwner},
	ActionInviteMember:           {RelAdmin, RelOwner},
	ActionCreateProject:          {RelAdmin, RelOwner},

	ActionViewProject:          {RelMember, RelAdmin, RelOwner},
	ActionEditProject:          {RelAdmin, RelOwner},
	ActionDeleteProject:        {RelAdmin, RelOwner},
	ActionManageProjectMembers: {RelAdmin, RelOwner},
	ActionCreateTask:           {RelMember, RelAdmin, RelOwner},

	ActionViewTask:        {RelMember, RelTaskAssignee, RelTaskCreator, RelAdmin, RelOwner},
	ActionEditTask:        {RelTaskAssignee, RelTaskCreator, RelAdmin, RelOwner},
	ActionDeleteTask:      {RelTaskCreator, RelAdmin, RelOwner},
	ActionComment:         {RelTaskCreator, RelTaskAssignee, RelAdmin, RelOwner},
	ActionViewAttachments: {RelTaskCreator, RelTaskAssignee, RelAdmin, RelOwner},
	ActionAssignTask:      {RelAdmin, RelOwner},
}

// ValidAction reports whether the action string names a known action, for
// request validation before evaluation.
func ValidAction(a Action) bool {
	_, ok := capability[a]
	return ok
}

// Allowed is a pure function of (relation, action). It performs no I/O; the
// caller supplies the already-resolved relation.
func Allowed(rel Relation, action Action) bool {
	return lo.Contains(capability[action], rel)
}

// CanMutateAssignment decides whether the requester may add or remove the
// given target users on a task. Self-assignment is an independent allow rule:
// a user without general assign capability may still mutate an assignee set
// consisting solely of their own user id, even with no project relation at
// all. The coordinator separately rejects targets outside the project's
// workspace, so the carve-out never reaches beyond workspace members. The
// rule is per-target-user: a request mixing self and others is denied as a
// whole.
func CanMutateAssignment(rel Relation, requesterID uint, targetUserIDs []uint) bool {
	if Allowed(rel, ActionAssignTask) {
		return true
	}
	if len(targetUserIDs) == 0 {
		return false
	}
	return lo.EveryBy(targetUserIDs, func(id uint) bool { return id == requesterID })
}
