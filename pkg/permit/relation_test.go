package permit

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/raids-lab/teamspace/dao/model"
)

func TestWorkspaceRelationOf(t *testing.T) {
	ws := &model.Workspace{OwnerID: 1}

	assert.Equal(t, RelOwner, WorkspaceRelationOf(ws, nil, 1), "owner is implicit even without a member row")
	assert.Equal(t, RelNone, WorkspaceRelationOf(ws, nil, 2))
	assert.Equal(t, RelAdmin, WorkspaceRelationOf(ws, lo.ToPtr(model.RoleAdmin), 2))
	assert.Equal(t, RelMember, WorkspaceRelationOf(ws, lo.ToPtr(model.RoleMember), 2))
}

func TestProjectRelationOf(t *testing.T) {
	project := &model.Project{OwnerID: 1}

	assert.Equal(t, RelOwner, ProjectRelationOf(project, RelNone, nil, 1))
	assert.Equal(t, RelAdmin, ProjectRelationOf(project, RelOwner, nil, 2),
		"workspace owner has implicit project access")
	assert.Equal(t, RelAdmin, ProjectRelationOf(project, RelAdmin, nil, 2))
	assert.Equal(t, RelMember, ProjectRelationOf(project, RelMember, lo.ToPtr(model.RoleMember), 2))
	assert.Equal(t, RelNone, ProjectRelationOf(project, RelMember, nil, 2),
		"workspace membership alone does not open a project")
}

func TestTaskRelationOf(t *testing.T) {
	task := &model.Task{CreatorID: 1, AssigneeID: lo.ToPtr(uint(2))}

	assert.Equal(t, RelTaskCreator, TaskRelationOf(task, RelMember, false, 1))
	assert.Equal(t, RelTaskAssignee, TaskRelationOf(task, RelMember, false, 2),
		"legacy assignee column counts as an assignee")
	assert.Equal(t, RelTaskAssignee, TaskRelationOf(task, RelMember, true, 3))
	assert.Equal(t, RelMember, TaskRelationOf(task, RelMember, false, 4))
	assert.Equal(t, RelNone, TaskRelationOf(task, RelNone, false, 4))
	assert.Equal(t, RelAdmin, TaskRelationOf(task, RelAdmin, false, 1),
		"structural power shadows the creator relation")
}

// Workspace WS has owner alice and member bob; project P in WS has member bob;
// task T in P was created by alice and assigned to bob.
func TestOwnerMemberScenario(t *testing.T) {
	const alice, bob = uint(1), uint(2)
	ws := &model.Workspace{OwnerID: alice}
	project := &model.Project{OwnerID: alice}
	task := &model.Task{CreatorID: alice, AssigneeID: lo.ToPtr(bob)}

	aliceWsRel := WorkspaceRelationOf(ws, nil, alice)
	bobWsRel := WorkspaceRelationOf(ws, lo.ToPtr(model.RoleMember), bob)

	aliceProjRel := ProjectRelationOf(project, aliceWsRel, nil, alice)
	bobProjRel := ProjectRelationOf(project, bobWsRel, lo.ToPtr(model.RoleMember), bob)

	bobTaskRel := TaskRelationOf(task, bobProjRel, true, bob)

	assert.True(t, Allowed(bobTaskRel, ActionComment), "assignee may comment")
	assert.True(t, Allowed(bobTaskRel, ActionViewTask))
	assert.False(t, Allowed(bobProjRel, ActionDeleteProject), "member lacks project-admin capability")
	assert.True(t, Allowed(aliceProjRel, ActionDeleteProject), "workspace owner is implicit project admin")
}
