package permit

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/raids-lab/teamspace/dao/model"
)

func TestCommentRequiresTaskRelation(t *testing.T) {
	// A user may comment on a task when they are its creator, a current
	// assignee, the owning project's owner, or hold admin/owner standing in
	// the surrounding scope. Plain membership or no relation is not enough.
	const (
		creatorID  uint = 1
		assigneeID uint = 2
		ownerID    uint = 3
		memberID   uint = 4
		outsiderID uint = 5
		adminID    uint = 6
	)
	task := &model.Task{CreatorID: creatorID, AssigneeID: lo.ToPtr(assigneeID)}
	project := &model.Project{OwnerID: ownerID}

	cases := []struct {
		name    string
		userID  uint
		projRel Relation
		allowed bool
	}{
		{"creator", creatorID, RelMember, true},
		{"assignee", assigneeID, RelMember, true},
		{"project owner", ownerID, ProjectRelationOf(project, RelMember, nil, ownerID), true},
		{"workspace admin", adminID, RelAdmin, true},
		{"plain member", memberID, RelMember, false},
		{"unrelated user", outsiderID, RelNone, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rel := TaskRelationOf(task, tc.projRel, tc.userID == assigneeID, tc.userID)
			assert.Equal(t, tc.allowed, Allowed(rel, ActionComment))
			assert.Equal(t, tc.allowed, Allowed(rel, ActionViewAttachments))
		})
	}
}

func TestAssignmentMutationRules(t *testing.T) {
	const requester uint = 10
	const other uint = 11

	t.Run("member may self-assign only", func(t *testing.T) {
		assert.True(t, CanMutateAssignment(RelMember, requester, []uint{requester}))
		assert.False(t, CanMutateAssignment(RelMember, requester, []uint{other}))
		// Mixing self and others is denied as a whole, no partial apply.
		assert.False(t, CanMutateAssignment(RelMember, requester, []uint{requester, other}))
	})

	t.Run("admin and owner assign arbitrary members", func(t *testing.T) {
		assert.True(t, CanMutateAssignment(RelAdmin, requester, []uint{other}))
		assert.True(t, CanMutateAssignment(RelOwner, requester, []uint{other, requester}))
	})

	t.Run("self-assign needs no project relation", func(t *testing.T) {
		// A workspace member without a project member row resolves to RelNone
		// for the project, yet may still assign themselves. Target membership
		// is checked downstream, so this never reaches outside the workspace.
		assert.True(t, CanMutateAssignment(RelNone, requester, []uint{requester}))
		assert.False(t, CanMutateAssignment(RelNone, requester, []uint{other}))
		assert.False(t, CanMutateAssignment(RelNone, requester, []uint{requester, other}))
	})

	t.Run("empty target list grants nothing to members", func(t *testing.T) {
		assert.False(t, CanMutateAssignment(RelMember, requester, nil))
		assert.False(t, CanMutateAssignment(RelNone, requester, nil))
		assert.True(t, CanMutateAssignment(RelAdmin, requester, nil))
	})

	t.Run("assignee relation behaves like member for assignment", func(t *testing.T) {
		// The carve-out is per-target-user, not per-requester-role: an
		// existing assignee still may not drag in a third user.
		assert.True(t, CanMutateAssignment(RelTaskAssignee, requester, []uint{requester}))
		assert.False(t, CanMutateAssignment(RelTaskAssignee, requester, []uint{other}))
	})
}

func TestCapabilityTableShape(t *testing.T) {
	t.Run("member cannot manage projects", func(t *testing.T) {
		assert.False(t, Allowed(RelMember, ActionDeleteProject))
		assert.False(t, Allowed(RelMember, ActionManageProjectMembers))
		assert.True(t, Allowed(RelMember, ActionCreateTask))
	})

	t.Run("only owner deletes workspace", func(t *testing.T) {
		for _, rel := range []Relation{RelNone, RelMember, RelTaskAssignee, RelTaskCreator, RelAdmin} {
			assert.False(t, Allowed(rel, ActionDeleteWorkspace), rel.String())
		}
		assert.True(t, Allowed(RelOwner, ActionDeleteWorkspace))
	})

	t.Run("none is denied every action", func(t *testing.T) {
		for action := range capability {
			assert.False(t, Allowed(RelNone, action), string(action))
		}
	})

	t.Run("unknown action is denied", func(t *testing.T) {
		assert.False(t, Allowed(RelOwner, Action("task:launch_missiles")))
		assert.False(t, ValidAction(Action("task:launch_missiles")))
		assert.True(t, ValidAction(ActionComment))
	})
}
