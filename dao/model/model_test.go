package model

import (
	"reflect"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

// The membership and assignment join tables must delete for real. A soft
// delete would keep the removed row holding its unique index slot, so a
// later re-add of the same pair would conflict with the invisible row and
// insert nothing while reporting success.
func TestJoinTablesHardDelete(t *testing.T) {
	for _, typ := range []reflect.Type{
		reflect.TypeOf(TaskAssignee{}),
		reflect.TypeOf(WorkspaceMember{}),
		reflect.TypeOf(ProjectMember{}),
	} {
		t.Run(typ.Name(), func(t *testing.T) {
			_, hasDeletedAt := typ.FieldByName("DeletedAt")
			assert.False(t, hasDeletedAt, "%s must not soft-delete", typ.Name())
			_, hasID := typ.FieldByName("ID")
			assert.True(t, hasID)
		})
	}
}

func TestOutboxPendingNotification(t *testing.T) {
	now := time.Now()

	t.Run("fresh row with recipient", func(t *testing.T) {
		row := NotificationOutbox{RecipientID: 7}
		assert.True(t, row.PendingNotification())
	})

	t.Run("notified row retried for its email only", func(t *testing.T) {
		row := NotificationOutbox{
			RecipientID: 7,
			Email:       lo.ToPtr("dave@example.com"),
			NotifiedAt:  &now,
		}
		assert.False(t, row.PendingNotification())
	})

	t.Run("email-only row owes no notification", func(t *testing.T) {
		row := NotificationOutbox{Email: lo.ToPtr("invitee@example.com")}
		assert.False(t, row.PendingNotification())
	})
}
