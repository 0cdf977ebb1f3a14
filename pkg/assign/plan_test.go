package assign

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestNewAssigneeIDs(t *testing.T) {
	assert.Equal(t, []uint{3, 4}, NewAssigneeIDs([]uint{1, 2}, []uint{3, 4}))
	assert.Empty(t, NewAssigneeIDs([]uint{1, 2}, []uint{1, 2}),
		"re-adding current assignees is a no-op")
	assert.Equal(t, []uint{3}, NewAssigneeIDs([]uint{1, 2}, []uint{2, 3, 3}),
		"duplicates in the request collapse")
	assert.Equal(t, []uint{1}, NewAssigneeIDs(nil, []uint{1}))
}

func TestMirrorAfterAdd(t *testing.T) {
	assert.Equal(t, lo.ToPtr(uint(7)), MirrorAfterAdd(nil, []uint{7, 8}),
		"null mirror picks up the first newly added user")
	assert.Equal(t, lo.ToPtr(uint(1)), MirrorAfterAdd(lo.ToPtr(uint(1)), []uint{7}),
		"an existing mirror is never moved by an add")
	assert.Nil(t, MirrorAfterAdd(nil, nil))
}

func TestMirrorAfterRemove(t *testing.T) {
	t.Run("mirrored user removed, others remain", func(t *testing.T) {
		mirror := MirrorAfterRemove(lo.ToPtr(uint(1)), []uint{1}, []uint{2, 3})
		assert.Equal(t, lo.ToPtr(uint(2)), mirror)
	})

	t.Run("mirrored user removed, set becomes empty", func(t *testing.T) {
		assert.Nil(t, MirrorAfterRemove(lo.ToPtr(uint(1)), []uint{1}, nil))
	})

	t.Run("unrelated removal keeps the mirror", func(t *testing.T) {
		mirror := MirrorAfterRemove(lo.ToPtr(uint(1)), []uint{2}, []uint{1, 3})
		assert.Equal(t, lo.ToPtr(uint(1)), mirror)
	})

	t.Run("null mirror stays null", func(t *testing.T) {
		assert.Nil(t, MirrorAfterRemove(nil, []uint{2}, []uint{3}))
	})

	// Reassignment holds for any number of remaining assignees.
	t.Run("always lands on a remaining assignee", func(t *testing.T) {
		for n := 0; n < 5; n++ {
			remaining := make([]uint, n)
			for i := range remaining {
				remaining[i] = uint(10 + i)
			}
			mirror := MirrorAfterRemove(lo.ToPtr(uint(1)), []uint{1}, remaining)
			if n == 0 {
				assert.Nil(t, mirror)
			} else {
				assert.Contains(t, remaining, *mirror)
			}
		}
	})
}
