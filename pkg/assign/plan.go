package assign

import "github.com/samber/lo"

// NewAssigneeIDs returns the target ids that are genuinely new against the
// current assignee set, deduplicated, in request order. Adding an
// already-assigned user is a silent no-op.
func NewAssigneeIDs(current, targets []uint) []uint {
	return lo.Without(lo.Uniq(targets), current...)
}

// MirrorAfterAdd recomputes the legacy single-assignee mirror after an add.
// If the mirror was previously null it points at the first newly added user to
// keep single-assignee consumers working; otherwise it is left alone.
func MirrorAfterAdd(mirror *uint, newIDs []uint) *uint {
	if mirror != nil || len(newIDs) == 0 {
		return mirror
	}
	return &newIDs[0]
}

// MirrorAfterRemove recomputes the mirror after a removal. If the mirrored
// user was removed, the mirror moves to an arbitrary remaining assignee, or
// clears to null when none remain.
func MirrorAfterRemove(mirror *uint, removed, remaining []uint) *uint {
	if mirror == nil || !lo.Contains(removed, *mirror) {
		return mirror
	}
	if len(remaining) == 0 {
		return nil
	}
	return &remaining[0]
}
