package task

// Authorization policy: pure predicates over (task, acting user), evaluated
// before any store write so a denied call leaves no partial state.

// CanEdit permits the creator or the current assignee.
func CanEdit(t Task, userID string) bool {
	return userID == t.CreatedByUserID || (t.Assigned() && userID == t.AssignedToUserID)
}

// CanDelete permits only the creator.
func CanDelete(t Task, userID string) bool {
	return userID == t.CreatedByUserID
}

// CanAssign permits only the creator.
func CanAssign(t Task, userID string) bool {
	return userID == t.CreatedByUserID
}

// CanChangeStatus permits the creator or the current assignee.
func CanChangeStatus(t Task, userID string) bool {
	return CanEdit(t, userID)
}
