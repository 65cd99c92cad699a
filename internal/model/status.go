package model

// Backup record lifecycle states.
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFail    = "fail"
)

// ValidTransition reports whether a record may move from one state to another.
// Only pending records may change, and only to a terminal state.
func ValidTransition(from, to string) bool {
	return from == StatePending && (to == StateSuccess || to == StateFail)
}
