package models

// ModerationState - состояние инцидента в процессе модерации.
// Не хранится, а вычисляется из флагов approved/flagged.
type ModerationState string

const (
	StateFlagged       ModerationState = "flagged"
	StatePendingReview ModerationState = "pending_review"
	StateApproved      ModerationState = "approved"
)

// State возвращает текущее состояние модерации
func (i *Incident) State() ModerationState {
	switch {
	case i.Flagged:
		return StateFlagged
	case i.Approved:
		return StateApproved
	default:
		return StatePendingReview
	}
}
