package event

// Type identifies the type of domain event
type Type string

const (
	TypeScoreRecalculated Type = "score.recalculated"
	TypeScoreAdjusted     Type = "score.adjusted"
	TypeBadgeAwarded      Type = "badge.awarded"
	TypeRankingUpdated    Type = "ranking.updated"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeScoreRecalculated,
		TypeScoreAdjusted,
		TypeBadgeAwarded,
		TypeRankingUpdated:
		return true
	default:
		return false
	}
}
