package entity

// BadgeID is the stable identifier of an achievement badge
type BadgeID string

const (
	BadgeExcellence900     BadgeID = "excellence_900"
	BadgePerfectCompliance BadgeID = "perfect_compliance"
	BadgeQualityMaster     BadgeID = "quality_master"
	BadgeReliability       BadgeID = "reliability"
	BadgeCustomerFavorite  BadgeID = "customer_favorite"
	BadgeTopPerformer      BadgeID = "top_performer"
)

// BadgeDefinition describes how a badge is presented
type BadgeDefinition struct {
	ID          BadgeID
	Name        string
	Description string
}

// BadgeCatalog lists every badge in evaluation order.
var BadgeCatalog = []BadgeDefinition{
	{BadgeExcellence900, "Excellence 900", "Trust score of 900 or above"},
	{BadgePerfectCompliance, "Perfect Compliance", "All signatures valid and all tasks delivered on time"},
	{BadgeQualityMaster, "Quality Master", "Every recorded quality test passed"},
	{BadgeReliability, "Reliability", "Every completed task delivered on time"},
	{BadgeCustomerFavorite, "Customer Favorite", "At least 10 reviews with 80% or more positive"},
	{BadgeTopPerformer, "Top Performer", "Ranked in the overall top 10"},
}

// LookupBadge returns the catalog entry for id.
func LookupBadge(id BadgeID) (BadgeDefinition, bool) {
	for _, def := range BadgeCatalog {
		if def.ID == id {
			return def, true
		}
	}
	return BadgeDefinition{}, false
}
