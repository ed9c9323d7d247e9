package recipe

// Urgency labels a recipe or product by how soon its ingredients spoil.
type Urgency string

const (
	VeryUrgent Urgency = "very_urgent"
	Urgent     Urgency = "urgent"
	Medium     Urgency = "medium"
	Low        Urgency = "low"
	VeryLow    Urgency = "very_low"
	NoMatch    Urgency = "no_match"
)

// OwnedProduct is an inventory item that recipes can consume.
type OwnedProduct struct {
	NameEN        string
	NameTR        string
	DaysRemaining int
	PriorityScore int
}

// NewOwnedProduct derives the priority from the days remaining.
func NewOwnedProduct(nameEN, nameTR string, daysRemaining int) OwnedProduct {
	return OwnedProduct{
		NameEN:        nameEN,
		NameTR:        nameTR,
		DaysRemaining: daysRemaining,
		PriorityScore: PriorityScore(daysRemaining),
	}
}

// PriorityScore maps days until expiry to a step score. Boundary days belong
// to the more urgent bucket.
func PriorityScore(daysRemaining int) int {
	switch {
	case daysRemaining <= 0:
		return 100
	case daysRemaining <= 3:
		return 80
	case daysRemaining <= 7:
		return 60
	case daysRemaining <= 14:
		return 40
	default:
		return 20
	}
}

// UrgencyFor buckets a recipe score. Bounds are exclusive: a score of
// exactly 80, 60, 40 or 20 falls into the lower band.
func UrgencyFor(score float64) Urgency {
	switch {
	case score > 80:
		return VeryUrgent
	case score > 60:
		return Urgent
	case score > 40:
		return Medium
	case score > 20:
		return Low
	default:
		return VeryLow
	}
}

// ProductUrgency labels a single product by its days remaining.
func ProductUrgency(daysRemaining int) Urgency {
	switch {
	case daysRemaining <= 0:
		return VeryUrgent
	case daysRemaining <= 3:
		return Urgent
	case daysRemaining <= 7:
		return Medium
	case daysRemaining <= 14:
		return Low
	default:
		return VeryLow
	}
}
