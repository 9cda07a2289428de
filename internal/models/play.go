package models

import "time"

// PlayStatus is the caller-supplied status on a PLAYS edge. The set is open:
// values outside the known list are stored verbatim.
type PlayStatus string

const (
	StatusFinished  PlayStatus = "terminé"
	StatusPlaying   PlayStatus = "playing"
	StatusWishlist  PlayStatus = "wishlist"
	StatusAbandoned PlayStatus = "abandoned"
)

// KnownStatuses lists the statuses the clients are known to send.
var KnownStatuses = []PlayStatus{
	StatusFinished,
	StatusPlaying,
	StatusWishlist,
	StatusAbandoned,
}

// IsKnown reports whether s is one of KnownStatuses.
func (s PlayStatus) IsKnown() bool {
	for i := range KnownStatuses {
		if s == KnownStatuses[i] {
			return true
		}
	}
	return false
}

// Rating bounds for a PLAYS edge.
const (
	MinRating = 0
	MaxRating = 5
)

// Play is the payload of a PLAYS edge. A nil Rating means "not rated".
type Play struct {
	Status   PlayStatus `json:"status"`
	Rating   *int       `json:"rating"`
	PlayedAt time.Time  `json:"playedAt"`
}

// ValidRating reports whether r is absent or within MinRating..MaxRating.
func ValidRating(r *int) bool {
	return r == nil || (*r >= MinRating && *r <= MaxRating)
}
