// Package ranking holds the ordering rules shared by every Graph backend and
// the recommendation engine, so that a ranking is identical whichever store
// produced the candidates.
package ranking

import (
	"sort"

	"github.com/gamegraph/gamegraph/internal/models"
)

const (
	// MaxResults bounds every recommendation list.
	MaxResults = 10

	// TopGenres is how many of the caller's most-played genres seed the
	// by-genre ranking.
	TopGenres = 5
)

// Limit truncates s to at most n elements. n <= 0 means no limit.
func Limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// TopGenreNames orders counts by count desc, name asc and returns the first n names.
func TopGenreNames(counts []models.GenreCount, n int) []string {
	sorted := make([]models.GenreCount, len(counts))
	copy(sorted, counts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Name < sorted[j].Name
	})
	sorted = Limit(sorted, n)
	names := make([]string, len(sorted))
	for i := range sorted {
		names[i] = sorted[i].Name
	}
	return names
}

// SortFriendActivity orders by most recent play, then number of friends, then item id.
func SortFriendActivity(recs []models.FriendActivity) {
	for i := range recs {
		sort.Strings(recs[i].PlayedByFriends)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.LastPlayed.Equal(b.LastPlayed) {
			return a.LastPlayed.After(b.LastPlayed)
		}
		if len(a.PlayedByFriends) != len(b.PlayedByFriends) {
			return len(a.PlayedByFriends) > len(b.PlayedByFriends)
		}
		return a.ItemID < b.ItemID
	})
}

// SortGenreRecommendations orders by shared-genre count, then distinct genre
// set size, then affinity, then item id.
func SortGenreRecommendations(recs []models.GenreRecommendation) {
	for i := range recs {
		sort.Strings(recs[i].CommonGenres)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		ac, bc := sharedCount(a.CommonGenres), sharedCount(b.CommonGenres)
		if ac != bc {
			return ac > bc
		}
		if len(a.CommonGenres) != len(b.CommonGenres) {
			return len(a.CommonGenres) > len(b.CommonGenres)
		}
		if a.Affinity != b.Affinity {
			return a.Affinity > b.Affinity
		}
		return a.ItemID < b.ItemID
	})
}

// SortFriendSuggestions orders friends-of-friends first, then by score, then
// username and user id.
func SortFriendSuggestions(recs []models.FriendSuggestion) {
	for i := range recs {
		sort.Strings(recs[i].CommonGenres)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.IsFOF != b.IsFOF {
			return a.IsFOF
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.UserID < b.UserID
	})
}

// sharedCount counts distinct names.
func sharedCount(names []string) int {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		seen[n] = struct{}{}
	}
	return len(seen)
}
