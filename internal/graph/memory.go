package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/gamegraph/gamegraph/internal/models"
	"github.com/gamegraph/gamegraph/internal/ranking"
)

// MemoryGraph is an in-process implementation of Graph used by tests and by
// `--graph memory` demo runs.
type MemoryGraph struct {
	mu          sync.RWMutex
	unavailable bool

	users      map[int64]string
	items      map[int64]string
	genres     map[string]struct{}
	knows      map[int64]map[int64]struct{}
	plays      map[int64]map[int64]models.Play
	itemGenres map[int64]map[string]struct{}
	genreItems map[string]map[int64]struct{}
}

// NewMemoryGraph creates an empty graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		users:      make(map[int64]string),
		items:      make(map[int64]string),
		genres:     make(map[string]struct{}),
		knows:      make(map[int64]map[int64]struct{}),
		plays:      make(map[int64]map[int64]models.Play),
		itemGenres: make(map[int64]map[string]struct{}),
		genreItems: make(map[string]map[int64]struct{}),
	}
}

// SetUnavailable makes every subsequent call fail with models.ErrStoreUnavailable.
func (m *MemoryGraph) SetUnavailable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = down
}

func (m *MemoryGraph) check() error {
	if m.unavailable {
		return fmt.Errorf("memory graph: %w", models.ErrStoreUnavailable)
	}
	return nil
}

// EnsureSchema is a no-op; map keys already enforce uniqueness.
func (m *MemoryGraph) EnsureSchema(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check()
}

// UpsertUser merges a user.
func (m *MemoryGraph) UpsertUser(_ context.Context, userID int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.users[userID] = username
	return nil
}

// UpsertItem merges an item and its genres.
func (m *MemoryGraph) UpsertItem(_ context.Context, item models.Item, genres []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.mergeItem(item, genres)
	return nil
}

// UpsertKnows merges both users and the KNOWS edge.
func (m *MemoryGraph) UpsertKnows(_ context.Context, from, to models.UserRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.users[from.ID] = from.Username
	m.users[to.ID] = to.Username
	out, ok := m.knows[from.ID]
	if !ok {
		out = make(map[int64]struct{})
		m.knows[from.ID] = out
	}
	out[to.ID] = struct{}{}
	return nil
}

// UpsertPlay merges the item, its genres and the PLAYS edge.
func (m *MemoryGraph) UpsertPlay(_ context.Context, userID int64, item models.Item, genres []string, play models.Play) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if _, ok := m.users[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	m.mergeItem(item, genres)
	played, ok := m.plays[userID]
	if !ok {
		played = make(map[int64]models.Play)
		m.plays[userID] = played
	}
	if play.Rating != nil {
		r := *play.Rating
		play.Rating = &r
	}
	played[item.ID] = play
	return nil
}

// mergeItem must be called with m.mu held for writing.
func (m *MemoryGraph) mergeItem(item models.Item, genres []string) {
	m.items[item.ID] = item.Title
	set, ok := m.itemGenres[item.ID]
	if !ok {
		set = make(map[string]struct{})
		m.itemGenres[item.ID] = set
	}
	for _, g := range genres {
		m.genres[g] = struct{}{}
		set[g] = struct{}{}
		byGenre, ok := m.genreItems[g]
		if !ok {
			byGenre = make(map[int64]struct{})
			m.genreItems[g] = byGenre
		}
		byGenre[item.ID] = struct{}{}
	}
}

// FriendsActivity aggregates friends' plays per unplayed item.
func (m *MemoryGraph) FriendsActivity(_ context.Context, userID int64, limit int) ([]models.FriendActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	mine := m.plays[userID]
	byItem := make(map[int64]*models.FriendActivity)
	friendSets := make(map[int64]map[string]struct{})
	for friendID := range m.knows[userID] {
		friendName := m.users[friendID]
		for itemID, p := range m.plays[friendID] {
			if _, played := mine[itemID]; played {
				continue
			}
			rec, ok := byItem[itemID]
			if !ok {
				rec = &models.FriendActivity{ItemID: itemID, Title: m.items[itemID]}
				byItem[itemID] = rec
				friendSets[itemID] = make(map[string]struct{})
			}
			if _, seen := friendSets[itemID][friendName]; !seen {
				friendSets[itemID][friendName] = struct{}{}
				rec.PlayedByFriends = append(rec.PlayedByFriends, friendName)
			}
			if p.PlayedAt.After(rec.LastPlayed) {
				rec.LastPlayed = p.PlayedAt
			}
		}
	}

	out := make([]models.FriendActivity, 0, len(byItem))
	for _, rec := range byItem {
		out = append(out, *rec)
	}
	ranking.SortFriendActivity(out)
	return ranking.Limit(out, limit), nil
}

// GenreCandidates ranks unplayed items sharing the caller's top genres.
func (m *MemoryGraph) GenreCandidates(_ context.Context, userID int64, topGenres, limit int) ([]models.GenreRecommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	mine := m.plays[userID]
	counts := make(map[string]int)
	for itemID := range mine {
		for g := range m.itemGenres[itemID] {
			counts[g]++
		}
	}
	genreCounts := make([]models.GenreCount, 0, len(counts))
	for name, n := range counts {
		genreCounts = append(genreCounts, models.GenreCount{Name: name, Count: n})
	}
	top := ranking.TopGenreNames(genreCounts, topGenres)

	byItem := make(map[int64]*models.GenreRecommendation)
	for _, g := range top {
		for itemID := range m.genreItems[g] {
			if _, played := mine[itemID]; played {
				continue
			}
			rec, ok := byItem[itemID]
			if !ok {
				rec = &models.GenreRecommendation{ItemID: itemID, Title: m.items[itemID]}
				byItem[itemID] = rec
			}
			rec.CommonGenres = append(rec.CommonGenres, g)
			rec.Affinity += counts[g]
		}
	}

	out := make([]models.GenreRecommendation, 0, len(byItem))
	for _, rec := range byItem {
		out = append(out, *rec)
	}
	ranking.SortGenreRecommendations(out)
	return ranking.Limit(out, limit), nil
}

// FriendCandidates unions friends-of-friends with users sharing played genres.
func (m *MemoryGraph) FriendCandidates(_ context.Context, userID int64, limit int) ([]models.FriendSuggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	if _, ok := m.users[userID]; !ok {
		return []models.FriendSuggestion{}, nil
	}

	known := m.knows[userID]
	eligible := func(id int64) bool {
		if id == userID {
			return false
		}
		_, direct := known[id]
		return !direct
	}

	byUser := make(map[int64]*models.FriendSuggestion)
	get := func(id int64) *models.FriendSuggestion {
		s, ok := byUser[id]
		if !ok {
			s = &models.FriendSuggestion{UserID: id, Username: m.users[id], CommonGenres: []string{}}
			byUser[id] = s
		}
		return s
	}

	for friendID := range known {
		for fofID := range m.knows[friendID] {
			if eligible(fofID) {
				get(fofID).IsFOF = true
			}
		}
	}

	myGenres := m.playedGenres(userID)
	if len(myGenres) > 0 {
		for otherID := range m.plays {
			if !eligible(otherID) {
				continue
			}
			var shared []string
			for g := range m.playedGenres(otherID) {
				if _, ok := myGenres[g]; ok {
					shared = append(shared, g)
				}
			}
			if len(shared) == 0 {
				continue
			}
			s := get(otherID)
			s.CommonGenres = append(s.CommonGenres, shared...)
		}
	}

	out := make([]models.FriendSuggestion, 0, len(byUser))
	for _, s := range byUser {
		s.Score = len(s.CommonGenres)
		out = append(out, *s)
	}
	ranking.SortFriendSuggestions(out)
	return ranking.Limit(out, limit), nil
}

// playedGenres must be called with m.mu held.
func (m *MemoryGraph) playedGenres(userID int64) map[string]struct{} {
	set := make(map[string]struct{})
	for itemID := range m.plays[userID] {
		for g := range m.itemGenres[itemID] {
			set[g] = struct{}{}
		}
	}
	return set
}

// Play returns the PLAYS payload between a user and an item, if any.
func (m *MemoryGraph) Play(userID, itemID int64) (models.Play, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plays[userID][itemID]
	return p, ok
}

// Knows reports whether the KNOWS edge from -> to exists.
func (m *MemoryGraph) Knows(from, to int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.knows[from][to]
	return ok
}

// Stats counts nodes and edges.
func (m *MemoryGraph) Stats(_ context.Context) (*models.GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	stats := &models.GraphStats{
		Users:  int64(len(m.users)),
		Items:  int64(len(m.items)),
		Genres: int64(len(m.genres)),
	}
	for _, out := range m.knows {
		stats.Knows += int64(len(out))
	}
	for _, played := range m.plays {
		stats.Plays += int64(len(played))
	}
	for _, set := range m.itemGenres {
		stats.HasGenre += int64(len(set))
	}
	return stats, nil
}

// Ping reports availability.
func (m *MemoryGraph) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check()
}

// Close is a no-op for the memory graph.
func (m *MemoryGraph) Close(_ context.Context) error {
	return nil
}
