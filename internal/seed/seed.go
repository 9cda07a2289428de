// Package seed loads the demo data set: ten games, ten players, a fixed
// friendship list and a few randomly chosen plays per player.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/gamegraph/gamegraph/internal/auth"
	"github.com/gamegraph/gamegraph/internal/catalog"
	"github.com/gamegraph/gamegraph/internal/graph"
	"github.com/gamegraph/gamegraph/internal/maintainer"
	"github.com/gamegraph/gamegraph/internal/models"
)

// Games is the demo catalog. IDs are 1-based positions.
var Games = []models.Item{
	{ID: 1, Title: "Cyberpunk 2077", Description: "RPG futuriste open-world.", GenreTags: "RPG,OpenWorld,Sci-Fi"},
	{ID: 2, Title: "The Witcher 3", Description: "RPG fantasy épique.", GenreTags: "RPG,OpenWorld,Fantasy"},
	{ID: 3, Title: "Stardew Valley", Description: "Simulation de ferme relaxante.", GenreTags: "Simulation,Indie,PixelArt"},
	{ID: 4, Title: "Elden Ring", Description: "Un vaste monde fantastique à explorer.", GenreTags: "RPG,OpenWorld,Souls-like"},
	{ID: 5, Title: "Hades", Description: "Défiez le dieu des morts dans ce rogue-like.", GenreTags: "Action,Roguelike,Indie"},
	{ID: 6, Title: "Red Dead Redemption 2", Description: "L'aube d'une nouvelle ère pour les hors-la-loi.", GenreTags: "Action,OpenWorld,Adventure"},
	{ID: 7, Title: "Baldur's Gate 3", Description: "Un RPG nouvelle génération dans l'univers de D&D.", GenreTags: "RPG,CRPG,Fantasy"},
	{ID: 8, Title: "Helldivers 2", Description: "Répandez la démocratie gérée dans la galaxie.", GenreTags: "Action,Shooter,Co-op"},
	{ID: 9, Title: "Valorant", Description: "Jeu de tir tactique en 5v5.", GenreTags: "Shooter,Tactical,FPS"},
	{ID: 10, Title: "League of Legends", Description: "Arène de bataille en ligne multijoueur.", GenreTags: "MOBA,Strategy"},
}

// UserCount is the number of demo players, named joueur1..joueurN.
const UserCount = 10

// Friendships is the demo KNOWS list as (from, to) user ids.
var Friendships = [][2]int64{
	{1, 2}, {1, 3}, {1, 4}, {2, 5},
	{3, 6}, {3, 7}, {6, 1}, {8, 9}, {9, 10},
}

// Username returns the demo username for id.
func Username(id int64) string {
	return fmt.Sprintf("joueur%d", id)
}

// Options tunes a seeding run.
type Options struct {
	RandomSeed    int64
	Password      string
	PlaysPerUser  int
	SkipThreshold int
}

// Report summarizes a seeding run.
type Report struct {
	Skipped     bool `json:"skipped"`
	Games       int  `json:"games"`
	Users       int  `json:"users"`
	Friendships int  `json:"friendships"`
	Plays       int  `json:"plays"`
}

// Seeder writes the demo data through the catalog and the maintainer.
type Seeder struct {
	catalog    catalog.Catalog
	graph      graph.Graph
	maintainer *maintainer.Maintainer
	opts       Options
	logger     *slog.Logger
}

// New creates a Seeder.
func New(c catalog.Catalog, g graph.Graph, m *maintainer.Maintainer, opts Options, logger *slog.Logger) *Seeder {
	if opts.PlaysPerUser > len(Games) {
		opts.PlaysPerUser = len(Games)
	}
	if opts.Password == "" {
		opts.Password = "password123"
	}
	return &Seeder{
		catalog:    c,
		graph:      g,
		maintainer: m,
		opts:       opts,
		logger:     logger.With("component", "seed"),
	}
}

// Run seeds the stores unless at least SkipThreshold users already exist.
// Every write is an upsert, so a run interrupted halfway can be repeated.
func (s *Seeder) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if s.opts.SkipThreshold > 0 {
		n, err := s.catalog.CountUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting users: %w", err)
		}
		if n >= s.opts.SkipThreshold {
			s.logger.Info("database already populated, skipping seed", "users", n)
			report.Skipped = true
			return report, nil
		}
	}

	for _, g := range Games {
		if err := s.catalog.UpsertItem(ctx, g); err != nil {
			return report, fmt.Errorf("seeding game %d: %w", g.ID, err)
		}
		// Unplayed games are still reachable through their genres.
		if err := s.graph.UpsertItem(ctx, g, g.Genres()); err != nil {
			return report, fmt.Errorf("mirroring game %d: %w", g.ID, err)
		}
		report.Games++
	}
	s.logger.Info("games seeded", "count", report.Games)

	hash, err := auth.HashPassword(s.opts.Password)
	if err != nil {
		return report, err
	}
	for id := int64(1); id <= UserCount; id++ {
		name := Username(id)
		_, err := s.catalog.CreateUser(ctx, models.User{
			ID:           id,
			Username:     name,
			Email:        name + "@tsn.com",
			PasswordHash: hash,
		})
		if err != nil && !errors.Is(err, models.ErrConflict) {
			return report, fmt.Errorf("seeding user %d: %w", id, err)
		}
		if err := s.maintainer.EnsureUser(ctx, id, name); err != nil {
			return report, fmt.Errorf("mirroring user %d: %w", id, err)
		}
		report.Users++
	}
	s.logger.Info("users seeded", "count", report.Users)

	for _, f := range Friendships {
		if err := s.maintainer.AddFriend(ctx, f[0], Username(f[0]), Username(f[1])); err != nil {
			return report, fmt.Errorf("seeding friendship %d->%d: %w", f[0], f[1], err)
		}
		report.Friendships++
	}
	s.logger.Info("friendships seeded", "count", report.Friendships)

	plays := s.plan()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for userID, picks := range plays {
		for _, p := range picks {
			g.Go(func() error {
				r := p.rating
				_, err := s.maintainer.RecordActivity(gctx, userID, p.itemID, models.StatusFinished, &r)
				if err != nil {
					return fmt.Errorf("seeding play %d->%d: %w", userID, p.itemID, err)
				}
				return nil
			})
			report.Plays++
		}
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	s.logger.Info("plays seeded", "count", report.Plays)

	return report, nil
}

type plannedPlay struct {
	itemID int64
	rating int
}

// plan draws every random choice up front so the result depends only on
// RandomSeed, not on goroutine scheduling.
func (s *Seeder) plan() map[int64][]plannedPlay {
	seed := uint64(s.opts.RandomSeed)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := make(map[int64][]plannedPlay, UserCount)
	for id := int64(1); id <= UserCount; id++ {
		perm := rng.Perm(len(Games))
		picks := make([]plannedPlay, 0, s.opts.PlaysPerUser)
		for _, idx := range perm[:s.opts.PlaysPerUser] {
			picks = append(picks, plannedPlay{
				itemID: Games[idx].ID,
				rating: rng.IntN(models.MaxRating) + 1,
			})
		}
		out[id] = picks
	}
	return out
}
