// Package catalog is the relational record store for users and games. It is
// the source of truth for usernames, titles and genre lists.
package catalog

import (
	"context"
	"time"

	"github.com/gamegraph/gamegraph/internal/models"
)

// Catalog stores user and item master records plus the outbox of users whose
// graph mirror still has to be written.
type Catalog interface {
	// CreateUser inserts a user. A zero ID is assigned by the store.
	// Duplicate usernames or emails fail with models.ErrConflict.
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsers(ctx context.Context) (int, error)

	// UpsertItem inserts or replaces an item by ID.
	UpsertItem(ctx context.Context, item models.Item) error
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	ListItems(ctx context.Context) ([]models.Item, error)

	// AddPendingMirror records (or re-records) a user whose graph node could
	// not be written. Attempts is incremented on every call.
	AddPendingMirror(ctx context.Context, user models.UserRef, cause string) error
	ListPendingMirrors(ctx context.Context, limit int) ([]PendingMirror, error)
	RemovePendingMirror(ctx context.Context, userID int64) error

	Ping(ctx context.Context) error
	Close() error
}

// PendingMirror is one outbox row.
type PendingMirror struct {
	User      models.UserRef `json:"user"`
	Attempts  int            `json:"attempts"`
	LastError string         `json:"last_error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
