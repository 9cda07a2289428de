package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/gamegraph/gamegraph/internal/models"
)

// timeNow returns the current time (can be replaced in tests).
var timeNow = time.Now

// SQLiteCatalog implements Catalog on SQLite.
type SQLiteCatalog struct {
	db   *sql.DB
	path string
}

// NewSQLiteCatalog opens (or creates) the database at path.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	return &SQLiteCatalog{db: db, path: path}, nil
}

// Path returns the database file path.
func (c *SQLiteCatalog) Path() string {
	return c.path
}

// EnsureSchema creates the tables if they don't exist.
func (c *SQLiteCatalog) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS games (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		description_short TEXT,
		genre_tags TEXT
	);

	-- Users whose graph node still has to be mirrored.
	CREATE TABLE IF NOT EXISTS graph_mirror_pending (
		user_id INTEGER PRIMARY KEY,
		username TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 1,
		last_error TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_graph_mirror_pending_updated ON graph_mirror_pending(updated_at);
	`
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return wrapErr("creating schema", err)
	}
	return nil
}

// CreateUser inserts a user.
func (c *SQLiteCatalog) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = timeNow().UTC()
	}

	var id any
	if user.ID != 0 {
		id = user.ID
	}
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %q or email %q: %w", user.Username, user.Email, models.ErrConflict)
		}
		return nil, wrapErr("inserting user", err)
	}
	if user.ID == 0 {
		user.ID, err = res.LastInsertId()
		if err != nil {
			return nil, wrapErr("reading user id", err)
		}
	}
	return &user, nil
}

const userColumns = `id, username, email, password_hash, created_at`

func (c *SQLiteCatalog) getUser(ctx context.Context, where string, arg any, label string) (*models.User, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = ?`, arg)
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", label, models.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("scanning user", err)
	}
	return &u, nil
}

// GetUserByID returns the user with the given id.
func (c *SQLiteCatalog) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return c.getUser(ctx, "id", id, fmt.Sprintf("%d", id))
}

// GetUserByUsername returns the user with the given username.
func (c *SQLiteCatalog) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return c.getUser(ctx, "username", username, fmt.Sprintf("%q", username))
}

// GetUserByEmail returns the user with the given email.
func (c *SQLiteCatalog) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.getUser(ctx, "email", email, fmt.Sprintf("%q", email))
}

// CountUsers returns the number of users.
func (c *SQLiteCatalog) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM users`).Scan(&n); err != nil {
		return 0, wrapErr("counting users", err)
	}
	return n, nil
}

// UpsertItem inserts or replaces an item.
func (c *SQLiteCatalog) UpsertItem(ctx context.Context, item models.Item) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO games (id, title, description_short, genre_tags)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description_short = excluded.description_short,
			genre_tags = excluded.genre_tags`,
		item.ID, item.Title, item.Description, item.GenreTags)
	if err != nil {
		return wrapErr("upserting game", err)
	}
	return nil
}

// GetItem returns the game with the given id.
func (c *SQLiteCatalog) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, title, COALESCE(description_short, ''), COALESCE(genre_tags, '') FROM games WHERE id = ?`, id)
	var it models.Item
	err := row.Scan(&it.ID, &it.Title, &it.Description, &it.GenreTags)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("scanning game", err)
	}
	return &it, nil
}

// ListItems returns every game ordered by id.
func (c *SQLiteCatalog) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, title, COALESCE(description_short, ''), COALESCE(genre_tags, '') FROM games ORDER BY id`)
	if err != nil {
		return nil, wrapErr("listing games", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.GenreTags); err != nil {
			return nil, wrapErr("scanning game", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterating games", err)
	}
	return items, nil
}

// AddPendingMirror inserts or bumps an outbox row.
func (c *SQLiteCatalog) AddPendingMirror(ctx context.Context, user models.UserRef, cause string) error {
	now := timeNow().UTC()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO graph_mirror_pending (user_id, username, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			attempts = graph_mirror_pending.attempts + 1,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at`,
		user.ID, user.Username, cause, now, now)
	if err != nil {
		return wrapErr("recording pending mirror", err)
	}
	return nil
}

// ListPendingMirrors returns the oldest outbox rows first.
func (c *SQLiteCatalog) ListPendingMirrors(ctx context.Context, limit int) ([]PendingMirror, error) {
	query := `SELECT user_id, username, attempts, COALESCE(last_error, ''), created_at, updated_at
		FROM graph_mirror_pending ORDER BY updated_at, user_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("listing pending mirrors", err)
	}
	defer rows.Close()

	out := []PendingMirror{}
	for rows.Next() {
		var p PendingMirror
		if err := rows.Scan(&p.User.ID, &p.User.Username, &p.Attempts, &p.LastError, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, wrapErr("scanning pending mirror", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterating pending mirrors", err)
	}
	return out, nil
}

// RemovePendingMirror deletes an outbox row. Removing a missing row is not an error.
func (c *SQLiteCatalog) RemovePendingMirror(ctx context.Context, userID int64) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM graph_mirror_pending WHERE user_id = ?`, userID); err != nil {
		return wrapErr("removing pending mirror", err)
	}
	return nil
}

// Ping checks the database handle.
func (c *SQLiteCatalog) Ping(ctx context.Context) error {
	return wrapErr("pinging sqlite", c.db.PingContext(ctx))
}

// Close closes the database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// wrapErr adds context and maps closed handles and timeouts to
// models.ErrStoreUnavailable.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "database is closed") ||
		strings.Contains(err.Error(), "database is locked") {
		return fmt.Errorf("%s: %w: %v", op, models.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
