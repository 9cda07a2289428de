package models

import "time"

// User is a catalog user record. Only ID and Username are mirrored into the graph.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ref returns the graph identity of the user.
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username}
}

// UserRef is the identity the graph keys User nodes by.
type UserRef struct {
	ID       int64  `json:"userId"`
	Username string `json:"username"`
}
