package models

import "time"

// FriendActivity is a game played by at least one friend and not by the caller.
type FriendActivity struct {
	ItemID          int64     `json:"gameId"`
	Title           string    `json:"title"`
	PlayedByFriends []string  `json:"playedByFriends"`
	LastPlayed      time.Time `json:"lastPlayed"`
}

// GenreRecommendation is an unplayed game sharing genres with the caller's top genres.
type GenreRecommendation struct {
	ItemID       int64    `json:"gameId"`
	Title        string   `json:"title"`
	CommonGenres []string `json:"commonGenres"`

	// Affinity sums the caller's play counts over CommonGenres. It breaks
	// ties between candidates sharing the same number of genres.
	Affinity int `json:"-"`
}

// GenreRecommendations wraps the by-genre ranking. Message is set only when
// Items is empty.
type GenreRecommendations struct {
	Items   []GenreRecommendation `json:"items"`
	Message string                `json:"message,omitempty"`
}

// FriendSuggestion is a user the caller may want to add.
type FriendSuggestion struct {
	UserID       int64    `json:"userId"`
	Username     string   `json:"username"`
	CommonGenres []string `json:"commonGenres"`
	Score        int      `json:"score"`
	IsFOF        bool     `json:"isFOF"`
}

// GenreCount is how many of a user's played games carry a genre.
type GenreCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Dashboard bundles the three rankings for one user.
type Dashboard struct {
	FriendsActivity   []FriendActivity     `json:"friendsActivity"`
	ByGenre           GenreRecommendations `json:"byGenre"`
	FriendSuggestions []FriendSuggestion   `json:"friendSuggestions"`
}

// GraphStats counts nodes and relationships by type.
type GraphStats struct {
	Users    int64 `json:"users"`
	Items    int64 `json:"items"`
	Genres   int64 `json:"genres"`
	Knows    int64 `json:"knows"`
	Plays    int64 `json:"plays"`
	HasGenre int64 `json:"hasGenre"`
}
