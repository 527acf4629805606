package microblog

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewAccountID generates a random account identifier.
func NewAccountID() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")
}

// NewPostID generates a time-sortable post identifier. Sorting post IDs
// descending sorts posts newest-first, which keeps the feed order
// deterministic when two posts share a timestamp.
func NewPostID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	return id.String()
}

type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Bio          string
	LastSeen     *time.Time
}

type Post struct {
	ID        string
	Body      string
	CreatedAt time.Time
	AuthorID  string

	// Author is populated by feed and profile queries; it is never written
	// back to storage.
	Author *Account
}
