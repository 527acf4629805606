package microblog

import (
	"context"
	"net/http"
	"time"
)

type AccountStore interface {
	Find(c context.Context, id string) (*Account, error)
	FindByEmail(c context.Context, email string) (*Account, error)
	FindByUsername(c context.Context, username string) (*Account, error)
	Save(c context.Context, account *Account) error
	UpdateBio(c context.Context, id string, bio string) error
	TouchLastSeen(c context.Context, id string, at time.Time) error
}

type FollowStore interface {
	Follow(c context.Context, fromID string, toID string) error
	Unfollow(c context.Context, fromID string, toID string) error
	IsFollowing(c context.Context, fromID string, toID string) (bool, error)
	CountFollowers(c context.Context, id string) (int, error)
	CountFollowing(c context.Context, id string) (int, error)
}

type PostStore interface {
	Save(c context.Context, post *Post) error
	// ListByAuthor returns an account's own posts, newest first.
	ListByAuthor(c context.Context, authorID string, limit int, offset int) ([]*Post, error)
	// ListFeed returns the posts authored by accountID or by any account
	// accountID follows, each post once, newest first.
	ListFeed(c context.Context, accountID string, limit int, offset int) ([]*Post, error)
}

type Session interface {
	Close() error
	Set(c context.Context, key string, value any)
	Get(c context.Context, key string) any
	Pop(c context.Context, key string) any
	Delete(c context.Context, key string)
	Clear(c context.Context)
	Middleware(next http.Handler) http.Handler
}
