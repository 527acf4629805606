package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mashiro/microblog"
)

// Each test gets its own named in-memory database so pooled connections
// all see the same data.
func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	cfg := &microblog.Config{
		DatabaseDSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	}
	db, err := NewSQLite(cfg)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	return db
}

func seedAccount(t *testing.T, accounts microblog.AccountStore, username string) *microblog.Account {
	t.Helper()
	account := &microblog.Account{
		ID:           microblog.NewAccountID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	if err := accounts.Save(context.Background(), account); err != nil {
		t.Fatalf("Save(%s) failed: %v", username, err)
	}
	return account
}

func seedPost(t *testing.T, posts microblog.PostStore, authorID string, body string, at time.Time) *microblog.Post {
	t.Helper()
	post := &microblog.Post{
		ID:        microblog.NewPostID(),
		Body:      body,
		CreatedAt: at,
		AuthorID:  authorID,
	}
	if err := posts.Save(context.Background(), post); err != nil {
		t.Fatalf("Save post %q failed: %v", body, err)
	}
	return post
}

func TestAccountRoundTrip(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountDB(db)
	c := context.Background()

	saved := seedAccount(t, accounts, "alice")

	for name, find := range map[string]func() (*microblog.Account, error){
		"by id":       func() (*microblog.Account, error) { return accounts.Find(c, saved.ID) },
		"by username": func() (*microblog.Account, error) { return accounts.FindByUsername(c, "alice") },
		"by email":    func() (*microblog.Account, error) { return accounts.FindByEmail(c, "alice@example.com") },
	} {
		got, err := find()
		if err != nil {
			t.Fatalf("find %s failed: %v", name, err)
		}
		if got.ID != saved.ID || got.Username != "alice" {
			t.Fatalf("find %s returned %+v", name, got)
		}
	}

	if _, err := accounts.Find(c, "missing"); !errors.Is(err, microblog.ErrNotFound) {
		t.Fatalf("missing id: got %v, want ErrNotFound", err)
	}
}

func TestAccountUniqueConstraints(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountDB(db)
	c := context.Background()

	seedAccount(t, accounts, "alice")

	dupUsername := &microblog.Account{
		ID:       microblog.NewAccountID(),
		Username: "alice",
		Email:    "other@example.com",
	}
	if err := accounts.Save(c, dupUsername); !errors.Is(err, microblog.ErrUsernameTaken) {
		t.Fatalf("duplicate username: got %v, want ErrUsernameTaken", err)
	}

	dupEmail := &microblog.Account{
		ID:       microblog.NewAccountID(),
		Username: "alice2",
		Email:    "alice@example.com",
	}
	if err := accounts.Save(c, dupEmail); !errors.Is(err, microblog.ErrEmailTaken) {
		t.Fatalf("duplicate email: got %v, want ErrEmailTaken", err)
	}
}

func TestUpdateBioAndLastSeen(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountDB(db)
	c := context.Background()

	saved := seedAccount(t, accounts, "alice")

	if err := accounts.UpdateBio(c, saved.ID, "hi"); err != nil {
		t.Fatalf("UpdateBio failed: %v", err)
	}
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if err := accounts.TouchLastSeen(c, saved.ID, at); err != nil {
		t.Fatalf("TouchLastSeen failed: %v", err)
	}

	got, err := accounts.Find(c, saved.ID)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.Bio != "hi" {
		t.Fatalf("bio = %q", got.Bio)
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(at) {
		t.Fatalf("last seen = %v, want %v", got.LastSeen, at)
	}

	if err := accounts.UpdateBio(c, "missing", "x"); !errors.Is(err, microblog.ErrNotFound) {
		t.Fatalf("UpdateBio on missing id: got %v, want ErrNotFound", err)
	}
}

func TestFollowEdgeSet(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountDB(db)
	follows := NewFollowDB(db)
	c := context.Background()

	alice := seedAccount(t, accounts, "alice")
	bob := seedAccount(t, accounts, "bob")

	if err := follows.Follow(c, alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	// The pair is the uniqueness constraint: re-inserting is a silent no-op.
	if err := follows.Follow(c, alice.ID, bob.ID); err != nil {
		t.Fatalf("repeated Follow failed: %v", err)
	}

	following, err := follows.IsFollowing(c, alice.ID, bob.ID)
	if err != nil || !following {
		t.Fatalf("IsFollowing = %v, %v; want true", following, err)
	}
	if back, _ := follows.IsFollowing(c, bob.ID, alice.ID); back {
		t.Fatal("edge direction leaked: bob does not follow alice")
	}

	if n, _ := follows.CountFollowing(c, alice.ID); n != 1 {
		t.Fatalf("CountFollowing(alice) = %d, want 1", n)
	}
	if n, _ := follows.CountFollowers(c, bob.ID); n != 1 {
		t.Fatalf("CountFollowers(bob) = %d, want 1", n)
	}

	if err := follows.Unfollow(c, alice.ID, bob.ID); err != nil {
		t.Fatalf("Unfollow failed: %v", err)
	}
	if following, _ := follows.IsFollowing(c, alice.ID, bob.ID); following {
		t.Fatal("IsFollowing should be false after Unfollow")
	}
	if err := follows.Unfollow(c, alice.ID, bob.ID); err != nil {
		t.Fatalf("Unfollow of absent edge must be a no-op, got %v", err)
	}
}

func TestPostBodyBoundAtStorage(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountDB(db)
	posts := NewPostDB(db)
	c := context.Background()

	alice := seedAccount(t, accounts, "alice")

	oversized := &microblog.Post{
		ID:        microblog.NewPostID(),
		Body:      strings.Repeat("x", microblog.PostBodyMaxLen+1),
		CreatedAt: time.Now().UTC(),
		AuthorID:  alice.ID,
	}
	if err := posts.Save(c, oversized); !errors.Is(err, microblog.ErrPostTooLong) {
		t.Fatalf("oversized post: got %v, want ErrPostTooLong", err)
	}
}

func TestFeedQuery(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountDB(db)
	follows := NewFollowDB(db)
	posts := NewPostDB(db)
	c := context.Background()

	u1 := seedAccount(t, accounts, "u1")
	u2 := seedAccount(t, accounts, "u2")
	u3 := seedAccount(t, accounts, "u3")

	t1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	seedPost(t, posts, u1.ID, "hello", t1)
	seedPost(t, posts, u2.ID, "world", t2)
	seedPost(t, posts, u3.ID, "unrelated", t2.Add(time.Hour))

	if err := follows.Follow(c, u1.ID, u2.ID); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	feed1, err := posts.ListFeed(c, u1.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListFeed(u1) failed: %v", err)
	}
	if got := postBodies(feed1); !equal(got, []string{"world", "hello"}) {
		t.Fatalf("feed(u1) = %v, want [world hello]", got)
	}
	if feed1[0].Author == nil || feed1[0].Author.Username != "u2" {
		t.Fatalf("feed post author not resolved: %+v", feed1[0].Author)
	}

	// u2 follows nobody, so only its own post shows, and u3's post never
	// reaches u1.
	feed2, err := posts.ListFeed(c, u2.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListFeed(u2) failed: %v", err)
	}
	if got := postBodies(feed2); !equal(got, []string{"world"}) {
		t.Fatalf("feed(u2) = %v, want [world]", got)
	}
}

func TestFeedSelfFollowStaysSingle(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountDB(db)
	follows := NewFollowDB(db)
	posts := NewPostDB(db)
	c := context.Background()

	u1 := seedAccount(t, accounts, "u1")
	seedPost(t, posts, u1.ID, "solo", time.Now().UTC())

	// The data model does not forbid a self-edge; the feed union must not
	// double-count when one exists.
	if err := follows.Follow(c, u1.ID, u1.ID); err != nil {
		t.Fatalf("self Follow failed: %v", err)
	}

	feed, err := posts.ListFeed(c, u1.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListFeed failed: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("post appeared %d times, want 1", len(feed))
	}
}

func TestFeedTieBreakIsDeterministic(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountDB(db)
	posts := NewPostDB(db)
	c := context.Background()

	u1 := seedAccount(t, accounts, "u1")

	// Same timestamp on purpose: order must fall back to id descending.
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first := seedPost(t, posts, u1.ID, "first", at)
	second := seedPost(t, posts, u1.ID, "second", at)

	wantFirst, wantSecond := second, first
	if first.ID > second.ID {
		wantFirst, wantSecond = first, second
	}

	for i := 0; i < 3; i++ {
		feed, err := posts.ListFeed(c, u1.ID, 10, 0)
		if err != nil {
			t.Fatalf("ListFeed failed: %v", err)
		}
		if len(feed) != 2 || feed[0].ID != wantFirst.ID || feed[1].ID != wantSecond.ID {
			t.Fatalf("tie-break order unstable: got %v", postBodies(feed))
		}
	}
}

func TestFeedPaginationWindow(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountDB(db)
	posts := NewPostDB(db)
	c := context.Background()

	u1 := seedAccount(t, accounts, "u1")
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedPost(t, posts, u1.ID, fmt.Sprintf("p%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	window, err := posts.ListFeed(c, u1.ID, 2, 2)
	if err != nil {
		t.Fatalf("ListFeed failed: %v", err)
	}
	if got := postBodies(window); !equal(got, []string{"p2", "p1"}) {
		t.Fatalf("window = %v, want [p2 p1]", got)
	}
}

func postBodies(posts []*microblog.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Body
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
