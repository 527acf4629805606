package microblog

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mashiro/microblog/lib/crypt"
	"github.com/rs/zerolog"
)

type Processor struct {
	log          *zerolog.Logger
	accountStore AccountStore
	followStore  FollowStore
	postStore    PostStore
	perPage      int
}

func NewProcessor(
	cfg *Config,
	log *zerolog.Logger,
	accountStore AccountStore,
	followStore FollowStore,
	postStore PostStore,
) *Processor {
	return &Processor{
		log:          log,
		accountStore: accountStore,
		followStore:  followStore,
		postStore:    postStore,
		perPage:      cfg.PostsPerPage,
	}
}

// Signup - 新規登録を行う
// 成功した場合アカウントのIDを返す
func (p *Processor) Signup(c context.Context, email string, username string, password string) (string, error) {
	if username == "" || email == "" || password == "" {
		return "", ErrInvalidSignup
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}

	// Per-field duplicate checks before the write so the user sees which
	// field to change. The storage layer's unique constraints back these up.
	if _, err := p.accountStore.FindByUsername(c, username); err == nil {
		return "", ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := p.accountStore.FindByEmail(c, email); err == nil {
		return "", ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := crypt.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	account := &Account{
		ID:           NewAccountID(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}
	if err := p.accountStore.Save(c, account); err != nil {
		return "", err
	}

	p.log.Info().Str("account_id", account.ID).Msg("account registered")
	return account.ID, nil
}

// Login - ログインを行う
// 成功した場合アカウントのIDを返す
func (p *Processor) Login(c context.Context, username string, password string) (string, error) {
	account, err := p.accountStore.FindByUsername(c, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Same failure as a wrong password so login errors do not leak
			// which usernames exist.
			return "", ErrInvalidLogin
		}
		return "", fmt.Errorf("failed to find account: %w", err)
	}

	if account.PasswordHash == "" || !crypt.VerifyPassword(account.PasswordHash, password) {
		return "", ErrInvalidLogin
	}

	return account.ID, nil
}

// GetAccount returns the account record for id.
func (p *Processor) GetAccount(c context.Context, id string) (*Account, error) {
	account, err := p.accountStore.Find(c, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// Touch records that the account was active just now.
func (p *Processor) Touch(c context.Context, accountID string) error {
	return p.accountStore.TouchLastSeen(c, accountID, time.Now().UTC())
}

func (p *Processor) UpdateBio(c context.Context, accountID string, bio string) error {
	if utf8.RuneCountInString(bio) > PostBodyMaxLen {
		return ErrBioTooLong
	}
	return p.accountStore.UpdateBio(c, accountID, bio)
}

// CreatePost validates and stores a new post authored by accountID.
func (p *Processor) CreatePost(c context.Context, accountID string, body string) (*Post, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyPost
	}
	if utf8.RuneCountInString(body) > PostBodyMaxLen {
		return nil, ErrPostTooLong
	}

	post := &Post{
		ID:        NewPostID(),
		Body:      body,
		CreatedAt: time.Now().UTC(),
		AuthorID:  accountID,
	}
	if err := p.postStore.Save(c, post); err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}
	return post, nil
}

// Timeline is one page of posts.
type Timeline struct {
	Posts   []*Post
	Page    int
	HasPrev bool
	HasNext bool
}

// Feed returns one page of the account's home feed: its own posts and the
// posts of every account it follows, newest first.
func (p *Processor) Feed(c context.Context, accountID string, page int) (*Timeline, error) {
	if page < 1 {
		page = 1
	}

	// One row beyond the page size tells us whether a next page exists.
	posts, err := p.postStore.ListFeed(c, accountID, p.perPage+1, (page-1)*p.perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}

	return paginate(posts, page, p.perPage), nil
}

func paginate(posts []*Post, page int, perPage int) *Timeline {
	hasNext := len(posts) > perPage
	if hasNext {
		posts = posts[:perPage]
	}
	return &Timeline{
		Posts:   posts,
		Page:    page,
		HasPrev: page > 1,
		HasNext: hasNext,
	}
}

// ProfileView is everything the public profile page shows.
type ProfileView struct {
	Account     *Account
	Timeline    *Timeline
	Followers   int
	Following   int
	IsSelf      bool
	IsFollowing bool
}

// Profile - アカウントのプロフィールを表示する
// viewerID は未ログインとして空文字が利用できる
func (p *Processor) Profile(c context.Context, viewerID string, username string, page int) (*ProfileView, error) {
	account, err := p.accountStore.FindByUsername(c, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if page < 1 {
		page = 1
	}
	posts, err := p.postStore.ListByAuthor(c, account.ID, p.perPage+1, (page-1)*p.perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}

	followers, err := p.followStore.CountFollowers(c, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	following, err := p.followStore.CountFollowing(c, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count following: %w", err)
	}

	view := &ProfileView{
		Account:   account,
		Timeline:  paginate(posts, page, p.perPage),
		Followers: followers,
		Following: following,
		IsSelf:    viewerID == account.ID,
	}

	if viewerID != "" && !view.IsSelf {
		following, err := p.followStore.IsFollowing(c, viewerID, account.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check following: %w", err)
		}
		view.IsFollowing = following
	}

	return view, nil
}

// Follow makes accountID follow the account named username. Following an
// already-followed account is a no-op.
func (p *Processor) Follow(c context.Context, accountID string, username string) error {
	target, err := p.accountStore.FindByUsername(c, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find account: %w", err)
	}

	if target.ID == accountID {
		return ErrSelfFollow
	}

	return p.followStore.Follow(c, accountID, target.ID)
}

// Unfollow removes the follow edge if present; absent edges are a no-op.
func (p *Processor) Unfollow(c context.Context, accountID string, username string) error {
	target, err := p.accountStore.FindByUsername(c, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find account: %w", err)
	}

	if target.ID == accountID {
		return ErrSelfFollow
	}

	return p.followStore.Unfollow(c, accountID, target.ID)
}
