package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"emperror.dev/errors"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/mashiro/microblog"
	"github.com/mashiro/microblog/lib/array"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SQLite struct {
	db *gorm.DB
}

func NewSQLite(cfg *microblog.Config) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", errors.WithStack(err))
	}

	if err := db.AutoMigrate(&AccountModel{}, &FollowModel{}, &PostModel{}); err != nil {
		return nil, fmt.Errorf("failed creating schema resources: %w", errors.WithStack(err))
	}

	return &SQLite{db: db}, nil
}

// account

type AccountDB struct {
	*SQLite
}

func NewAccountDB(db *SQLite) microblog.AccountStore {
	return &AccountDB{SQLite: db}
}

func (d *AccountDB) Save(c context.Context, acc *microblog.Account) error {
	if err := d.db.WithContext(c).Create(accountToModel(acc)).Error; err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to create account: %w", errors.WithStack(err))
	}
	return nil
}

func (d *AccountDB) Find(c context.Context, id string) (*microblog.Account, error) {
	return d.first(c, "id = ?", id)
}

func (d *AccountDB) FindByEmail(c context.Context, email string) (*microblog.Account, error) {
	return d.first(c, "email = ?", email)
}

func (d *AccountDB) FindByUsername(c context.Context, username string) (*microblog.Account, error) {
	return d.first(c, "username = ?", username)
}

func (d *AccountDB) first(c context.Context, cond string, arg string) (*microblog.Account, error) {
	var m AccountModel
	if err := d.db.WithContext(c).First(&m, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, microblog.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", errors.WithStack(err))
	}
	return m.ToDomain(), nil
}

func (d *AccountDB) UpdateBio(c context.Context, id string, bio string) error {
	result := d.db.WithContext(c).Model(&AccountModel{}).
		Where("id = ?", id).
		Update("bio", bio)
	if result.Error != nil {
		return fmt.Errorf("failed to update bio: %w", errors.WithStack(result.Error))
	}
	if result.RowsAffected == 0 {
		return microblog.ErrNotFound
	}
	return nil
}

func (d *AccountDB) TouchLastSeen(c context.Context, id string, at time.Time) error {
	err := d.db.WithContext(c).Model(&AccountModel{}).
		Where("id = ?", id).
		Update("last_seen", at).Error
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", errors.WithStack(err))
	}
	return nil
}

// mapUniqueViolation turns a sqlite unique-constraint failure into the
// matching per-field error. The processor checks before writing; this is
// the constraint-level backstop.
func mapUniqueViolation(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint") {
		return nil
	}
	if strings.Contains(msg, "username") {
		return microblog.ErrUsernameTaken
	}
	if strings.Contains(msg, "email") {
		return microblog.ErrEmailTaken
	}
	return nil
}

// follow

type FollowDB struct {
	*SQLite
}

func NewFollowDB(db *SQLite) microblog.FollowStore {
	return &FollowDB{SQLite: db}
}

func (d *FollowDB) Follow(c context.Context, fromID string, toID string) error {
	// Inserting an existing edge is a no-op, which makes Follow idempotent.
	err := d.db.WithContext(c).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&FollowModel{FollowerID: fromID, FollowedID: toID}).Error
	if err != nil {
		return fmt.Errorf("failed to create follow: %w", errors.WithStack(err))
	}
	return nil
}

func (d *FollowDB) Unfollow(c context.Context, fromID string, toID string) error {
	err := d.db.WithContext(c).
		Where("follower_id = ? AND followed_id = ?", fromID, toID).
		Delete(&FollowModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", errors.WithStack(err))
	}
	return nil
}

func (d *FollowDB) IsFollowing(c context.Context, fromID string, toID string) (bool, error) {
	var count int64
	err := d.db.WithContext(c).Model(&FollowModel{}).
		Where("follower_id = ? AND followed_id = ?", fromID, toID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to get follow: %w", errors.WithStack(err))
	}
	return count > 0, nil
}

func (d *FollowDB) CountFollowers(c context.Context, id string) (int, error) {
	return d.countEdges(c, "followed_id = ?", id)
}

func (d *FollowDB) CountFollowing(c context.Context, id string) (int, error) {
	return d.countEdges(c, "follower_id = ?", id)
}

func (d *FollowDB) countEdges(c context.Context, cond string, id string) (int, error) {
	var count int64
	err := d.db.WithContext(c).Model(&FollowModel{}).
		Where(cond, id).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count follows: %w", errors.WithStack(err))
	}
	return int(count), nil
}

// post

type PostDB struct {
	*SQLite
}

func NewPostDB(db *SQLite) microblog.PostStore {
	return &PostDB{SQLite: db}
}

func (d *PostDB) Save(c context.Context, post *microblog.Post) error {
	// The body bound is validated upstream; enforce it here again so no
	// caller can slip an oversized row past the column declaration.
	if utf8.RuneCountInString(post.Body) > microblog.PostBodyMaxLen {
		return microblog.ErrPostTooLong
	}

	if err := d.db.WithContext(c).Create(postToModel(post)).Error; err != nil {
		return fmt.Errorf("failed to create post: %w", errors.WithStack(err))
	}
	return nil
}

func (d *PostDB) ListByAuthor(c context.Context, authorID string, limit int, offset int) ([]*microblog.Post, error) {
	var models []*PostModel
	err := d.db.WithContext(c).
		Preload("Author").
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", errors.WithStack(err))
	}
	return array.Map(models, (*PostModel).ToDomain), nil
}

func (d *PostDB) ListFeed(c context.Context, accountID string, limit int, offset int) ([]*microblog.Post, error) {
	followed := d.db.Model(&FollowModel{}).
		Select("followed_id").
		Where("follower_id = ?", accountID)

	// One WHERE over the union of "mine" and "followed" keeps each post a
	// single row no matter how many paths reach it, including a
	// hypothetical self-follow. The id tie-break keeps equal timestamps in
	// a stable order across pages.
	var models []*PostModel
	err := d.db.WithContext(c).
		Preload("Author").
		Where("author_id = ? OR author_id IN (?)", accountID, followed).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", errors.WithStack(err))
	}
	return array.Map(models, (*PostModel).ToDomain), nil
}

// session

type Sqlite3Session struct {
	sess *scs.SessionManager
	db   *sql.DB
}

func NewSession(cfg *microblog.Config) (microblog.Session, error) {
	db, err := sql.Open("sqlite3", cfg.SessionDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", errors.WithStack(err))
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session table: %w", errors.WithStack(err))
	}

	sess := scs.New()
	sess.Store = sqlite3store.New(db)
	sess.Lifetime = 30 * 24 * time.Hour
	sess.Cookie.Name = "session_id"
	sess.Cookie.HttpOnly = true
	sess.Cookie.Persist = true
	sess.Cookie.SameSite = http.SameSiteStrictMode
	sess.Cookie.Secure = cfg.Https

	return &Sqlite3Session{
		sess: sess,
		db:   db,
	}, nil
}

func (s *Sqlite3Session) Close() error {
	return s.db.Close()
}

func (s *Sqlite3Session) Set(c context.Context, key string, value any) {
	s.sess.Put(c, key, value)
}

func (s *Sqlite3Session) Get(c context.Context, key string) any {
	return s.sess.Get(c, key)
}

func (s *Sqlite3Session) Pop(c context.Context, key string) any {
	return s.sess.Pop(c, key)
}

func (s *Sqlite3Session) Delete(c context.Context, key string) {
	s.sess.Remove(c, key)
}

func (s *Sqlite3Session) Clear(c context.Context) {
	s.sess.Clear(c)
}

func (s *Sqlite3Session) Middleware(next http.Handler) http.Handler {
	return s.sess.LoadAndSave(next)
}
