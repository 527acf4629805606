package sqlite

import (
	"time"

	"github.com/mashiro/microblog"
)

// AccountModel is the gorm model for the accounts table.
type AccountModel struct {
	ID           string `gorm:"type:varchar(32);primaryKey"`
	Username     string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Email        string `gorm:"type:varchar(120);uniqueIndex;not null"`
	PasswordHash string `gorm:"type:varchar(256)"`
	Bio          string `gorm:"type:varchar(140)"`
	LastSeen     *time.Time
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToDomain() *microblog.Account {
	return &microblog.Account{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Bio:          m.Bio,
		LastSeen:     m.LastSeen,
	}
}

func accountToModel(a *microblog.Account) *AccountModel {
	return &AccountModel{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Bio:          a.Bio,
		LastSeen:     a.LastSeen,
	}
}

// FollowModel is one directed edge of the follow graph. The composite
// primary key is the uniqueness constraint on the ordered pair and the
// lookup index for the follower direction; the extra index on FollowedID
// covers the reverse direction.
type FollowModel struct {
	FollowerID string `gorm:"type:varchar(32);primaryKey"`
	FollowedID string `gorm:"type:varchar(32);primaryKey;index"`
}

func (FollowModel) TableName() string {
	return "follows"
}

// PostModel is the gorm model for the posts table. Rows are insert-only:
// body, timestamp and author never change after creation.
type PostModel struct {
	ID        string        `gorm:"type:varchar(26);primaryKey"`
	Body      string        `gorm:"type:varchar(140);not null"`
	CreatedAt time.Time     `gorm:"index;not null"`
	AuthorID  string        `gorm:"type:varchar(32);index;not null"`
	Author    *AccountModel `gorm:"foreignKey:AuthorID"`
}

func (PostModel) TableName() string {
	return "posts"
}

func (m *PostModel) ToDomain() *microblog.Post {
	post := &microblog.Post{
		ID:        m.ID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
		AuthorID:  m.AuthorID,
	}
	if m.Author != nil {
		post.Author = m.Author.ToDomain()
	}
	return post
}

func postToModel(p *microblog.Post) *PostModel {
	return &PostModel{
		ID:        p.ID,
		Body:      p.Body,
		CreatedAt: p.CreatedAt,
		AuthorID:  p.AuthorID,
	}
}
