package microblog

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Host         string `envconfig:"HOST" default:"localhost:8080"`
	Port         int    `envconfig:"PORT" default:"8080"`
	Https        bool   `envconfig:"HTTPS" default:"false"`
	DatabaseDSN  string `envconfig:"DATABASE_DSN" default:"./database.db?_fk=1"`
	SessionDSN   string `envconfig:"SESSION_DSN" default:"./session.db"`
	LogFile      string `envconfig:"LOG_FILE" default:"./microblog.log"`
	PostsPerPage int    `envconfig:"POSTS_PER_PAGE" default:"25"`

	// Outbound error notification. Disabled unless MailHost is set.
	MailHost     string   `envconfig:"MAIL_HOST" default:""`
	MailPort     int      `envconfig:"MAIL_PORT" default:"587"`
	MailUsername string   `envconfig:"MAIL_USERNAME" default:""`
	MailPassword string   `envconfig:"MAIL_PASSWORD" default:""`
	MailSender   string   `envconfig:"MAIL_SENDER" default:"no-reply@localhost"`
	AdminEmails  []string `envconfig:"ADMIN_EMAILS"`
}

func ParseConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("microblog", &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	return &cfg, nil
}

// PostBodyMaxLen bounds the length of a post body and a profile bio,
// counted in runes. Enforced at validation time and again by the storage
// layer.
const PostBodyMaxLen = 140

var (
	ErrNotFound      = errors.New("not found")
	ErrSelfFollow    = errors.New("cannot follow or unfollow yourself")
	ErrUsernameTaken = errors.New("username is already taken")
	ErrEmailTaken    = errors.New("email is already registered")
	ErrInvalidLogin  = errors.New("invalid username or password")
	ErrInvalidSignup = errors.New("username, email and password are required")
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrEmptyPost     = errors.New("post body is empty")
	ErrPostTooLong   = errors.New("post body is too long")
	ErrBioTooLong    = errors.New("bio is too long")
)
