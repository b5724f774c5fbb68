package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/filecrate/filecrate/internal/domain"
	"github.com/filecrate/filecrate/internal/store"
	"github.com/filecrate/filecrate/pkg/cryptox"
	"github.com/filecrate/filecrate/pkg/idx"
	"github.com/filecrate/filecrate/pkg/jwtx"
	"github.com/filecrate/filecrate/pkg/slogx"
)

const (
	MinPasswordLength    = 6
	MinDisplayNameLength = 3
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUsernameTaken      = errors.New("username_taken")
)

// usernamePattern is applied after lowercasing, so any-case input is fine.
var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// ValidationError reports client input that fails signup rules. The message
// is safe to echo back to the client verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErr(msg string) error { return &ValidationError{Msg: msg} }

// AuthService implements signup and login. It owns credential validation and
// token minting; it never hands a password hash past its own boundary.
type AuthService struct {
	Store      store.Store
	Signer     jwtx.Signer
	Issuer     string
	SessionTTL time.Duration
}

// Signup registers a new account. Usernames are case-insensitive and stored
// lowercase; the schema's unique index is the authoritative duplicate guard,
// the lookup here only gives racers a friendlier early answer.
func (s *AuthService) Signup(ctx context.Context, username, password, displayName string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return domain.User{}, validationErr("username must be 3-20 characters of letters, digits or underscores")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return domain.User{}, validationErr("password must be at least 6 characters")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName != "" && utf8.RuneCountInString(displayName) < MinDisplayNameLength {
		return domain.User{}, validationErr("name must be at least 3 characters")
	}

	if _, err := s.Store.Users().GetUserByUsername(ctx, username); err == nil {
		return domain.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	// Hash outside any transaction; bcrypt at this cost takes long enough
	// that holding a write lock across it would serialize every signup.
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, err
	}

	l.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username))

	return user, nil
}

// Login verifies credentials and mints a session token. Unknown usernames and
// wrong passwords collapse into the same error so responses never reveal
// which half was wrong.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, domain.PublicUserView, error) {
	l := slogx.FromContext(ctx)

	username = strings.ToLower(strings.TrimSpace(username))

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.PublicUserView{}, ErrInvalidCredentials
		}
		return "", domain.PublicUserView{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			l.Info("login rejected", slog.String("username", username))
			return "", domain.PublicUserView{}, ErrInvalidCredentials
		}
		return "", domain.PublicUserView{}, err
	}

	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	claims := jwtx.NewSessionClaims(user.ID, user.Username, s.Issuer, ttl, time.Now().UTC())
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", domain.PublicUserView{}, err
	}

	l.Info("user logged in", slog.String("user_id", user.ID))

	return token, user.Public(), nil
}
