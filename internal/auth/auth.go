// Package auth verifies agency admin credentials and issues bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jonesrussell/civic-triage/infrastructure/jwt"
	"github.com/jonesrussell/civic-triage/infrastructure/logger"
	"github.com/jonesrussell/civic-triage/internal/domain"
)

var (
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingCredentials is returned when username or password is blank.
	ErrMissingCredentials = errors.New("username and password are required")
)

// MinPasswordLength applies to new admin accounts.
const MinPasswordLength = 8

// UserStore looks up admins and their agencies.
type UserStore interface {
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindAgencyByID(ctx context.Context, id int64) (*domain.Agency, error)
}

// UserCreator stores new admins.
type UserCreator interface {
	CreateUser(ctx context.Context, u *domain.User) error
}

// Session is the result of a successful login.
type Session struct {
	User      domain.User
	Agency    *domain.Agency
	Token     string
	ExpiresAt time.Time
}

// Authenticator checks passwords and signs tokens.
type Authenticator struct {
	users  UserStore
	tokens *jwt.Manager
	log    logger.Logger
}

// NewAuthenticator returns an Authenticator.
func NewAuthenticator(users UserStore, tokens *jwt.Manager, log logger.Logger) *Authenticator {
	return &Authenticator{users: users, tokens: tokens, log: log}
}

// Login verifies username and password and returns a signed session.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := a.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); cmpErr != nil {
		a.log.Info("Admin login rejected", logger.String("username", username))
		return nil, ErrInvalidCredentials
	}

	var agency *domain.Agency
	if user.AgencyID != nil {
		agency, err = a.users.FindAgencyByID(ctx, *user.AgencyID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("find agency: %w", err)
		}
	}

	token, expiresAt, err := a.tokens.Generate(user.ID, user.Username, user.Role, user.AgencyID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	a.log.Info("Admin logged in",
		logger.Int64("user_id", user.ID),
		logger.OptionalInt64("agency_id", user.AgencyID),
	)

	return &Session{User: *user, Agency: agency, Token: token, ExpiresAt: expiresAt}, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CreateAdmin stores a new admin for agencyID (nil for none).
func CreateAdmin(ctx context.Context, store UserCreator, username, password string, agencyID *int64) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Username:     username,
		PasswordHash: hash,
		AgencyID:     agencyID,
		Role:         domain.RoleAdmin,
	}
	if err := store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
