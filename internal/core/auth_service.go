package core

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"casedesk.app/server/internal/auth"
	"casedesk.app/server/internal/store"
)

const minPasswordLength = 6

// UserStore is the slice of the data store used by AuthService.
type UserStore interface {
	CreateUser(ctx context.Context, u *store.User) error
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	GetUserByID(ctx context.Context, id string) (*store.User, error)
}

type AuthService struct {
	users   UserStore
	hasher  *auth.PasswordHasher
	tokens  *auth.TokenIssuer
	revoker auth.Revoker
	logger  *zap.Logger
}

func NewAuthService(users UserStore, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer, revoker auth.Revoker, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		revoker: revoker,
		logger:  logger,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     *string
}

func (in RegisterInput) validate() error {
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return validation("Email invalide")
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return validation("Le mot de passe doit contenir au moins 6 caractères")
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return validation("Le mot de passe ne doit pas dépasser 72 octets")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return validation("Le nom ne peut pas être vide")
	}
	return nil
}

// Register creates an account. Emails are matched exactly, case included.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*store.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &store.User{Email: in.Email, PasswordHash: hash, Name: in.Name}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Authenticate checks credentials and issues a session token.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		s.hasher.BurnCompare(password)
		s.logger.Info("login attempt with unknown email")
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Matches(user.PasswordHash, password) {
		s.logger.Info("login attempt with invalid password", zap.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("login successful", zap.String("user_id", user.ID))
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Authorize resolves a session token to the caller. Every failure is ErrUnauthorized.
func (s *AuthService) Authorize(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("revocation lookup failed", zap.Error(err))
		return nil, ErrUnauthorized
	}
	if revoked {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		s.logger.Error("session user lookup failed", zap.Error(err))
		return nil, ErrUnauthorized
	}
	if user == nil {
		return nil, ErrUnauthorized
	}

	return &Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the caller's session until its token would have expired.
func (s *AuthService) Logout(ctx context.Context, id *Identity) error {
	if err := s.revoker.Revoke(ctx, id.SessionID, id.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.logger.Info("user logged out", zap.String("user_id", id.UserID))
	return nil
}

// CurrentUser loads the account behind an identity.
func (s *AuthService) CurrentUser(ctx context.Context, id *Identity) (*store.User, error) {
	user, err := s.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}
