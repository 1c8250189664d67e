package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"casedesk.app/server/internal/auth"
	"casedesk.app/server/internal/store"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.auth.Register(ctx, RegisterInput{Email: " ana@example.com ", Password: "secret123", Name: strPtr("Ana")})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "ana@example.com" || u.Name == nil || *u.Name != "Ana" {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.PasswordHash == "secret123" {
		t.Fatal("password stored in clear")
	}

	_, err = env.auth.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "another1"})
	assertKind(t, err, KindDuplicateEmail)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := map[string]RegisterInput{
		"invalid email":  {Email: "not-an-email", Password: "secret123"},
		"display form":   {Email: "Ana <ana@example.com>", Password: "secret123"},
		"short password": {Email: "ana@example.com", Password: "12345"},
		"long password":  {Email: "ana@example.com", Password: strings.Repeat("a", 73)},
		"blank name":     {Email: "ana@example.com", Password: "secret123", Name: strPtr("  ")},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := env.auth.Register(context.Background(), in)
			assertKind(t, err, KindValidation)
		})
	}
}

func TestRegisterAcceptsLongestPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	password := strings.Repeat("a", 72)

	if _, err := env.auth.Register(ctx, RegisterInput{Email: "long@example.com", Password: password}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := env.auth.Authenticate(ctx, "long@example.com", password); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
}

// racingUserStore misses the existing account on lookup, as if a concurrent
// registration committed between the check and the insert.
type racingUserStore struct {
	*store.Store
}

func (r racingUserStore) GetUserByEmail(context.Context, string) (*store.User, error) {
	return nil, nil
}

func TestRegisterDuplicateRace(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ana@example.com")

	svc := NewAuthService(racingUserStore{env.store}, auth.NewPasswordHasher(bcrypt.MinCost),
		auth.NewTokenIssuer("s", "casedesk", time.Hour), auth.NewStoreRevoker(env.store), zap.NewNop())
	_, err := svc.Register(context.Background(), RegisterInput{Email: "ana@example.com", Password: "secret123"})
	assertKind(t, err, KindDuplicateEmail)
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "ana@example.com")

	sess, err := env.auth.Authenticate(ctx, "ana@example.com", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if sess.Token == "" || sess.User.ID != u.ID || sess.ExpiresAt.IsZero() {
		t.Fatalf("unexpected session %+v", sess)
	}

	_, err = env.auth.Authenticate(ctx, "ana@example.com", "wrong-password")
	assertKind(t, err, KindInvalidCredentials)
	_, err = env.auth.Authenticate(ctx, "nobody@example.com", "secret123")
	assertKind(t, err, KindInvalidCredentials)
	_, err = env.auth.Authenticate(ctx, "ANA@example.com", "secret123")
	assertKind(t, err, KindInvalidCredentials)
	_, err = env.auth.Authenticate(ctx, "", "")
	assertKind(t, err, KindInvalidCredentials)
	_, err = env.auth.Authenticate(ctx, "ana@example.com", "")
	assertKind(t, err, KindInvalidCredentials)
}

func TestAuthorizeAndLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "ana@example.com")

	sess, err := env.auth.Authenticate(ctx, "ana@example.com", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	id, err := env.auth.Authorize(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if id.UserID != u.ID || id.Email != u.Email || id.SessionID == "" {
		t.Fatalf("unexpected identity %+v", id)
	}

	current, err := env.auth.CurrentUser(ctx, id)
	if err != nil || current.ID != u.ID {
		t.Fatalf("CurrentUser = %+v, %v", current, err)
	}

	if err := env.auth.Logout(ctx, id); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err = env.auth.Authorize(ctx, sess.Token)
	assertKind(t, err, KindUnauthorized)

	other, err := env.auth.Authenticate(ctx, "ana@example.com", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := env.auth.Authorize(ctx, other.Token); err != nil {
		t.Fatalf("a fresh session must survive logout of another: %v", err)
	}
}

func TestAuthorizeRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := env.auth.Authorize(ctx, token)
		assertKind(t, err, KindUnauthorized)
	}

	// A valid signature for a user that does not exist.
	issuer := auth.NewTokenIssuer("test-secret", "casedesk", time.Hour)
	token, _, err := issuer.Issue("ghost")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = env.auth.Authorize(ctx, token)
	assertKind(t, err, KindUnauthorized)
}
