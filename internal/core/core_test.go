package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"casedesk.app/server/internal/auth"
	"casedesk.app/server/internal/store"
)

const testReplyDelay = 20 * time.Millisecond

type testEnv struct {
	store       *store.Store
	replies     *ReplyScheduler
	auth        *AuthService
	cases       *CaseService
	messages    *MessageService
	attachments *AttachmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "casedesk.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	replies := NewReplyScheduler(testReplyDelay)
	t.Cleanup(func() {
		replies.Stop()
		st.Close()
	})

	logger := zap.NewNop()
	tokens := auth.NewTokenIssuer("test-secret", "casedesk", time.Hour)
	return &testEnv{
		store:       st,
		replies:     replies,
		auth:        NewAuthService(st, auth.NewPasswordHasher(bcrypt.MinCost), tokens, auth.NewStoreRevoker(st), logger),
		cases:       NewCaseService(st, replies, logger),
		messages:    NewMessageService(st, replies, logger),
		attachments: NewAttachmentService(st),
	}
}

func (e *testEnv) register(t *testing.T, email string) *store.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterInput{Email: email, Password: "secret123"})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func (e *testEnv) createCase(t *testing.T, userID, title string) *store.Case {
	t.Helper()
	c, err := e.cases.CreateCase(context.Background(), userID, CreateCaseInput{Title: title})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}
	return c
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if got := KindOf(err); got != want {
		t.Fatalf("error kind = %v (%v), want %v", got, err, want)
	}
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }
