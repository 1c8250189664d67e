package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "casedesk.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createUser(t *testing.T, s *Store, email string) *User {
	t.Helper()
	u := &User{Email: email, PasswordHash: "hash"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func createCase(t *testing.T, s *Store, userID, title string) *Case {
	t.Helper()
	c := &Case{UserID: userID, Title: title}
	if err := s.CreateCase(context.Background(), c); err != nil {
		t.Fatalf("create case: %v", err)
	}
	return c
}

func TestMigrationFilesArePaired(t *testing.T) {
	for _, dir := range []string{"migrations/sqlite", "migrations/postgres"} {
		entries, err := fs.ReadDir(migrations, dir)
		if err != nil {
			t.Fatalf("read %s: %v", dir, err)
		}
		names := map[string]bool{}
		for _, e := range entries {
			names[e.Name()] = true
		}
		for name := range names {
			if strings.HasSuffix(name, ".up.sql") {
				down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
				if !names[down] {
					t.Errorf("%s/%s has no matching %s", dir, name, down)
				}
			}
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "casedesk.db")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), DriverSQLite, path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		var applied int
		if err := s.db.Get(&applied, `SELECT COUNT(*) FROM schema_migrations`); err != nil {
			t.Fatalf("count migrations: %v", err)
		}
		if applied != 1 {
			t.Fatalf("applied migrations = %d, want 1", applied)
		}
		s.Close()
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct{ in, want string }{
		{"casedesk.db", "file:casedesk.db?_foreign_keys=on&_busy_timeout=5000"},
		{"file:x.db?cache=shared", "file:x.db?cache=shared&_foreign_keys=on&_busy_timeout=5000"},
		{"file:x.db?_foreign_keys=on&_busy_timeout=100", "file:x.db?_foreign_keys=on&_busy_timeout=100"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.in); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createUser(t, s, "ana@example.com")
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Fatalf("expected id and createdAt to be set, got %+v", u)
	}

	got, err := s.GetUserByEmail(ctx, "ana@example.com")
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("GetUserByEmail = %+v, %v", got, err)
	}
	if got, _ := s.GetUserByEmail(ctx, "ANA@example.com"); got != nil {
		t.Fatal("email lookup must be an exact match")
	}
	if got, err := s.GetUserByID(ctx, "missing"); got != nil || err != nil {
		t.Fatalf("GetUserByID(missing) = %+v, %v", got, err)
	}

	err = s.CreateUser(ctx, &User{Email: "ana@example.com", PasswordHash: "other"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate email err = %v, want ErrDuplicate", err)
	}
}

func TestCaseOwnershipScoping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "owner@example.com")
	other := createUser(t, s, "other@example.com")
	c := createCase(t, s, owner.ID, "Litige locatif")

	if c.Status != StatusOpen {
		t.Fatalf("default status = %q, want OPEN", c.Status)
	}
	if got, err := s.GetCaseByID(ctx, c.ID, other.ID); got != nil || err != nil {
		t.Fatalf("foreign GetCaseByID = %+v, %v", got, err)
	}
	title := "hijack"
	if got, err := s.UpdateCase(ctx, c.ID, other.ID, CaseChanges{Title: &title}); got != nil || err != nil {
		t.Fatalf("foreign UpdateCase = %+v, %v", got, err)
	}
	if ok, err := s.DeleteCase(ctx, c.ID, other.ID); ok || err != nil {
		t.Fatalf("foreign DeleteCase = %v, %v", ok, err)
	}

	got, err := s.GetCaseByID(ctx, c.ID, owner.ID)
	if err != nil || got == nil {
		t.Fatalf("GetCaseByID = %+v, %v", got, err)
	}
	if got.Title != "Litige locatif" || got.Description != nil || got.Type != nil {
		t.Fatalf("unexpected case %+v", got)
	}
}

func TestListCasesOrderAndFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")
	first := createCase(t, s, u.ID, "first")
	second := createCase(t, s, u.ID, "second")

	closed := StatusClosed
	if _, err := s.UpdateCase(ctx, first.ID, u.ID, CaseChanges{Status: &closed, UpdatedAt: time.Now().Add(time.Second)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	cases, err := s.ListCasesByUserID(ctx, u.ID, CaseFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cases) != 2 || cases[0].ID != first.ID || cases[1].ID != second.ID {
		t.Fatalf("expected most recently updated first, got %+v", cases)
	}

	cases, err = s.ListCasesByUserID(ctx, u.ID, CaseFilter{Status: StatusClosed})
	if err != nil || len(cases) != 1 || cases[0].ID != first.ID {
		t.Fatalf("status filter = %+v, %v", cases, err)
	}

	cases, err = s.ListCasesByUserID(ctx, u.ID, CaseFilter{Limit: 1})
	if err != nil || len(cases) != 1 {
		t.Fatalf("limit = %+v, %v", cases, err)
	}

	other := createUser(t, s, "other@example.com")
	cases, err = s.ListCasesByUserID(ctx, other.ID, CaseFilter{})
	if err != nil || cases == nil || len(cases) != 0 {
		t.Fatalf("other user list = %#v, %v", cases, err)
	}
}

func TestUpdateCaseChangesOnlyGivenFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")
	desc := "bail de 2019"
	c := &Case{UserID: u.ID, Title: "Loyer", Description: &desc}
	if err := s.CreateCase(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	status := StatusInProgress
	at := c.UpdatedAt.Add(time.Millisecond)
	got, err := s.UpdateCase(ctx, c.ID, u.ID, CaseChanges{Status: &status, UpdatedAt: at})
	if err != nil || got == nil {
		t.Fatalf("update = %+v, %v", got, err)
	}
	if got.Status != StatusInProgress || got.Title != "Loyer" || got.Description == nil || *got.Description != desc {
		t.Fatalf("unexpected case after update: %+v", got)
	}
	if !got.UpdatedAt.Equal(at) {
		t.Fatalf("updatedAt = %v, want %v", got.UpdatedAt, at)
	}
	if !got.CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("createdAt changed: %v -> %v", c.CreatedAt, got.CreatedAt)
	}
}

func TestDeleteCaseCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")
	c := createCase(t, s, u.ID, "Dossier")

	if err := s.CreateMessage(ctx, &Message{CaseID: c.ID, UserID: u.ID, Role: RoleUser, Content: "bonjour"}); err != nil {
		t.Fatalf("message: %v", err)
	}
	if err := s.CreateDocument(ctx, &Document{CaseID: c.ID, Name: "bail.pdf", MediaType: "application/pdf", SizeBytes: 10}); err != nil {
		t.Fatalf("document: %v", err)
	}
	if err := s.CreateTask(ctx, &Task{CaseID: c.ID, Title: "Appeler"}); err != nil {
		t.Fatalf("task: %v", err)
	}

	ok, err := s.DeleteCase(ctx, c.ID, u.ID)
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	for _, table := range []string{"messages", "documents", "tasks"} {
		var n int
		if err := s.db.Get(&n, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s left behind after delete: %d", table, n)
		}
	}

	err = s.CreateMessage(ctx, &Message{CaseID: c.ID, UserID: u.ID, Role: RoleAssistant, Content: "late"})
	if !errors.Is(err, ErrMissingParent) {
		t.Fatalf("message on deleted case err = %v, want ErrMissingParent", err)
	}
}

func TestRecentMessagesWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")
	c := createCase(t, s, u.ID, "Dossier")

	for i := 0; i < 55; i++ {
		m := &Message{CaseID: c.ID, UserID: u.ID, Role: RoleUser, Content: fmt.Sprintf("m%02d", i)}
		if err := s.CreateMessage(ctx, m); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}

	got, err := s.GetRecentMessagesByCaseID(ctx, c.ID, 50)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("len = %d, want 50", len(got))
	}
	if got[0].Content != "m05" || got[49].Content != "m54" {
		t.Fatalf("window = %s..%s, want m05..m54", got[0].Content, got[49].Content)
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Fatalf("messages out of order at %d", i)
		}
	}
}

func TestAttachments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")
	c := createCase(t, s, u.ID, "Dossier")
	other := createCase(t, s, u.ID, "Autre")

	for _, name := range []string{"a.pdf", "b.pdf"} {
		if err := s.CreateDocument(ctx, &Document{CaseID: c.ID, Name: name, MediaType: "application/pdf"}); err != nil {
			t.Fatalf("document: %v", err)
		}
	}
	docs, err := s.ListDocumentsByCaseID(ctx, c.ID)
	if err != nil || len(docs) != 2 || docs[0].Name != "b.pdf" {
		t.Fatalf("documents = %+v, %v", docs, err)
	}

	task := &Task{CaseID: c.ID, Title: "Rassembler les reçus"}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("task: %v", err)
	}
	if got, err := s.SetTaskCompleted(ctx, other.ID, task.ID, true); got != nil || err != nil {
		t.Fatalf("task through other case = %+v, %v", got, err)
	}
	got, err := s.SetTaskCompleted(ctx, c.ID, task.ID, true)
	if err != nil || got == nil || !got.Completed {
		t.Fatalf("SetTaskCompleted = %+v, %v", got, err)
	}
	tasks, err := s.ListTasksByCaseID(ctx, c.ID)
	if err != nil || len(tasks) != 1 || !tasks[0].Completed {
		t.Fatalf("tasks = %+v, %v", tasks, err)
	}
}

func TestRevocations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RevokeToken(ctx, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := s.RevokeToken(ctx, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("revoke twice: %v", err)
	}
	if err := s.RevokeToken(ctx, "stale", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("revoke stale: %v", err)
	}

	if ok, err := s.IsTokenRevoked(ctx, "live"); err != nil || !ok {
		t.Fatalf("live revoked = %v, %v", ok, err)
	}
	if ok, err := s.IsTokenRevoked(ctx, "stale"); err != nil || ok {
		t.Fatalf("stale revoked = %v, %v", ok, err)
	}
	if ok, err := s.IsTokenRevoked(ctx, "unknown"); err != nil || ok {
		t.Fatalf("unknown revoked = %v, %v", ok, err)
	}

	n, err := s.PurgeExpiredRevocations(ctx)
	if err != nil || n != 1 {
		t.Fatalf("purge = %d, %v", n, err)
	}
}
