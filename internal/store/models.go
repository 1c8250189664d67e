package store

import "time"

type CaseStatus string

const (
	StatusOpen       CaseStatus = "OPEN"
	StatusInProgress CaseStatus = "IN_PROGRESS"
	StatusClosed     CaseStatus = "CLOSED"
	StatusArchived   CaseStatus = "ARCHIVED"
)

// Valid reports whether s is one of the wire values accepted by the API.
func (s CaseStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed, StatusArchived:
		return true
	}
	return false
}

type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"` // Do not expose this in JSON responses
	Name         *string   `db:"name" json:"name"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type Case struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"userId"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description"`
	Type        *string    `db:"type" json:"type"`
	Status      CaseStatus `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// CaseDetails is a case with its children loaded, as returned by the detail view.
type CaseDetails struct {
	Case
	Documents []Document `json:"documents"`
	Tasks     []Task     `json:"tasks"`
	Messages  []Message  `json:"messages"`
}

type Message struct {
	ID        string      `db:"id" json:"id"` // UUIDv7, sorts with created_at
	CaseID    string      `db:"case_id" json:"caseId"`
	UserID    string      `db:"user_id" json:"userId"`
	Role      MessageRole `db:"role" json:"role"`
	Content   string      `db:"content" json:"content"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

type Document struct {
	ID        string    `db:"id" json:"id"`
	CaseID    string    `db:"case_id" json:"caseId"`
	Name      string    `db:"name" json:"name"`
	MediaType string    `db:"media_type" json:"mediaType"`
	SizeBytes int64     `db:"size_bytes" json:"sizeBytes"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type Task struct {
	ID          string    `db:"id" json:"id"`
	CaseID      string    `db:"case_id" json:"caseId"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description"`
	Completed   bool      `db:"completed" json:"completed"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// CaseFilter narrows ListCasesByUserID. Zero values mean "no filter".
type CaseFilter struct {
	Status CaseStatus
	Limit  int
}

// CaseChanges carries the columns an update writes. Nil pointers are left untouched.
type CaseChanges struct {
	Title       *string
	Description *string
	Type        *string
	Status      *CaseStatus
	UpdatedAt   time.Time
}
