// Package client is a typed Go client for the casedesk HTTP API. The server is the
// only source of truth: every call goes over the wire and nothing is cached.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"casedesk.app/server/internal/store"
)

// Client calls the casedesk API over HTTP and keeps the session token obtained by Login.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// APIError represents an error response of the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// New constructs a client. A nil httpClient gets a 10 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Token returns the current session token, empty when logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken installs a token obtained elsewhere.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type User struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

func (c *Client) Register(ctx context.Context, email, password string, name *string) (User, error) {
	body := map[string]any{"email": email, "password": password}
	if name != nil {
		body["name"] = *name
	}
	var resp struct {
		User User `json:"user"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", body, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// Login authenticates and keeps the returned token for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var resp LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return LoginResult{}, err
	}
	c.SetToken(resp.Token)
	return resp, nil
}

// Logout revokes the session server-side and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *Client) Session(ctx context.Context) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/auth/session", nil, &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

type ListCasesOptions struct {
	Status store.CaseStatus
	Limit  int
}

func (c *Client) ListCases(ctx context.Context, opts ListCasesOptions) ([]store.Case, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/cases"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Cases []store.Case `json:"cases"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Cases, nil
}

type CaseInput struct {
	Title       string            `json:"title"`
	Description *string           `json:"description,omitempty"`
	Type        *string           `json:"type,omitempty"`
	Status      *store.CaseStatus `json:"status,omitempty"`
}

func (c *Client) CreateCase(ctx context.Context, in CaseInput) (store.Case, error) {
	var resp struct {
		Case store.Case `json:"case"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/cases", in, &resp); err != nil {
		return store.Case{}, err
	}
	return resp.Case, nil
}

func (c *Client) GetCase(ctx context.Context, id string) (store.CaseDetails, error) {
	var resp struct {
		Case store.CaseDetails `json:"case"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/cases/"+url.PathEscape(id), nil, &resp); err != nil {
		return store.CaseDetails{}, err
	}
	return resp.Case, nil
}

// CasePatch lists the fields to change; nil fields are left as they are.
type CasePatch struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Type        *string           `json:"type,omitempty"`
	Status      *store.CaseStatus `json:"status,omitempty"`
}

func (c *Client) UpdateCase(ctx context.Context, id string, patch CasePatch) (store.Case, error) {
	var resp struct {
		Case store.Case `json:"case"`
	}
	if err := c.call(ctx, http.MethodPatch, "/api/cases/"+url.PathEscape(id), patch, &resp); err != nil {
		return store.Case{}, err
	}
	return resp.Case, nil
}

func (c *Client) DeleteCase(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/cases/"+url.PathEscape(id), nil, nil)
}

func (c *Client) PostMessage(ctx context.Context, caseID, content string) (store.Message, error) {
	var resp struct {
		Message store.Message `json:"message"`
	}
	body := map[string]string{"content": content}
	if err := c.call(ctx, http.MethodPost, "/api/cases/"+url.PathEscape(caseID)+"/messages", body, &resp); err != nil {
		return store.Message{}, err
	}
	return resp.Message, nil
}

// ListMessages returns the latest limit messages, oldest first. limit <= 0 uses the
// server default.
func (c *Client) ListMessages(ctx context.Context, caseID string, limit int) ([]store.Message, error) {
	path := "/api/cases/" + url.PathEscape(caseID) + "/messages"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Messages []store.Message `json:"messages"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

type DocumentInput struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	SizeBytes int64  `json:"sizeBytes"`
}

func (c *Client) AddDocument(ctx context.Context, caseID string, in DocumentInput) (store.Document, error) {
	var resp struct {
		Document store.Document `json:"document"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/cases/"+url.PathEscape(caseID)+"/documents", in, &resp); err != nil {
		return store.Document{}, err
	}
	return resp.Document, nil
}

func (c *Client) ListDocuments(ctx context.Context, caseID string) ([]store.Document, error) {
	var resp struct {
		Documents []store.Document `json:"documents"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/cases/"+url.PathEscape(caseID)+"/documents", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

type TaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

func (c *Client) AddTask(ctx context.Context, caseID string, in TaskInput) (store.Task, error) {
	var resp struct {
		Task store.Task `json:"task"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/cases/"+url.PathEscape(caseID)+"/tasks", in, &resp); err != nil {
		return store.Task{}, err
	}
	return resp.Task, nil
}

func (c *Client) ListTasks(ctx context.Context, caseID string) ([]store.Task, error) {
	var resp struct {
		Tasks []store.Task `json:"tasks"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/cases/"+url.PathEscape(caseID)+"/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (c *Client) SetTaskCompleted(ctx context.Context, caseID, taskID string, completed bool) (store.Task, error) {
	var resp struct {
		Task store.Task `json:"task"`
	}
	path := "/api/cases/" + url.PathEscape(caseID) + "/tasks/" + url.PathEscape(taskID)
	if err := c.call(ctx, http.MethodPatch, path, map[string]bool{"completed": completed}, &resp); err != nil {
		return store.Task{}, err
	}
	return resp.Task, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuthHeader(req, c.Token())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func addAuthHeader(req *http.Request, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
