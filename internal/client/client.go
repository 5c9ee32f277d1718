// Package client talks to the medialib HTTP API on behalf of the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"medialib/pkg/models"
)

// APIError is a non-2xx answer; Message is the server's "error" field when
// it sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

type Client struct {
	baseURL    string
	session    *Session
	httpClient *http.Client
}

// New creates a client. The session supplies the bearer token and may be nil.
func New(baseURL string, session *Session, timeout ...time.Duration) *Client {
	httpTimeout := 30 * time.Second
	if len(timeout) > 0 && timeout[0] > 0 {
		httpTimeout = timeout[0]
	}
	if session == nil {
		session = &Session{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    session,
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

func (c *Client) Session() *Session { return c.session }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if tok := c.session.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil {
			apiErr.Message = envelope.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type AuthResponse struct {
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Register creates an account and signs the session in.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username, "email": email, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.session.SignIn(out.Token, out.User.Username)
	return &out, nil
}

// Login signs the session in.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.session.SignIn(out.Token, out.User.Username)
	return &out, nil
}

// Logout revokes the token server side and clears the session either way.
func (c *Client) Logout(ctx context.Context) error {
	defer c.session.Clear()
	if c.session.Token() == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// PageInfo is the pagination block shared by list responses.
type PageInfo struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

type MediaPage struct {
	Media []models.Media `json:"media"`
	PageInfo
}

type CharacterPage struct {
	Characters []models.Character `json:"characters"`
	PageInfo
}

type LibraryPage struct {
	Library []models.LibraryEntry `json:"library"`
	PageInfo
}

type HistoryPage struct {
	History []models.ProgressHistory `json:"history"`
	PageInfo
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

func (c *Client) SearchMedia(ctx context.Context, params url.Values) (*MediaPage, error) {
	var out MediaPage
	if err := c.do(ctx, http.MethodGet, withQuery("/api/media", params), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchCharacters(ctx context.Context, params url.Values) (*CharacterPage, error) {
	var out CharacterPage
	if err := c.do(ctx, http.MethodGet, withQuery("/api/characters", params), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchLibrary(ctx context.Context, params url.Values) (*LibraryPage, error) {
	var out LibraryPage
	if err := c.do(ctx, http.MethodGet, withQuery("/api/library", params), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EntryUpdate is the body of a library upsert; zero fields use server defaults.
type EntryUpdate struct {
	Status   string `json:"status,omitempty"`
	Score    *int   `json:"score,omitempty"`
	Progress int    `json:"progress"`
	Notes    string `json:"notes,omitempty"`
}

func (c *Client) SetEntry(ctx context.Context, mediaID int64, u EntryUpdate) (*models.LibraryEntry, error) {
	var out models.LibraryEntry
	if err := c.do(ctx, http.MethodPut, "/api/library/"+strconv.FormatInt(mediaID, 10), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveEntry(ctx context.Context, mediaID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/library/"+strconv.FormatInt(mediaID, 10), nil, nil)
}

func (c *Client) History(ctx context.Context, mediaID int64, params url.Values) (*HistoryPage, error) {
	var out HistoryPage
	path := withQuery("/api/library/"+strconv.FormatInt(mediaID, 10)+"/progress", params)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
