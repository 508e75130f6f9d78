// Package client talks to the todocat REST server. Client implements
// todo.Backend so a local store can mirror the server's collection.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"todocat/internal/model"
	"todocat/internal/todo"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	initialDelay   = 200 * time.Millisecond
)

// Client is a REST client scoped by its bearer token.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

var (
	_ todo.Backend        = (*Client)(nil)
	_ todo.CategorySource = (*Client)(nil)
)

type apiError struct {
	Error string `json:"error"`
}

// New creates a client for the server at baseURL. A non-positive timeout
// means the default of ten seconds.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, "/api/todos", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) Create(ctx context.Context, task model.Task) (model.Task, error) {
	var created model.Task
	body := map[string]string{"text": task.Title, "category": task.Category}
	if err := c.do(ctx, http.MethodPost, "/api/todos", body, &created); err != nil {
		return model.Task{}, err
	}
	return created, nil
}

func (c *Client) Update(ctx context.Context, task model.Task) (model.Task, error) {
	var updated model.Task
	patch := todo.Patch{Title: &task.Title, Category: &task.Category, Completed: &task.Completed}
	if err := c.do(ctx, http.MethodPatch, "/api/todos/"+task.ID, patch, &updated); err != nil {
		return model.Task{}, err
	}
	return updated, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/todos/"+id, nil, nil)
}

func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/todos", nil, nil)
}

// Categories returns the categories the server knows for the caller.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	return c.credentials(ctx, "/api/auth/login", username, password)
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	return c.credentials(ctx, "/api/auth/register", username, password)
}

func (c *Client) credentials(ctx context.Context, path, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// do runs one request. Reads are retried with exponential backoff on
// transport errors and 5xx responses; writes are sent once.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = raw
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", todo.ErrPersistence, ctx.Err())
			}
		}

		retry, err := c.roundTrip(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return lastErr
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, out any) (bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("%w: %s %s: %v", todo.ErrPersistence, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("%w: read response: %v", todo.ErrPersistence, err)
	}

	if resp.StatusCode >= 300 {
		return resp.StatusCode >= 500, statusError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return false, fmt.Errorf("%w: decode response: %v", todo.ErrPersistence, err)
	}
	return false, nil
}

// ErrConflict is returned when the server reports a conflict, such as a
// username that is already taken.
var ErrConflict = errors.New("conflict")

func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}

	var sentinel error
	switch status {
	case http.StatusBadRequest:
		sentinel = todo.ErrValidation
	case http.StatusNotFound:
		sentinel = todo.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = todo.ErrUnauthorized
	case http.StatusConflict:
		sentinel = ErrConflict
	default:
		sentinel = todo.ErrPersistence
	}
	return fmt.Errorf("%w: server returned %d: %s", sentinel, status, msg)
}
