// Package remote fetches the sample task list used to seed an empty store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"todolist/internal/todo"
)

// DefaultSeedURL serves {"todos":[{"id":1,"todo":"...","completed":false,"userId":..}]}.
const DefaultSeedURL = "https://dummyjson.com/todos"

var (
	ErrInvalidEndpoint = errors.New("invalid seed endpoint")
	ErrTransport       = errors.New("seed request failed")
	ErrEmptyResponse   = errors.New("seed response is empty")
	ErrDecode          = errors.New("seed response has unexpected shape")
)

// Client issues a single GET per FetchSeedTasks call. It never retries or caches.
type Client struct {
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type seedResponse struct {
	Todos *[]seedTodo `json:"todos"`
}

type seedTodo struct {
	ID        *int    `json:"id"`
	Todo      *string `json:"todo"`
	Completed *bool   `json:"completed"`
}

// FetchSeedTasks downloads the seed list and maps it to tasks created now.
// Remote ids are kept; descriptions are null.
func (c *Client) FetchSeedTasks(ctx context.Context) ([]todo.Task, error) {
	u, err := c.validEndpoint()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrTransport, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyResponse
	}

	return c.decode(body)
}

func (c *Client) validEndpoint() (*url.URL, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, c.endpoint)
	}
	return u, nil
}

func (c *Client) decode(body []byte) ([]todo.Task, error) {
	var payload seedResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if payload.Todos == nil {
		return nil, fmt.Errorf("%w: missing \"todos\"", ErrDecode)
	}

	now := c.now()
	tasks := make([]todo.Task, 0, len(*payload.Todos))
	for i, item := range *payload.Todos {
		if item.ID == nil || item.Todo == nil || item.Completed == nil {
			return nil, fmt.Errorf("%w: todos[%d] is missing id, todo or completed", ErrDecode, i)
		}
		tasks = append(tasks, todo.Task{
			ID:        *item.ID,
			Title:     *item.Todo,
			Completed: *item.Completed,
			CreatedAt: now,
		})
	}
	return tasks, nil
}
