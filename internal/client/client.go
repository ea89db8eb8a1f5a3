// Package client is a Go client for the posts API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/garcia/facebook-api/internal/domain"
)

const defaultBaseURL = "http://localhost:8080"

// DefaultReconnectDelay is how long Watch waits before redialing a dropped
// stream.
const DefaultReconnectDelay = 5 * time.Second

// ErrNotFound is matched by errors.Is for any 404 returned by the API.
var ErrNotFound = errors.New("post not found")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s: %s", e.StatusCode, e.Type, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client talks to a posts API server.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *slog.Logger
	reconnectDelay time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 30s-timeout http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectDelay = d }
}

// NewClient creates a client for the server at baseURL. If baseURL is empty,
// it defaults to http://localhost:8080.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:         logger,
		reconnectDelay: DefaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type postBody struct {
	Author   *string `json:"author"`
	Content  *string `json:"content"`
	ImageURL *string `json:"imageUrl"`
}

type patchBody struct {
	Author   *string `json:"author,omitempty"`
	Content  *string `json:"content,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// CreatePost creates a post and returns it with its assigned ID.
func (c *Client) CreatePost(ctx context.Context, fields domain.PostFields) (domain.Post, error) {
	var post domain.Post
	body := postBody{Author: fields.Author, Content: fields.Content, ImageURL: fields.ImageURL}
	if err := c.do(ctx, http.MethodPost, "/api/posts", body, &post); err != nil {
		return domain.Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// ListPosts returns every post, or one page of them when page is non-nil.
func (c *Client) ListPosts(ctx context.Context, page *domain.PageRequest) ([]domain.Post, error) {
	path := "/api/posts"
	if page != nil {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page.Page))
		q.Set("size", strconv.Itoa(page.Size))
		path += "?" + q.Encode()
	}

	var posts []domain.Post
	if err := c.do(ctx, http.MethodGet, path, nil, &posts); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPost fetches a single post.
func (c *Client) GetPost(ctx context.Context, id int64) (domain.Post, error) {
	var post domain.Post
	if err := c.do(ctx, http.MethodGet, postPath(id), nil, &post); err != nil {
		return domain.Post{}, fmt.Errorf("get post %d: %w", id, err)
	}
	return post, nil
}

// ReplacePost overwrites every field of an existing post. Nil fields become
// null.
func (c *Client) ReplacePost(ctx context.Context, id int64, fields domain.PostFields) (domain.Post, error) {
	var post domain.Post
	body := postBody{Author: fields.Author, Content: fields.Content, ImageURL: fields.ImageURL}
	if err := c.do(ctx, http.MethodPut, postPath(id), body, &post); err != nil {
		return domain.Post{}, fmt.Errorf("replace post %d: %w", id, err)
	}
	return post, nil
}

// PatchPost updates only the non-nil fields of patch.
func (c *Client) PatchPost(ctx context.Context, id int64, patch domain.PostPatch) (domain.Post, error) {
	var post domain.Post
	body := patchBody{Author: patch.Author, Content: patch.Content, ImageURL: patch.ImageURL}
	if err := c.do(ctx, http.MethodPatch, postPath(id), body, &post); err != nil {
		return domain.Post{}, fmt.Errorf("patch post %d: %w", id, err)
	}
	return post, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, postPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return nil
}

func postPath(id int64) string {
	return "/api/posts/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &e) == nil && e.Message != "" {
			apiErr.Type = e.Error
			apiErr.Message = e.Message
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
