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
)

// FieldError names one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Errors  []FieldError
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		parts := make([]string, 0, len(e.Errors))
		for _, f := range e.Errors {
			parts = append(parts, f.Field+": "+f.Message)
		}
		return fmt.Sprintf("%d %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Client talks to the CUDorms HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string       `json:"message"`
			Errors  []FieldError `json:"errors"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
			apiErr.Errors = payload.Errors
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/auth/profile", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	in := map[string]string{"currentPassword": current, "newPassword": next}
	return c.do(ctx, http.MethodPut, "/api/auth/change-password", nil, in, nil)
}

func pageValues(page, limit int) url.Values {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return v
}

func (q DormQuery) values() url.Values {
	v := pageValues(q.Page, q.Limit)
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Year != "" {
		v.Set("year", q.Year)
	}
	if q.MinRating > 0 {
		v.Set("minRating", strconv.FormatFloat(q.MinRating, 'f', -1, 64))
	}
	return v
}

func (q BlogQuery) values() url.Values {
	v := pageValues(q.Page, q.Limit)
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Dorm != "" {
		v.Set("dorm", q.Dorm)
	}
	return v
}

func (c *Client) ListDorms(ctx context.Context, q DormQuery) (*DormPage, error) {
	var out DormPage
	if err := c.do(ctx, http.MethodGet, "/api/dorms", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetDorm(ctx context.Context, id string) (*Dorm, error) {
	var out Dorm
	if err := c.do(ctx, http.MethodGet, "/api/dorms/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDorm posts fields, any JSON-encodable value holding dorm attributes.
func (c *Client) CreateDorm(ctx context.Context, fields interface{}) (*Dorm, error) {
	var out struct {
		Dorm Dorm `json:"dorm"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/dorms", nil, fields, &out); err != nil {
		return nil, err
	}
	return &out.Dorm, nil
}

// UpdateDorm sends a partial document; only the keys it contains change.
func (c *Client) UpdateDorm(ctx context.Context, id string, patch interface{}) (*Dorm, error) {
	var out struct {
		Dorm Dorm `json:"dorm"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/dorms/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out.Dorm, nil
}

func (c *Client) DeleteDorm(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/dorms/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) AddReview(ctx context.Context, dormID string, rating int, comment string) (*ReviewResponse, error) {
	in := map[string]interface{}{"rating": rating}
	if comment != "" {
		in["comment"] = comment
	}
	var out ReviewResponse
	if err := c.do(ctx, http.MethodPost, "/api/dorms/"+url.PathEscape(dormID)+"/reviews", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListBlogs(ctx context.Context, q BlogQuery) (*BlogPage, error) {
	var out BlogPage
	if err := c.do(ctx, http.MethodGet, "/api/blogs", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUserBlogs lists userID's posts including drafts.
func (c *Client) ListUserBlogs(ctx context.Context, userID string, q BlogQuery) (*BlogPage, error) {
	var out BlogPage
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/blogs", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetBlog(ctx context.Context, id string) (*Blog, error) {
	var out Blog
	if err := c.do(ctx, http.MethodGet, "/api/blogs/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBlog(ctx context.Context, in BlogRequest) (*Blog, error) {
	var out struct {
		Blog Blog `json:"blog"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/blogs", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Blog, nil
}

func (c *Client) UpdateBlog(ctx context.Context, id string, in BlogRequest) (*Blog, error) {
	var out struct {
		Blog Blog `json:"blog"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/blogs/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Blog, nil
}

func (c *Client) DeleteBlog(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/blogs/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ToggleLike(ctx context.Context, id string) (*LikeResponse, error) {
	var out LikeResponse
	if err := c.do(ctx, http.MethodPost, "/api/blogs/"+url.PathEscape(id)+"/like", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddComment(ctx context.Context, blogID, content string) (*Comment, error) {
	var out struct {
		Comment Comment `json:"comment"`
	}
	in := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, "/api/blogs/"+url.PathEscape(blogID)+"/comments", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

// Health reports the server status string, "ok" when healthy.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}
