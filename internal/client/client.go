// Package client talks to a jotter server and keeps a local read-cache that
// saves are applied to optimistically.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/noteservice"
	"github.com/starford/jotter/internal/search"
)

// Client is an HTTP client for the /api routes.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	stream  *http.Client
}

// New creates a client for the API mounted at baseURL (e.g.
// http://localhost:8080/api). token, if set, is sent as a bearer credential.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		stream:  &http.Client{},
	}
}

type listResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// Get fetches one note.
func (c *Client) Get(ctx context.Context, id string) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodGet, "/notes/"+url.PathEscape(id), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns every note in store order.
func (c *Client) List(ctx context.Context) ([]models.Note, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/notes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notes, nil
}

// ListByAuthor returns author's notes; empty unless the caller is author.
func (c *Client) ListByAuthor(ctx context.Context, author string) ([]models.Note, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/notes?author="+url.QueryEscape(author), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notes, nil
}

// Search runs the filter pipeline on the server.
func (c *Client) Search(ctx context.Context, q search.Query) ([]models.Note, error) {
	v := url.Values{}
	v.Set("scope", string(q.Scope))
	for _, t := range q.Tags {
		v.Add("tag", t)
	}
	if q.Text != "" {
		v.Set("q", q.Text)
	}
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/search?"+v.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notes, nil
}

// Save creates a note when in.ID is empty, otherwise updates it.
func (c *Client) Save(ctx context.Context, in noteservice.SaveInput) (*models.Note, error) {
	method, path := http.MethodPost, "/notes"
	if in.ID != "" {
		method, path = http.MethodPut, "/notes/"+url.PathEscape(in.ID)
	}
	var n models.Note
	if err := c.do(ctx, method, path, in, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Delete removes a note and returns its last state.
func (c *Client) Delete(ctx context.Context, id string) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodDelete, "/notes/"+url.PathEscape(id), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// AddTag adds tag to a note.
func (c *Client) AddTag(ctx context.Context, id, tag string) (*models.Note, error) {
	var n models.Note
	body := map[string]string{"tag": tag}
	if err := c.do(ctx, http.MethodPost, "/notes/"+url.PathEscape(id)+"/tags", body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// RemoveTag removes tag from a note.
func (c *Client) RemoveTag(ctx context.Context, id, tag string) (*models.Note, error) {
	var n models.Note
	path := "/notes/" + url.PathEscape(id) + "/tags/" + url.PathEscape(tag)
	if err := c.do(ctx, http.MethodDelete, path, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// SetPinned pins or unpins a note.
func (c *Client) SetPinned(ctx context.Context, id string, pinned bool) (*models.Note, error) {
	var n models.Note
	body := map[string]bool{"pinned": pinned}
	if err := c.do(ctx, http.MethodPut, "/notes/"+url.PathEscape(id)+"/pin", body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func statusError(resp *http.Response) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
	if e.Error == "" {
		e.Error = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", apperr.ErrUnauthenticated, e.Error)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, e.Error)
	default:
		return fmt.Errorf("server: %s", e.Error)
	}
}
