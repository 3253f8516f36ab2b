// Package rtdb implements the DocumentStore against a hosted realtime
// database through its REST interface: every path maps to
// {endpoint}/{path}.json.
package rtdb

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
	"strings"
	"sync/atomic"

	"github.com/pantrywisely/pantry/internal/docpath"
	"github.com/pantrywisely/pantry/pkg/types"
)

const (
	// maxBodySize caps how much of a response is read.
	maxBodySize = 8 << 20
	userAgent   = "pantry/1.0"
	// projectHeader carries the configured project id for server-side logs.
	projectHeader = "X-Pantry-Project"
)

var _ types.DocumentStore = (*Client)(nil)

// StatusError is returned when the database answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rtdb %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("rtdb %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Client talks to one database instance.
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	endpoint    *url.URL
	projectID   string
	credentials string
	closed      atomic.Bool
}

// NewClient builds a Client for cfg.Endpoint. A nil httpClient uses
// http.DefaultClient and a nil logger discards output.
func NewClient(cfg types.Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, types.ErrEndpointInvalid
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		endpoint:    u,
		projectID:   cfg.ProjectID,
		credentials: cfg.Credentials,
	}, nil
}

// Get reads the document at path. A JSON null answer means no document.
func (c *Client) Get(ctx context.Context, path string) (types.Record, error) {
	p, err := c.check(path)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}
	var rec types.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", p, err)
	}
	if rec == nil {
		return nil, types.ErrNotFound
	}
	return rec, nil
}

// Update sends fields as a PATCH. The database removes keys set to null.
func (c *Client) Update(ctx context.Context, path string, fields types.Record) error {
	p, err := c.check(path)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	_, err = c.do(ctx, http.MethodPatch, p, payload)
	return err
}

// Remove deletes the node at path with everything below it.
func (c *Client) Remove(ctx context.Context, path string) error {
	p, err := c.check(path)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodDelete, p, nil)
	return err
}

// List reads the node at prefix and returns its object-valued children.
func (c *Client) List(ctx context.Context, prefix string) (map[string]types.Record, error) {
	p, err := c.check(prefix)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}
	var children map[string]json.RawMessage
	if err := json.Unmarshal(body, &children); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", p, err)
	}
	out := make(map[string]types.Record, len(children))
	for key, raw := range children {
		var rec types.Record
		if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
			c.logger.Warn("skipping non-object child", slog.String("path", p+"/"+key))
			continue
		}
		out[key] = rec
	}
	return out, nil
}

// Close marks the client closed. Idle connections of the shared transport
// are left alone.
func (c *Client) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *Client) check(path string) (string, error) {
	if c.closed.Load() {
		return "", types.ErrStoreClosed
	}
	return docpath.Clean(path)
}

func (c *Client) nodeURL(path string) string {
	u := *c.endpoint
	u.Path = u.Path + "/" + path + ".json"
	if c.credentials != "" {
		q := u.Query()
		q.Set("auth", c.credentials)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.nodeURL(path), reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.projectID != "" {
		req.Header.Set(projectHeader, c.projectID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Do reports the full URL, which may carry the auth token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("rtdb %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response for %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("rtdb request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}
	return body, nil
}

// errorMessage extracts the {"error": "..."} field the database uses.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Error
	}
	return ""
}
