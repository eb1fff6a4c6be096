// Package client implements types.Store against a catalog HTTP server.
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
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/httpapi"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

const defaultTimeout = 30 * time.Second

// codeErrors maps server error codes back to store sentinels.
var codeErrors = map[string]error{
	httpapi.CodeNotFound:           types.ErrNotFound,
	httpapi.CodeEntityTypeNotFound: types.ErrEntityTypeNotFound,
	httpapi.CodeInvalidName:        types.ErrInvalidName,
	httpapi.CodeInvalidSlug:        types.ErrInvalidSlug,
	httpapi.CodeDuplicateSlug:      types.ErrDuplicateSlug,
	httpapi.CodeUnknownAttribute:   types.ErrUnknownAttribute,
	httpapi.CodeInvalidValue:       types.ErrInvalidValue,
	httpapi.CodeInvalidRelation:    types.ErrInvalidRelation,
	httpapi.CodeUnavailable:        types.ErrDetached,
}

// APIError is a non-2xx response. It unwraps to the matching store sentinel
// when the server sent a known code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return codeErrors[e.Code]
}

// Client talks to a catalog server.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the server at baseURL, for example
// "http://localhost:8420".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ types.Store = (*Client)(nil)

func (c *Client) ListEntityTypes(ctx context.Context) ([]types.EntityType, error) {
	var out []types.EntityType
	err := c.do(ctx, http.MethodGet, "/entity-types", nil, nil, &out)
	return out, err
}

func (c *Client) GetEntityType(ctx context.Context, id string) (types.EntityTypeDetail, error) {
	var out types.EntityTypeDetail
	err := c.do(ctx, http.MethodGet, "/entity-types/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) ListEntities(ctx context.Context, entityTypeID string) ([]types.Entity, error) {
	var q url.Values
	if entityTypeID != "" {
		q = url.Values{"entity_type_id": {entityTypeID}}
	}
	var out []types.Entity
	if err := c.do(ctx, http.MethodGet, "/entities", q, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if len(out[i].Values) == 0 {
			out[i].Values = nil
		}
	}
	return out, nil
}

func (c *Client) GetEntity(ctx context.Context, id string) (types.Entity, error) {
	var out types.Entity
	err := c.do(ctx, http.MethodGet, "/entities/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// GetEntityDepth fetches the entity with relations hydrated depth levels deep.
func (c *Client) GetEntityDepth(ctx context.Context, id string, depth int) (types.Entity, error) {
	var out types.Entity
	q := url.Values{"depth": {strconv.Itoa(depth)}}
	err := c.do(ctx, http.MethodGet, "/entities/"+url.PathEscape(id), q, nil, &out)
	return out, err
}

func (c *Client) GetEntityBySlug(ctx context.Context, typeName, slug string) (types.Entity, error) {
	var out types.Entity
	path := "/entities/by-slug/" + url.PathEscape(typeName) + "/" + url.PathEscape(slug)
	err := c.do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

func (c *Client) CreateEntity(ctx context.Context, req types.NewEntity) (types.Entity, error) {
	var out types.Entity
	err := c.do(ctx, http.MethodPost, "/entities", nil, req, &out)
	return out, err
}

func (c *Client) UpdateEntityValues(ctx context.Context, id string, values types.Values) (types.Entity, error) {
	var out types.Entity
	body := httpapi.UpdateValuesRequest{Values: values}
	err := c.do(ctx, http.MethodPatch, "/entities/"+url.PathEscape(id)+"/values", nil, body, &out)
	return out, err
}

func (c *Client) DeleteEntity(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/entities/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawPath = ""
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do sends a request and decodes a 2xx JSON body into out. Non-2xx responses
// become *APIError.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), rd)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("catalog request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var er httpapi.ErrorResponse
	if json.Unmarshal(data, &er) == nil && er.Code != "" {
		apiErr.Code = er.Code
		apiErr.Message = er.Error
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}

// IsNotFound reports whether err is an entity or entity type lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrEntityTypeNotFound)
}
