// Package rest talks to the category API over HTTP and caches list reads.
package rest

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
	"sync"
	"time"

	"finspect/internal/actor"
	"finspect/internal/apierr"
	"finspect/internal/cache"
	"finspect/internal/categories"
	"finspect/internal/core"
	"finspect/internal/metrics"
	"finspect/internal/middleware/trace"

	"github.com/google/uuid"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultCacheTTL  = 5 * time.Minute
	DefaultCacheSize = 64
	maxBodyBytes     = 4 << 20
)

// Cache keys, one per query shape.
const (
	keyAll      = "all"
	keyTopLevel = "top-level"
)

func keyChildren(id core.ID) string { return "children:" + id.String() }

func keySearch(q string, parentOnly bool) string {
	return "search:" + strconv.FormatBool(parentOnly) + ":" + q
}

// Options configures a Client.
type Options struct {
	BaseURL         string
	PathPrefix      string // public read routes, e.g. /v1/public
	AdminPathPrefix string // mutating routes, e.g. /v1/admin
	Timeout         time.Duration
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// Client implements categories.Repository against the REST API.
type Client struct {
	http        *http.Client
	base        *url.URL
	readPrefix  string
	adminPrefix string
	cache       cache.Cache[[]core.Category]
	logger      *slog.Logger

	// gen increments on every invalidation; a list read only fills the
	// cache when no invalidation happened while it was in flight.
	mu  sync.Mutex
	gen uint64
}

var _ categories.Repository = (*Client)(nil)

// New builds a client. The cache is owned by the caller and is cleared
// after every successful mutation.
func New(opts Options, c cache.Cache[[]core.Category]) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("missing category API base URL")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if c == nil {
		return nil, errors.New("missing category cache")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:        hc,
		base:        base,
		readPrefix:  strings.TrimRight(opts.PathPrefix, "/"),
		adminPrefix: strings.TrimRight(opts.AdminPathPrefix, "/"),
		cache:       c,
		logger:      logger,
	}, nil
}

// Invalidate drops every cached read.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.gen++
	n := c.cache.Clear()
	c.mu.Unlock()
	metrics.CacheInvalidations.Inc()
	c.logger.Debug("Category cache cleared", "component", "rest", "entries", n)
}

func (c *Client) FetchAll(ctx context.Context) ([]core.Category, error) {
	return c.cachedList(ctx, "fetch_all", keyAll, c.readPrefix+"/categories", nil)
}

func (c *Client) TopLevel(ctx context.Context) ([]core.Category, error) {
	return c.cachedList(ctx, "top_level", keyTopLevel, c.readPrefix+"/categories/top-level", nil)
}

func (c *Client) Subcategories(ctx context.Context, parentID core.ID) ([]core.Category, error) {
	return c.cachedList(ctx, "subcategories", keyChildren(parentID),
		c.readPrefix+"/categories/"+parentID.String()+"/subcategories", nil)
}

func (c *Client) Search(ctx context.Context, query string, parentOnly bool) ([]core.Category, error) {
	query = strings.TrimSpace(query)
	q := url.Values{}
	q.Set("query", query)
	q.Set("parentOnly", strconv.FormatBool(parentOnly))
	return c.cachedList(ctx, "search", keySearch(query, parentOnly), c.readPrefix+"/categories/search", q)
}

func (c *Client) FetchByID(ctx context.Context, id core.ID) (core.Category, error) {
	body, err := c.do(ctx, "fetch_by_id", http.MethodGet, c.readPrefix+"/categories/"+id.String(), nil, nil, false)
	if err != nil {
		return core.Category{}, err
	}
	cat, err := decodeOne(body)
	if err != nil {
		return core.Category{}, apierr.Wrap(apierr.Unknown, "malformed category response", err)
	}
	return cat, nil
}

func (c *Client) Create(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	if err := in.Validate(); err != nil {
		return core.Category{}, apierr.As(err)
	}
	return c.mutateOne(ctx, "create", http.MethodPost, c.adminPrefix+"/categories", toWireInput(in))
}

func (c *Client) Update(ctx context.Context, id core.ID, in core.CategoryInput) (core.Category, error) {
	if err := in.Validate(); err != nil {
		return core.Category{}, apierr.As(err)
	}
	if in.ParentID != nil && *in.ParentID == id {
		return core.Category{}, apierr.Validationf("%s", core.ErrSelfParent)
	}
	return c.mutateOne(ctx, "update", http.MethodPut, c.adminPrefix+"/categories/"+id.String(), toWireInput(in))
}

func (c *Client) Delete(ctx context.Context, id core.ID) error {
	if _, err := c.do(ctx, "delete", http.MethodDelete, c.adminPrefix+"/categories/"+id.String(), nil, nil, true); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

func (c *Client) Activate(ctx context.Context, id core.ID) (core.Category, error) {
	return c.mutateOne(ctx, "activate", http.MethodPut, c.adminPrefix+"/categories/"+id.String()+"/activate", nil)
}

func (c *Client) mutateOne(ctx context.Context, op, method, path string, payload any) (core.Category, error) {
	body, err := c.do(ctx, op, method, path, nil, payload, true)
	if err != nil {
		return core.Category{}, err
	}
	// the write happened; stale reads must go even if the body is odd
	c.Invalidate()
	if len(bytes.TrimSpace(body)) == 0 {
		return core.Category{}, nil
	}
	cat, err := decodeOne(body)
	if err != nil {
		return core.Category{}, apierr.Wrap(apierr.Unknown, "malformed category response", err)
	}
	return cat, nil
}

func (c *Client) cachedList(ctx context.Context, op, key, path string, q url.Values) ([]core.Category, error) {
	if cached, ok := c.cache.Get(key); ok {
		metrics.ObserveCache(true)
		return clone(cached), nil
	}
	metrics.ObserveCache(false)

	since := c.generation()
	body, err := c.do(ctx, op, http.MethodGet, path, q, nil, false)
	if err != nil {
		return nil, err
	}
	list, err := decodeList(body)
	if err != nil {
		return nil, apierr.Wrap(apierr.Unknown, "malformed category list response", err)
	}
	if !c.store(key, list, since) {
		c.logger.DebugContext(ctx, "Discarding list read that raced a write",
			"component", "rest", "operation", op)
	}
	return clone(list), nil
}

func (c *Client) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// store caches list unless the cache was invalidated after since.
func (c *Client) store(key string, list []core.Category, since uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != since {
		return false
	}
	c.cache.Set(key, list)
	return true
}

// do performs one request and returns the body of a 2xx response. Every
// failure is returned as *apierr.Error.
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, payload any, needsActor bool) ([]byte, error) {
	started := time.Now()
	body, err := c.roundTrip(ctx, method, path, q, payload, needsActor)
	result := "ok"
	if err != nil {
		result = apierr.KindOf(err).String()
		c.logger.WarnContext(ctx, "Category API call failed",
			"component", "rest", "operation", op, "method", method, "path", path,
			"kind", result, "error", err, "duration_ms", time.Since(started).Milliseconds())
	} else {
		c.logger.DebugContext(ctx, "Category API call",
			"component", "rest", "operation", op, "method", method, "path", path,
			"duration_ms", time.Since(started).Milliseconds())
	}
	metrics.ObserveAPI(op, result, started)
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, q url.Values, payload any, needsActor bool) ([]byte, error) {
	who, hasActor := actor.FromContext(ctx)
	if needsActor && !hasActor {
		return nil, apierr.New(apierr.Authentication, "Authentication required. Please log in and try again.")
	}

	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, apierr.Wrap(apierr.Unknown, "encode request", err)
		}
		reader = bytes.NewReader(buf)
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, apierr.Wrap(apierr.Unknown, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := trace.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(trace.HeaderRequestID, requestID)
	if hasActor {
		who.Apply(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apierr.FromTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apierr.FromTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierr.FromResponse(resp.StatusCode, body)
	}
	return body, nil
}

func clone(list []core.Category) []core.Category {
	out := make([]core.Category, len(list))
	copy(out, list)
	return out
}
