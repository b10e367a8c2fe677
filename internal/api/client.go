// Package api is the HTTP client for the external storefront API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/logging"
	"storefront/internal/session"
	"storefront/internal/types"

	"golang.org/x/net/publicsuffix"
)

// SessionHeader carries the session token on cart and checkout calls.
const SessionHeader = "session-id"

// maxBody caps how much of a response body is read.
const maxBody = 2 << 20

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d %s", e.Method, e.Path, e.Code, e.Status)
}

// CheckoutReceipt is the optional receipt in a checkout response.
type CheckoutReceipt struct {
	ReceiptID string `json:"receiptId"`
}

// CheckoutResult is the body of POST /checkout.
type CheckoutResult struct {
	Receipt *CheckoutReceipt `json:"receipt,omitempty"`
}

type cartEnvelope struct {
	Cart types.Cart `json:"cart"`
}

// Client talks to the storefront API. Safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	timeout   time.Duration
	metrics   *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request, whatever HTTP client is in use. Zero means
// none. The HTTP client itself is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client rooted at baseURL (e.g. http://localhost:3000/api).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %q", baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Jar: jar},
		userAgent: "storefront-tui/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListProducts fetches the catalog.
func (c *Client) ListProducts(ctx context.Context) ([]types.Product, error) {
	var products []types.Product
	if err := c.do(ctx, http.MethodGet, "/products", "/products", "", nil, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []types.Product{}
	}
	return products, nil
}

// GetCart fetches the session's cart.
func (c *Client) GetCart(ctx context.Context, tok session.Token) (types.Cart, error) {
	var cart types.Cart
	if err := c.do(ctx, http.MethodGet, "/cart", "/cart", tok, nil, &cart); err != nil {
		return types.Cart{}, err
	}
	return cart.Normalize(), nil
}

// AddToCart adds qty of productID and returns the updated cart.
func (c *Client) AddToCart(ctx context.Context, tok session.Token, productID string, qty int) (types.Cart, error) {
	body := map[string]interface{}{"productId": productID, "qty": qty}
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPost, "/cart", "/cart", tok, body, &env); err != nil {
		return types.Cart{}, err
	}
	return env.Cart.Normalize(), nil
}

// UpdateQuantity sets the quantity of productID and returns the updated cart.
func (c *Client) UpdateQuantity(ctx context.Context, tok session.Token, productID string, qty int) (types.Cart, error) {
	body := map[string]interface{}{"qty": qty}
	var env cartEnvelope
	if err := c.do(ctx, http.MethodPut, "/cart/"+url.PathEscape(productID), "/cart/:productId", tok, body, &env); err != nil {
		return types.Cart{}, err
	}
	return env.Cart.Normalize(), nil
}

// RemoveItem deletes productID from the cart and returns the updated cart.
func (c *Client) RemoveItem(ctx context.Context, tok session.Token, productID string) (types.Cart, error) {
	var env cartEnvelope
	if err := c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(productID), "/cart/:productId", tok, nil, &env); err != nil {
		return types.Cart{}, err
	}
	return env.Cart.Normalize(), nil
}

// Checkout submits the cart items.
func (c *Client) Checkout(ctx context.Context, tok session.Token, items []types.CartItem) (CheckoutResult, error) {
	if items == nil {
		items = []types.CartItem{}
	}
	body := map[string]interface{}{"cartItems": items}
	var res CheckoutResult
	if err := c.do(ctx, http.MethodPost, "/checkout", "/checkout", tok, body, &res); err != nil {
		return CheckoutResult{}, err
	}
	return res, nil
}

// do issues one request. route is the templated path used as the metrics label.
func (c *Client) do(ctx context.Context, method, path, route string, tok session.Token, in, out interface{}) error {
	timer := logging.StartTimer(logging.CategoryAPI, method+" "+route)
	start := time.Now()
	code := 0
	defer func() {
		timer.StopWithThreshold(2 * time.Second)
		c.metrics.observe(method, route, code, time.Since(start))
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if tok != "" {
		req.Header.Set(SessionHeader, tok.String())
	}

	logging.APIDebug("%s %s", method, path)

	resp, err := c.http.Do(req)
	if err != nil {
		logging.APIError("%s %s failed: %v", method, path, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	code = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.APIError("%s %s: HTTP %d", method, path, resp.StatusCode)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func codeLabel(code int) string {
	if code == 0 {
		return "error"
	}
	return strconv.Itoa(code)
}
