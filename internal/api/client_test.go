package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New("localhost:3000")
	assert.Error(t, err)

	_, err = New("://nope")
	assert.Error(t, err)
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New("http://localhost:3000/api/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/api", c.BaseURL())
}

func TestListProducts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Empty(t, r.Header.Get(SessionHeader), "products must not carry the session header")
		_, _ = io.WriteString(w, `[{"_id":"p1","title":"Shirt","image":"s.png","price":499,"originalPrice":999}]`)
	})

	products, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
	assert.True(t, products[0].Discounted())
}

func TestGetCart_SendsSessionHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "session-1-abc", r.Header.Get(SessionHeader))
		_, _ = io.WriteString(w, `{"items":null,"total":0}`)
	})

	cart, err := c.GetCart(context.Background(), "session-1-abc")
	require.NoError(t, err)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
}

func TestUpdateQuantity_BodyAndEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/cart/p1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]int{"qty": 4}, body)

		_, _ = io.WriteString(w, `{"cart":{"items":[{"productId":"p1","name":"Shirt","price":10,"quantity":4}],"total":40}}`)
	})

	cart, err := c.UpdateQuantity(context.Background(), "tok", "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 40.0, cart.Total)
	assert.Equal(t, 4, cart.ItemCount())
}

func TestAddToCart_Body(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			ProductID string `json:"productId"`
			Qty       int    `json:"qty"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p9", body.ProductID)
		assert.Equal(t, 1, body.Qty)
		_, _ = io.WriteString(w, `{"cart":{"items":[{"productId":"p9","quantity":1,"price":5}],"total":5}}`)
	})

	cart, err := c.AddToCart(context.Background(), "tok", "p9", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount())
}

func TestRemoveItem(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/cart/p1", r.URL.Path)
		_, _ = io.WriteString(w, `{"cart":{"items":[],"total":0}}`)
	})

	cart, err := c.RemoveItem(context.Background(), "tok", "p1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckout_ReceiptOptional(t *testing.T) {
	var withReceipt atomic.Bool
	withReceipt.Store(true)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			CartItems []types.CartItem `json:"cartItems"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotNil(t, body.CartItems)
		if withReceipt.Load() {
			_, _ = io.WriteString(w, `{"receipt":{"receiptId":"R-42"}}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	})

	res, err := c.Checkout(context.Background(), "tok", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Receipt)
	assert.Equal(t, "R-42", res.Receipt.ReceiptID)

	withReceipt.Store(false)
	res, err = c.Checkout(context.Background(), "tok", nil)
	require.NoError(t, err)
	assert.Nil(t, res.Receipt)
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.GetCart(context.Background(), "tok")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 500, se.Code)
	assert.Equal(t, http.MethodGet, se.Method)
	assert.Equal(t, "/cart", se.Path)
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	})

	_, err := c.ListProducts(context.Background())
	assert.ErrorContains(t, err, "failed to decode")
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := c.GetCart(context.Background(), "tok")
	assert.Error(t, err)
}

func TestTimeout_IndependentOfOptionOrder(t *testing.T) {
	blocking := func(w http.ResponseWriter, r *http.Request) { <-r.Context().Done() }

	for name, order := range map[string]func(hc *http.Client) []Option{
		"timeout first": func(hc *http.Client) []Option {
			return []Option{WithTimeout(50 * time.Millisecond), WithHTTPClient(hc)}
		},
		"client first": func(hc *http.Client) []Option {
			return []Option{WithHTTPClient(hc), WithTimeout(50 * time.Millisecond)}
		},
	} {
		t.Run(name, func(t *testing.T) {
			shared := &http.Client{}
			c := newTestClient(t, blocking, order(shared)...)

			start := time.Now()
			_, err := c.GetCart(context.Background(), "tok")
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Less(t, time.Since(start), 5*time.Second)
			assert.Zero(t, shared.Timeout, "caller's client must not be modified")
		})
	}
}

func TestContextCancel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListProducts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetrics_CountsByRouteAndCode(t *testing.T) {
	m := NewMetrics()
	var fail atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "nope", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"cart":{"items":[],"total":0}}`)
	}, WithMetrics(m))

	_, err := c.UpdateQuantity(context.Background(), "tok", "a", 2)
	require.NoError(t, err)
	_, err = c.UpdateQuantity(context.Background(), "tok", "b", 2)
	require.NoError(t, err)
	fail.Store(true)
	_, err = c.UpdateQuantity(context.Background(), "tok", "a", 3)
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("PUT", "/cart/:productId", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("PUT", "/cart/:productId", "503")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.Len(t, families, 2)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.observe("GET", "/cart", 200, time.Millisecond) })
}
