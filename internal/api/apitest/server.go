// Package apitest provides an in-memory fake of the storefront API for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"storefront/internal/types"
)

// Server is a fake storefront API. Carts are kept per session-id header.
type Server struct {
	srv *httptest.Server

	mu        sync.Mutex
	products  []types.Product
	carts     map[string]*types.Cart
	failures  map[string]int
	holds     map[string]chan struct{}
	calls     map[string]int
	receiptID string
	checkouts [][]types.CartItem
}

// NewServer starts a fake with the given catalog and registers cleanup on t.
func NewServer(t testing.TB, products ...types.Product) *Server {
	t.Helper()

	s := &Server{
		products: products,
		carts:    make(map[string]*types.Cart),
		failures: make(map[string]int),
		holds:    make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", s.wrap("GET /products", false, s.handleProducts))
	mux.HandleFunc("GET /api/cart", s.wrap("GET /cart", true, s.handleGetCart))
	mux.HandleFunc("POST /api/cart", s.wrap("POST /cart", true, s.handleAdd))
	mux.HandleFunc("PUT /api/cart/{id}", s.wrap("PUT /cart/:productId", true, s.handleUpdate))
	mux.HandleFunc("DELETE /api/cart/{id}", s.wrap("DELETE /cart/:productId", true, s.handleRemove))
	mux.HandleFunc("POST /api/checkout", s.wrap("POST /checkout", true, s.handleCheckout))

	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// URL returns the API base (…/api).
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Close releases any held requests and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	for k, ch := range s.holds {
		close(ch)
		delete(s.holds, k)
	}
	s.mu.Unlock()
	s.srv.Close()
}

// Fail makes route (e.g. "PUT /cart/:productId") answer with code until Recover.
func (s *Server) Fail(route string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = code
}

// Recover clears a failure set with Fail.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Hold blocks requests to route until the returned release func is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if cur, ok := s.holds[route]; ok && cur == ch {
				delete(s.holds, route)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
}

// SetReceiptID makes checkout return {receipt:{receiptId:id}}. Empty omits the receipt.
func (s *Server) SetReceiptID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiptID = id
}

// Seed puts an item directly into a session's cart.
func (s *Server) Seed(sessionID string, item types.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cartLocked(sessionID)
	c.Items = append(c.Items, item)
	recompute(c)
}

// Cart returns a copy of a session's cart.
func (s *Server) Cart(sessionID string) types.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLocked(sessionID).Clone()
}

// Calls reports how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Checkouts returns the cartItems bodies received by POST /checkout.
func (s *Server) Checkouts() [][]types.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]types.CartItem, len(s.checkouts))
	copy(out, s.checkouts)
	return out
}

func (s *Server) cartLocked(sessionID string) *types.Cart {
	c, ok := s.carts[sessionID]
	if !ok {
		c = &types.Cart{Items: []types.CartItem{}}
		s.carts[sessionID] = c
	}
	return c
}

func recompute(c *types.Cart) {
	total := 0.0
	for _, it := range c.Items {
		total += it.LineTotal()
	}
	c.Total = total
}

type handler func(w http.ResponseWriter, r *http.Request, sessionID string)

func (s *Server) wrap(route string, needSession bool, h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		hold := s.holds[route]
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		s.mu.Lock()
		code, failing := s.failures[route]
		s.mu.Unlock()
		if failing {
			http.Error(w, http.StatusText(code), code)
			return
		}

		sid := r.Header.Get("session-id")
		if needSession && sid == "" {
			http.Error(w, "missing session-id", http.StatusBadRequest)
			return
		}
		h(w, r, sid)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleProducts(w http.ResponseWriter, _ *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.products)
}

func (s *Server) handleGetCart(w http.ResponseWriter, _ *http.Request, sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.cartLocked(sid))
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request, sid string) {
	var body struct {
		ProductID string `json:"productId"`
		Qty       int    `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Qty < 1 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var product *types.Product
	for i := range s.products {
		if s.products[i].ID == body.ProductID {
			product = &s.products[i]
			break
		}
	}
	if product == nil {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}

	c := s.cartLocked(sid)
	found := false
	for i := range c.Items {
		if c.Items[i].ProductID == body.ProductID {
			c.Items[i].Quantity += body.Qty
			found = true
		}
	}
	if !found {
		c.Items = append(c.Items, types.CartItem{
			ProductID: product.ID,
			Name:      product.Title,
			Image:     product.Image,
			Price:     product.Price,
			Quantity:  body.Qty,
		})
	}
	recompute(c)
	writeJSON(w, map[string]interface{}{"cart": c})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, sid string) {
	var body struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Qty < 1 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartLocked(sid)
	id := r.PathValue("id")
	for i := range c.Items {
		if c.Items[i].ProductID == id {
			c.Items[i].Quantity = body.Qty
			recompute(c)
			writeJSON(w, map[string]interface{}{"cart": c})
			return
		}
	}
	http.Error(w, "item not in cart", http.StatusNotFound)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request, sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartLocked(sid)
	id := r.PathValue("id")
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != id {
			kept = append(kept, it)
		}
	}
	c.Items = kept
	recompute(c)
	writeJSON(w, map[string]interface{}{"cart": c})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request, sid string) {
	var body struct {
		CartItems []types.CartItem `json:"cartItems"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkouts = append(s.checkouts, body.CartItems)
	if s.receiptID == "" {
		writeJSON(w, map[string]interface{}{})
		return
	}
	writeJSON(w, map[string]interface{}{"receipt": map[string]string{"receiptId": s.receiptID}})
}
