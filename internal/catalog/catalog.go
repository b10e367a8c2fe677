// Package catalog loads the product listing and adds products to the session cart.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/badge"
	"storefront/internal/logging"
	"storefront/internal/session"
	"storefront/internal/types"
)

// AddAlert is shown when adding to the cart fails.
const AddAlert = "Failed to add item to cart. Please try again."

// ErrBusy is returned when the product already has an add in flight.
var ErrBusy = errors.New("add to cart already in progress")

// LoadError reports a failed product fetch. Unlike cart reads it is shown to the user.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("failed to fetch products: %v", e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// AddError reports a failed add-to-cart.
type AddError struct {
	ProductID string
	Err       error
}

func (e *AddError) Error() string {
	return fmt.Sprintf("failed to add %s to cart: %v", e.ProductID, e.Err)
}
func (e *AddError) Unwrap() error { return e.Err }
func (e *AddError) Alert() string { return AddAlert }

// Backend is the subset of the storefront API the listing needs.
type Backend interface {
	ListProducts(ctx context.Context) ([]types.Product, error)
	AddToCart(ctx context.Context, tok session.Token, productID string, qty int) (types.Cart, error)
}

// TokenSource yields the session token for cart calls.
type TokenSource interface {
	GetOrCreate() (session.Token, error)
}

// Listing holds the loaded catalog. Safe for concurrent use.
type Listing struct {
	backend  Backend
	tokens   TokenSource
	notifier *badge.Notifier

	mu       sync.Mutex
	products []types.Product
	adding   map[string]bool
}

// NewListing wires a listing. notifier may be nil.
func NewListing(backend Backend, tokens TokenSource, notifier *badge.Notifier) *Listing {
	return &Listing{
		backend:  backend,
		tokens:   tokens,
		notifier: notifier,
		products: []types.Product{},
		adding:   make(map[string]bool),
	}
}

// Load fetches the products and keeps them for Products.
func (l *Listing) Load(ctx context.Context) ([]types.Product, error) {
	products, err := l.backend.ListProducts(ctx)
	if err != nil {
		logging.CatalogError("product fetch failed: %v", err)
		return nil, &LoadError{Err: err}
	}

	l.mu.Lock()
	l.products = append([]types.Product(nil), products...)
	l.mu.Unlock()

	logging.Catalog("loaded %d products", len(products))
	return products, nil
}

// Products returns the last loaded catalog.
func (l *Listing) Products() []types.Product {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]types.Product(nil), l.products...)
}

// AddToCart adds one of product to the session cart and publishes the new count.
func (l *Listing) AddToCart(ctx context.Context, product types.Product) (types.Cart, error) {
	l.mu.Lock()
	if l.adding[product.ID] {
		l.mu.Unlock()
		return types.Cart{}, ErrBusy
	}
	l.adding[product.ID] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.adding, product.ID)
		l.mu.Unlock()
	}()

	tok, err := l.tokens.GetOrCreate()
	if err != nil {
		return types.Cart{}, &AddError{ProductID: product.ID, Err: err}
	}

	cart, err := l.backend.AddToCart(ctx, tok, product.ID, 1)
	logging.AuditWithSession(tok.String()).CartWrite(logging.AuditCartAdd, product.ID, 1, err)
	if err != nil {
		logging.CatalogError("add %s failed: %v", product.ID, err)
		return types.Cart{}, &AddError{ProductID: product.ID, Err: err}
	}

	if l.notifier != nil {
		l.notifier.PublishCount(cart.ItemCount())
	}
	logging.Catalog("added %s to cart (%d items)", product.ID, cart.ItemCount())
	return cart, nil
}

// IsAdding reports whether productID has an add in flight.
func (l *Listing) IsAdding(productID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.adding[productID]
}
