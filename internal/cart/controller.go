// Package cart owns the client-side copy of the session cart: loading it,
// mutating it through the storefront API, deriving totals and starting checkout.
package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/api"
	"storefront/internal/badge"
	"storefront/internal/checkout"
	"storefront/internal/logging"
	"storefront/internal/nav"
	"storefront/internal/session"
	"storefront/internal/types"

	"golang.org/x/sync/singleflight"
)

// Backend is the subset of the storefront API the controller needs.
type Backend interface {
	GetCart(ctx context.Context, tok session.Token) (types.Cart, error)
	UpdateQuantity(ctx context.Context, tok session.Token, productID string, qty int) (types.Cart, error)
	RemoveItem(ctx context.Context, tok session.Token, productID string) (types.Cart, error)
	Checkout(ctx context.Context, tok session.Token, items []types.CartItem) (api.CheckoutResult, error)
}

// TokenSource yields the session token for outbound calls.
type TokenSource interface {
	GetOrCreate() (session.Token, error)
}

// Controller is the only writer of the client Cart. Safe for concurrent use.
// Responses are applied in the order they resolve; the last one wins.
type Controller struct {
	backend  Backend
	tokens   TokenSource
	notifier *badge.Notifier
	handoff  *checkout.Handoff
	now      func() time.Time

	loads singleflight.Group

	mu          sync.Mutex
	cart        types.Cart
	inflight    map[string]bool
	checkingOut bool
}

// NewController wires a controller. notifier may be nil.
func NewController(backend Backend, tokens TokenSource, notifier *badge.Notifier, handoff *checkout.Handoff) *Controller {
	return &Controller{
		backend:  backend,
		tokens:   tokens,
		notifier: notifier,
		handoff:  handoff,
		now:      time.Now,
		cart:     types.EmptyCart(),
		inflight: make(map[string]bool),
	}
}

// WithClock replaces the time source used for fallback receipt IDs and snapshot dates.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Load fetches the cart and replaces the client copy. Concurrent calls share
// one request. The shared request is detached from any one caller, so a caller
// that gives up gets ctx.Err() while the others still receive the cart. When the
// item count changes the badge is corrected.
func (c *Controller) Load(ctx context.Context) (types.Cart, error) {
	flight := c.loads.DoChan("cart", func() (interface{}, error) {
		tok, err := c.tokens.GetOrCreate()
		if err != nil {
			return nil, &FetchError{Err: err}
		}
		fetched, err := c.backend.GetCart(context.WithoutCancel(ctx), tok)
		if err != nil {
			return nil, &FetchError{Err: err}
		}
		return fetched, nil
	})

	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return types.Cart{}, &FetchError{Err: ctx.Err()}
	}
	if res.Err != nil {
		return types.Cart{}, res.Err
	}

	fetched := res.Val.(types.Cart)
	c.mu.Lock()
	prev := c.cart.ItemCount()
	c.cart = fetched.Clone()
	c.mu.Unlock()

	if n := fetched.ItemCount(); n != prev {
		c.publish(n)
	}

	logging.CartDebug("loaded cart: %d lines, total %.2f (shared=%v)", len(fetched.Items), fetched.Total, res.Shared)
	return fetched.Clone(), nil
}

// Refresh loads the cart and, on failure, resets to an empty cart without
// surfacing an error.
func (c *Controller) Refresh(ctx context.Context) types.Cart {
	loaded, err := c.Load(ctx)
	if err == nil {
		return loaded
	}

	logging.CartWarn("cart load failed, showing empty cart: %v", err)
	c.mu.Lock()
	c.cart = types.EmptyCart()
	c.mu.Unlock()
	return types.EmptyCart()
}

// SetQuantity sets productID to q. Values below 1 are ignored.
func (c *Controller) SetQuantity(ctx context.Context, productID string, q int) error {
	if q < 1 {
		return nil
	}
	if !c.begin(productID) {
		return ErrBusy
	}
	defer c.end(productID)

	tok, err := c.tokens.GetOrCreate()
	if err != nil {
		return &UpdateError{ProductID: productID, Quantity: q, Err: err}
	}

	updated, err := c.backend.UpdateQuantity(ctx, tok, productID, q)
	logging.AuditWithSession(tok.String()).CartWrite(logging.AuditCartUpdate, productID, q, err)
	if err != nil {
		logging.CartError("update %s to %d failed: %v", productID, q, err)
		return &UpdateError{ProductID: productID, Quantity: q, Err: err}
	}

	c.apply(updated)
	logging.Cart("set %s quantity to %d", productID, q)
	return nil
}

// Increase adds one to item's quantity.
func (c *Controller) Increase(ctx context.Context, item types.CartItem) error {
	return c.SetQuantity(ctx, item.ProductID, item.Quantity+1)
}

// Decrease removes one from item's quantity. It never goes below 1.
func (c *Controller) Decrease(ctx context.Context, item types.CartItem) error {
	if item.Quantity <= 1 {
		return nil
	}
	return c.SetQuantity(ctx, item.ProductID, item.Quantity-1)
}

// Remove deletes productID from the cart.
func (c *Controller) Remove(ctx context.Context, productID string) error {
	if !c.begin(productID) {
		return ErrBusy
	}
	defer c.end(productID)

	tok, err := c.tokens.GetOrCreate()
	if err != nil {
		return &RemoveError{ProductID: productID, Err: err}
	}

	updated, err := c.backend.RemoveItem(ctx, tok, productID)
	logging.AuditWithSession(tok.String()).CartWrite(logging.AuditCartRemove, productID, 0, err)
	if err != nil {
		logging.CartError("remove %s failed: %v", productID, err)
		return &RemoveError{ProductID: productID, Err: err}
	}

	c.apply(updated)
	logging.Cart("removed %s", productID)
	return nil
}

// Checkout submits the current cart, persists the snapshot for the payment view
// and returns the intent to navigate there. The client cart is left as is.
func (c *Controller) Checkout(ctx context.Context) (checkout.Snapshot, nav.Intent, error) {
	c.mu.Lock()
	if c.checkingOut {
		c.mu.Unlock()
		return checkout.Snapshot{}, nav.Intent{}, ErrBusy
	}
	c.checkingOut = true
	current := c.cart.Clone()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.checkingOut = false
		c.mu.Unlock()
	}()

	tok, err := c.tokens.GetOrCreate()
	if err != nil {
		return checkout.Snapshot{}, nav.Intent{}, &CheckoutError{Err: err}
	}

	audit := logging.AuditWithSession(tok.String())
	res, err := c.backend.Checkout(ctx, tok, current.Items)
	if err != nil {
		logging.CartError("checkout failed: %v", err)
		audit.Checkout("", 0, err)
		return checkout.Snapshot{}, nav.Intent{}, &CheckoutError{Err: err}
	}

	receiptID := ""
	if res.Receipt != nil {
		receiptID = res.Receipt.ReceiptID
	}
	snap := checkout.BuildSnapshot(current, receiptID, c.now())

	if err := c.handoff.Persist(snap); err != nil {
		return checkout.Snapshot{}, nav.Intent{}, &CheckoutError{Err: fmt.Errorf("handoff: %w", err)}
	}

	c.publish(0)
	audit.Checkout(snap.ReceiptID, snap.Total, nil)
	logging.Checkout("checkout %s: %d items, total %.2f", snap.ReceiptID, snap.TotalItems, snap.Total)
	return snap, nav.NavigateTo(nav.Payment), nil
}

// IsUpdating reports whether productID has a mutation in flight.
func (c *Controller) IsUpdating(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[productID]
}

// IsCheckingOut reports whether a checkout request is in flight.
func (c *Controller) IsCheckingOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkingOut
}

// Snapshot returns a copy of the current cart.
func (c *Controller) Snapshot() types.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.Clone()
}

// Totals derives subtotal, tax and total from the current cart.
func (c *Controller) Totals() checkout.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return checkout.Derive(c.cart.Total)
}

// ItemCount sums quantities in the current cart.
func (c *Controller) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.ItemCount()
}

func (c *Controller) begin(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[productID] {
		return false
	}
	c.inflight[productID] = true
	return true
}

func (c *Controller) end(productID string) {
	c.mu.Lock()
	delete(c.inflight, productID)
	c.mu.Unlock()
}

func (c *Controller) apply(updated types.Cart) {
	c.mu.Lock()
	c.cart = updated.Clone()
	c.mu.Unlock()
	c.publish(updated.ItemCount())
}

func (c *Controller) publish(count int) {
	if c.notifier != nil {
		c.notifier.PublishCount(count)
	}
}
