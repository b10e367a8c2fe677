package ui

import (
	"context"
	"errors"
	"time"

	"storefront/internal/app"
	"storefront/internal/badge"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/nav"
	"storefront/internal/payment"
	"storefront/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages produced by commands.
type (
	bootstrapMsg  app.Bootstrap
	productsMsg   struct {
		products []types.Product
		err      error
	}
	cartLoadedMsg struct{ cart types.Cart }
	cartMutatedMsg struct {
		productID string
		err       error
	}
	addedMsg struct {
		productID string
		err       error
	}
	checkoutMsg struct {
		snap   checkout.Snapshot
		intent nav.Intent
		err    error
	}
	snapshotMsg struct {
		snap checkout.Snapshot
		err  error
	}
	paymentMsg struct {
		receipt payment.Receipt
		err     error
	}
	badgeMsg       badge.Event
	badgeClosedMsg struct{}
	refreshTickMsg struct{ seq int }

	// navigateMsg asks the router to perform an intent.
	navigateMsg nav.Intent
)

// refreshDelay coalesces bursts of badge events into one cart reload.
const refreshDelay = 150 * time.Millisecond

// alerter is implemented by errors that carry a user-facing message.
type alerter interface {
	Alert() string
}

// alertFor returns the message to show for err, or "" when err needs no alert.
func alertFor(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, cart.ErrBusy) || errors.Is(err, catalog.ErrBusy) || errors.Is(err, payment.ErrBusy) {
		return ""
	}
	var a alerter
	if errors.As(err, &a) {
		return a.Alert()
	}
	return ""
}

func navigate(in nav.Intent) tea.Cmd {
	return func() tea.Msg { return navigateMsg(in) }
}

func bootstrapCmd(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg { return bootstrapMsg(a.Bootstrap(ctx)) }
}

func loadProductsCmd(ctx context.Context, l *catalog.Listing) tea.Cmd {
	return func() tea.Msg {
		p, err := l.Load(ctx)
		return productsMsg{products: p, err: err}
	}
}

func refreshCartCmd(ctx context.Context, c *cart.Controller) tea.Cmd {
	return func() tea.Msg { return cartLoadedMsg{cart: c.Refresh(ctx)} }
}

func addToCartCmd(ctx context.Context, l *catalog.Listing, p types.Product) tea.Cmd {
	return func() tea.Msg {
		_, err := l.AddToCart(ctx, p)
		return addedMsg{productID: p.ID, err: err}
	}
}

func mutateCmd(productID string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return cartMutatedMsg{productID: productID, err: fn()}
	}
}

func checkoutCmd(ctx context.Context, c *cart.Controller) tea.Cmd {
	return func() tea.Msg {
		snap, intent, err := c.Checkout(ctx)
		return checkoutMsg{snap: snap, intent: intent, err: err}
	}
}

func loadSnapshotCmd(p *payment.Controller) tea.Cmd {
	return func() tea.Msg {
		snap, err := p.LoadSnapshot()
		return snapshotMsg{snap: snap, err: err}
	}
}

func submitPaymentCmd(ctx context.Context, p *payment.Controller, snap checkout.Snapshot) tea.Cmd {
	return func() tea.Msg {
		r, err := p.Submit(ctx, snap)
		return paymentMsg{receipt: r, err: err}
	}
}

// waitForBadge blocks on the next badge event.
func waitForBadge(ch <-chan badge.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return badgeClosedMsg{}
		}
		return badgeMsg(ev)
	}
}

func refreshTick(seq int) tea.Cmd {
	return tea.Tick(refreshDelay, func(time.Time) tea.Msg { return refreshTickMsg{seq: seq} })
}
