// Package app is the composition root: it owns the stores, the API client, the
// badge notifier and the controllers, and hands them to the UI and the CLI.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"storefront/internal/api"
	"storefront/internal/badge"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/logging"
	"storefront/internal/payment"
	"storefront/internal/session"
	"storefront/internal/store"
	"storefront/internal/types"

	"golang.org/x/sync/errgroup"
)

// Options configures New.
type Options struct {
	Workspace string
	Config    *config.Config

	// SessionToken pre-seeds the tab store, so scripted commands can share a cart.
	SessionToken string

	// Metrics, when set, records API calls.
	Metrics *api.Metrics

	// Processor overrides the simulated payment processor.
	Processor payment.Processor
}

// App bundles the wired components for one tab.
type App struct {
	Config *config.Config

	Tab     *store.MemoryStore
	Durable *store.LocalStore

	Identity *session.Identity
	Client   *api.Client
	Metrics  *api.Metrics
	Notifier *badge.Notifier
	Handoff  *checkout.Handoff

	Cart    *cart.Controller
	Catalog *catalog.Listing
	Payment *payment.Controller
}

// New wires an App. The caller must Close it.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dbPath := cfg.Storage.Path
	if dbPath != ":memory:" && !filepath.IsAbs(dbPath) && opts.Workspace != "" {
		dbPath = filepath.Join(opts.Workspace, dbPath)
	}
	durable, err := store.NewLocalStore(cfg.Storage.Driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open durable store: %w", err)
	}

	tab := store.NewMemoryStore()
	if opts.SessionToken != "" {
		if err := tab.Set(session.StorageKey, opts.SessionToken); err != nil {
			durable.Close()
			return nil, err
		}
	}

	clientOpts := []api.Option{
		api.WithTimeout(cfg.GetAPITimeout()),
		api.WithUserAgent(cfg.API.UserAgent),
	}
	if opts.Metrics != nil {
		clientOpts = append(clientOpts, api.WithMetrics(opts.Metrics))
	}
	client, err := api.New(cfg.API.BaseURL, clientOpts...)
	if err != nil {
		durable.Close()
		return nil, err
	}

	processor := opts.Processor
	if processor == nil {
		processor = payment.SimulatedProcessor{Delay: cfg.GetProcessingDelay()}
	}

	identity := session.NewIdentity(tab)
	notifier := badge.New()
	handoff := checkout.NewHandoff(durable)

	a := &App{
		Config:   cfg,
		Tab:      tab,
		Durable:  durable,
		Identity: identity,
		Client:   client,
		Metrics:  opts.Metrics,
		Notifier: notifier,
		Handoff:  handoff,
		Cart:     cart.NewController(client, identity, notifier, handoff),
		Catalog:  catalog.NewListing(client, identity, notifier),
		Payment:  payment.NewController(processor, handoff),
	}

	logging.Boot("app wired: api=%s store=%s (%s)", client.BaseURL(), dbPath, cfg.Storage.Driver)
	return a, nil
}

// Close releases the durable store.
func (a *App) Close() error {
	if a.Durable == nil {
		return nil
	}
	return a.Durable.Close()
}

// Session returns the tab's session token, creating it if needed.
func (a *App) Session() (session.Token, error) {
	return a.Identity.GetOrCreate()
}

// Bootstrap is the first screen's data: the catalog and the cart, fetched in
// parallel.
type Bootstrap struct {
	Products   []types.Product
	ProductErr error
	Cart       types.Cart
	Elapsed    time.Duration
}

// Bootstrap loads products and the cart concurrently. A cart failure degrades
// to an empty cart; a product failure is returned in ProductErr for display.
// Neither failure stops the other load; only cancellation of ctx ends both early.
func (a *App) Bootstrap(ctx context.Context) Bootstrap {
	start := time.Now()
	var out Bootstrap

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Products, out.ProductErr = a.Catalog.Load(gctx)
		return ctx.Err()
	})
	g.Go(func() error {
		out.Cart = a.Cart.Refresh(gctx)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		logging.BootError("bootstrap interrupted after %v: %v", time.Since(start), err)
	}

	out.Elapsed = time.Since(start)
	logging.Boot("bootstrap done in %v: %d products, %d cart items", out.Elapsed, len(out.Products), out.Cart.ItemCount())
	return out
}
