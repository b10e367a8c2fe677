package cart

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"storefront/internal/api"
	"storefront/internal/api/apitest"
	"storefront/internal/badge"
	"storefront/internal/checkout"
	"storefront/internal/nav"
	"storefront/internal/session"
	"storefront/internal/store"
	"storefront/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv      *apitest.Server
	ctrl     *Controller
	tok      session.Token
	handoff  *checkout.Handoff
	durable  *store.MemoryStore
	notifier *badge.Notifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := apitest.NewServer(t,
		types.Product{ID: "p1", Title: "Shirt", Price: 25},
		types.Product{ID: "p2", Title: "Cap", Price: 50},
	)
	client, err := api.New(srv.URL())
	require.NoError(t, err)

	ident := session.NewIdentity(store.NewMemoryStore())
	tok, err := ident.GetOrCreate()
	require.NoError(t, err)

	durable := store.NewMemoryStore()
	handoff := checkout.NewHandoff(durable)
	notifier := badge.New()

	return &fixture{
		srv:      srv,
		ctrl:     NewController(client, ident, notifier, handoff),
		tok:      tok,
		handoff:  handoff,
		durable:  durable,
		notifier: notifier,
	}
}

func (f *fixture) seed(items ...types.CartItem) {
	for _, it := range items {
		f.srv.Seed(f.tok.String(), it)
	}
}

func TestLoad(t *testing.T) {
	f := newFixture(t)
	f.seed(types.CartItem{ProductID: "p1", Name: "Shirt", Price: 25, Quantity: 2})

	got, err := f.ctrl.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Total)
	assert.Equal(t, 2, f.ctrl.ItemCount())
	assert.Equal(t, checkout.Totals{Subtotal: 50, Tax: 5, Total: 55}, f.ctrl.Totals())
}

func TestLoad_FailureIsFetchError(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail("GET /cart", http.StatusInternalServerError)

	_, err := f.ctrl.Load(context.Background())
	var fe *FetchError
	require.True(t, errors.As(err, &fe))

	var se *api.StatusError
	assert.True(t, errors.As(err, &se))
}

func TestRefresh_ResetsOnFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(types.CartItem{ProductID: "p1", Price: 25, Quantity: 1})
	_, err := f.ctrl.Load(context.Background())
	require.NoError(t, err)

	f.srv.Fail("GET /cart", http.StatusBadGateway)
	got := f.ctrl.Refresh(context.Background())

	assert.Equal(t, types.EmptyCart(), got)
	assert.Equal(t, types.EmptyCart(), f.ctrl.Snapshot())
}

func TestSetQuantity_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.seed(types.CartItem{ProductID: "p1", Price: 25, Quantity: 1})

	ch, cancel := f.notifier.Listen(4)
	defer cancel()

	require.NoError(t, f.ctrl.SetQuantity(context.Background(), "p1", 4))

	loaded, err := f.ctrl.Load(context.Background())
	require.NoError(t, err)
	item, ok := loaded.Find("p1")
	require.True(t, ok)
	assert.Equal(t, 4, item.Quantity)
	assert.Equal(t, badge.Event{Count: 4}, <-ch)
}

func TestSetQuantity_BelowOneIgnored(t *testing.T) {
	f := newFixture(t)
	f.seed(types.CartItem{ProductID: "p1", Price: 25, Quantity: 2})

	require.NoError(t, f.ctrl.SetQuantity(context.Background(), "p1", 0))
	assert.Equal(t, 0, f.srv.Calls("PUT /cart/:productId"))
}

func TestIncreaseDecrease(t *testing.T) {
	f := newFixture(t)
	f.seed(types.CartItem{ProductID: "p1", Price: 25, Quantity: 1})
	ctx := context.Background()

	cart, err := f.ctrl.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Decrease(ctx, cart.Items[0]))
	assert.Equal(t, 0, f.srv.Calls("PUT /cart/:productId"), "decrease at quantity 1 must not hit the API")

	require.NoError(t, f.ctrl.Increase(ctx, cart.Items[0]))
	item, _ := f.ctrl.Snapshot().Find("p1")
	assert.Equal(t, 2, item.Quantity)

	require.NoError(t, f.ctrl.Decrease(ctx, item))
	item, _ = f.ctrl.Snapshot().Find("p1")
	assert.Equal(t, 1, item.Quantity)
}

func TestSetQuantity_FailureLeavesCart(t *testing.T) {
	f := newFixture(t)
	f.seed(types.CartItem{ProductID: "p1", Price: 25, Quantity: 2})
	before, err := f.ctrl.Load(context.Background())
	require.NoError(t, err)

	published := 0
	unsub := f.notifier.Subscribe(func(badge.Event) { published++ })
	defer unsub()

	f.srv.Fail("PUT /cart/:productId", http.StatusInternalServerError)
	err = f.ctrl.SetQuantity(context.Background(), "p1", 5)

	var ue *UpdateError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, UpdateAlert, ue.Alert())
	assert.Equal(t, before, f.ctrl.Snapshot())
	assert.Equal(t, 0, published)
	assert.False(t, f.ctrl.IsUpdating("p1"))
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	f.seed(
		types.CartItem{ProductID: "p1", Price: 25, Quantity: 1},
		types.CartItem{ProductID: "p2", Price: 50, Quantity: 2},
	)

	ch, cancel := f.notifier.Listen(1)
	defer cancel()

	require.NoError(t, f.ctrl.Remove(context.Background(), "p1"))
	_, found := f.ctrl.Snapshot().Find("p1")
	assert.False(t, found)
	assert.Equal(t, 100.0, f.ctrl.Snapshot().Total)
	assert.Equal(t, 2, (<-ch).Count)
}

func TestRemove_FailureLeavesCart(t *testing.T) {
	f := newFixture(t)
	f.seed(types.CartItem{ProductID: "p1", Price: 25, Quantity: 1})
	before, err := f.ctrl.Load(context.Background())
	require.NoError(t, err)

	f.srv.Fail("DELETE /cart/:productId", http.StatusInternalServerError)
	err = f.ctrl.Remove(context.Background(), "p1")

	var re *RemoveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, RemoveAlert, re.Alert())
	assert.Equal(t, before, f.ctrl.Snapshot())
}

func TestInflightMarkerBlocksDuplicate(t *testing.T) {
	f := newFixture(t)
	f.seed(
		types.CartItem{ProductID: "p1", Price: 25, Quantity: 1},
		types.CartItem{ProductID: "p2", Price: 50, Quantity: 1},
	)
	release := f.srv.Hold("PUT /cart/:productId")

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = f.ctrl.SetQuantity(context.Background(), "p1", 3)
	}()

	require.Eventually(t, func() bool { return f.ctrl.IsUpdating("p1") }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, f.ctrl.SetQuantity(context.Background(), "p1", 4), ErrBusy)
	assert.ErrorIs(t, f.ctrl.Remove(context.Background(), "p1"), ErrBusy)
	assert.False(t, f.ctrl.IsUpdating("p2"))

	release()
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, f.ctrl.IsUpdating("p1"))
	assert.Equal(t, 1, f.srv.Calls("PUT /cart/:productId"))
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	f.seed(
		types.CartItem{ProductID: "p1", Name: "Shirt", Price: 25, Quantity: 2},
		types.CartItem{ProductID: "p2", Name: "Cap", Price: 50, Quantity: 1},
	)
	f.srv.SetReceiptID("R-100")
	_, err := f.ctrl.Load(context.Background())
	require.NoError(t, err)

	ch, cancel := f.notifier.Listen(1)
	defer cancel()

	snap, intent, err := f.ctrl.Checkout(context.Background())
	require.NoError(t, err)

	assert.Equal(t, nav.NavigateTo(nav.Payment), intent)
	assert.Equal(t, "R-100", snap.ReceiptID)
	assert.Equal(t, 3, snap.TotalItems)
	assert.Equal(t, checkout.Totals{Subtotal: 100, Tax: 10, Total: 110}, checkout.Totals{Subtotal: snap.Subtotal, Tax: snap.Tax, Total: snap.Total})
	assert.Equal(t, 0, (<-ch).Count)

	stored, err := f.handoff.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, snap.ReceiptID, stored.ReceiptID)

	sent := f.srv.Checkouts()
	require.Len(t, sent, 1)
	assert.Len(t, sent[0], 2)

	// the controller keeps its cart; the view navigates away
	assert.Equal(t, 3, f.ctrl.ItemCount())
}

func TestCheckout_FallbackReceiptID(t *testing.T) {
	f := newFixture(t)
	f.ctrl.WithClock(func() time.Time { return time.UnixMilli(1234) })

	snap, _, err := f.ctrl.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "R-1234", snap.ReceiptID)
}

func TestCheckout_FailureLeavesCartAndSnapshot(t *testing.T) {
	f := newFixture(t)
	f.seed(types.CartItem{ProductID: "p1", Price: 25, Quantity: 1})
	before, err := f.ctrl.Load(context.Background())
	require.NoError(t, err)

	f.srv.Fail("POST /checkout", http.StatusInternalServerError)
	_, intent, err := f.ctrl.Checkout(context.Background())

	var ce *CheckoutError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, CheckoutAlert, ce.Alert())
	assert.True(t, intent.IsZero())
	assert.Equal(t, before, f.ctrl.Snapshot())
	assert.Equal(t, 0, f.durable.Len())
	assert.False(t, f.ctrl.IsCheckingOut())
}

type failingTokens struct{}

func (failingTokens) GetOrCreate() (session.Token, error) {
	return "", errors.New("storage unavailable")
}

func TestTokenFailure(t *testing.T) {
	srv := apitest.NewServer(t)
	client, err := api.New(srv.URL())
	require.NoError(t, err)

	ctrl := NewController(client, failingTokens{}, nil, checkout.NewHandoff(store.NewMemoryStore()))

	_, err = ctrl.Load(context.Background())
	var fe *FetchError
	assert.True(t, errors.As(err, &fe))

	var ue *UpdateError
	assert.True(t, errors.As(ctrl.SetQuantity(context.Background(), "p1", 2), &ue))
	assert.Equal(t, 0, srv.Calls("PUT /cart/:productId"))
}

// gatedBackend answers cart reads and quantity updates from canned carts and can
// hold each request until its gate is closed. Other calls go to Backend.
type gatedBackend struct {
	Backend

	mu        sync.Mutex
	updates   map[string]types.Cart
	gates     map[string]chan struct{}
	cart      types.Cart
	getGate   chan struct{}
	getCtx    context.Context
	getCalled chan struct{}
	getOnce   sync.Once
}

func (b *gatedBackend) UpdateQuantity(ctx context.Context, _ session.Token, productID string, _ int) (types.Cart, error) {
	b.mu.Lock()
	gate := b.gates[productID]
	resp := b.updates[productID]
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return types.Cart{}, ctx.Err()
		}
	}
	return resp, nil
}

func (b *gatedBackend) GetCart(ctx context.Context, _ session.Token) (types.Cart, error) {
	b.mu.Lock()
	b.getCtx = ctx
	gate := b.getGate
	b.mu.Unlock()
	if b.getCalled != nil {
		b.getOnce.Do(func() { close(b.getCalled) })
	}

	if gate != nil {
		<-gate
	}
	return b.cart, nil
}

func newGatedController(t *testing.T, b *gatedBackend) *Controller {
	t.Helper()
	return NewController(b, session.NewIdentity(store.NewMemoryStore()), badge.New(), checkout.NewHandoff(store.NewMemoryStore()))
}

func TestMutationsOnDifferentItemsInterleave(t *testing.T) {
	afterP1 := types.Cart{Items: []types.CartItem{
		{ProductID: "p1", Price: 25, Quantity: 3},
		{ProductID: "p2", Price: 50, Quantity: 1},
	}, Total: 125}
	afterP2 := types.Cart{Items: []types.CartItem{
		{ProductID: "p1", Price: 25, Quantity: 1},
		{ProductID: "p2", Price: 50, Quantity: 5},
	}, Total: 275}

	p1Gate := make(chan struct{})
	b := &gatedBackend{
		updates: map[string]types.Cart{"p1": afterP1, "p2": afterP2},
		gates:   map[string]chan struct{}{"p1": p1Gate},
	}
	ctrl := newGatedController(t, b)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	var p1Err error
	go func() {
		defer wg.Done()
		p1Err = ctrl.SetQuantity(ctx, "p1", 3)
	}()
	require.Eventually(t, func() bool { return ctrl.IsUpdating("p1") }, time.Second, 5*time.Millisecond)

	// p2 is not blocked by p1's pending write.
	require.NoError(t, ctrl.SetQuantity(ctx, "p2", 5))
	assert.Equal(t, afterP2, ctrl.Snapshot())
	assert.True(t, ctrl.IsUpdating("p1"))

	// p1 resolves last, so its response wins.
	close(p1Gate)
	wg.Wait()
	require.NoError(t, p1Err)
	assert.Equal(t, afterP1, ctrl.Snapshot())
	assert.Equal(t, 4, ctrl.ItemCount())
	assert.False(t, ctrl.IsUpdating("p1"))
	assert.False(t, ctrl.IsUpdating("p2"))
}

func TestLoad_CallerCancelDoesNotFailSharedFetch(t *testing.T) {
	want := types.Cart{Items: []types.CartItem{{ProductID: "p1", Price: 25, Quantity: 2}}, Total: 50}
	gate := make(chan struct{})
	b := &gatedBackend{cart: want, getGate: gate, getCalled: make(chan struct{})}
	ctrl := newGatedController(t, b)

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := ctrl.Load(first)
		firstErr <- err
	}()
	<-b.getCalled

	type result struct {
		cart types.Cart
		err  error
	}
	second := make(chan result, 1)
	go func() {
		c, err := ctrl.Load(context.Background())
		second <- result{c, err}
	}()

	cancelFirst()
	err := <-firstErr
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, context.Canceled)

	b.mu.Lock()
	fetchCtx := b.getCtx
	b.mu.Unlock()
	assert.NoError(t, fetchCtx.Err(), "the shared fetch must outlive the first caller")

	close(gate)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, want, got.cart)
	assert.Equal(t, want, ctrl.Snapshot())
}

func TestLoad_CorrectsBadgeOnCountChange(t *testing.T) {
	f := newFixture(t)
	f.seed(types.CartItem{ProductID: "p1", Price: 25, Quantity: 3})

	ch, cancel := f.notifier.Listen(4)
	defer cancel()

	_, err := f.ctrl.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, badge.Event{Count: 3}, <-ch)

	// Same count again: nothing to correct.
	_, err = f.ctrl.Load(context.Background())
	require.NoError(t, err)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected badge event %+v", ev)
	default:
	}
}
