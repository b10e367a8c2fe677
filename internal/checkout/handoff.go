package checkout

import (
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/logging"
	"storefront/internal/nav"
	"storefront/internal/store"
)

// StorageKey is the durable key the snapshot lives under.
const StorageKey = "checkoutData"

// MissingAlert is shown when the payment view finds no snapshot.
const MissingAlert = "No checkout data found. Redirecting to cart..."

// ErrNoSnapshot is the cause of a MissingSnapshotError when the key is absent.
var ErrNoSnapshot = errors.New("no checkout snapshot")

// MissingSnapshotError reports an absent or unreadable snapshot.
type MissingSnapshotError struct {
	Cause error
}

func (e *MissingSnapshotError) Error() string {
	return fmt.Sprintf("checkout snapshot missing: %v", e.Cause)
}

func (e *MissingSnapshotError) Unwrap() error { return e.Cause }

// Alert is the user-facing message.
func (e *MissingSnapshotError) Alert() string { return MissingAlert }

// Intent sends the user back to the cart with the alert.
func (e *MissingSnapshotError) Intent() nav.Intent {
	return nav.NavigateTo(nav.Cart).WithAlert(MissingAlert)
}

// Handoff moves a Snapshot through a durable store.
type Handoff struct {
	store store.KV
}

// NewHandoff returns a Handoff over kv.
func NewHandoff(kv store.KV) *Handoff {
	return &Handoff{store: kv}
}

// Persist overwrites any previous snapshot.
func (h *Handoff) Persist(s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := h.store.Set(StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	logging.Checkout("persisted snapshot %s (%d items, total %.2f)", s.ReceiptID, s.TotalItems, s.Total)
	return nil
}

// Retrieve returns the stored snapshot. A malformed value is reported as missing.
func (h *Handoff) Retrieve() (Snapshot, error) {
	raw, ok, err := h.store.Get(StorageKey)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if !ok || raw == "" {
		return Snapshot{}, &MissingSnapshotError{Cause: ErrNoSnapshot}
	}

	var s Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		logging.CheckoutWarn("discarding malformed snapshot: %v", err)
		return Snapshot{}, &MissingSnapshotError{Cause: err}
	}
	if s.Items == nil {
		s.Items = []SnapshotItem{}
	}
	return s, nil
}

// Clear deletes the snapshot. Clearing an absent snapshot is not an error.
func (h *Handoff) Clear() error {
	if err := h.store.Delete(StorageKey); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	logging.Checkout("cleared snapshot")
	return nil
}
