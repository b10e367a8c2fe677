package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/checkout"
	"storefront/internal/logging"
)

// FailedAlert is shown when the charge fails.
const FailedAlert = "Payment failed. Try again."

// ErrBusy is returned by Submit while a payment is processing.
var ErrBusy = errors.New("payment already processing")

// State is the form lifecycle.
type State int

const (
	Editing State = iota
	Validating
	Invalid
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Validating:
		return "validating"
	case Invalid:
		return "invalid"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ValidationError is returned by Submit for an invalid form.
type ValidationError struct {
	Errors Validation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, f := range e.Errors.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Errors[f]))
	}
	return "invalid payment form: " + strings.Join(parts, "; ")
}

// PaymentError reports a failed charge. The form stays as entered.
type PaymentError struct {
	Err error
}

func (e *PaymentError) Error() string { return fmt.Sprintf("payment failed: %v", e.Err) }
func (e *PaymentError) Unwrap() error { return e.Err }
func (e *PaymentError) Alert() string { return FailedAlert }

// CustomerInfo is the payer shown on the receipt.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Receipt is produced by a successful payment and kept in memory only.
type Receipt struct {
	ReceiptID    string                  `json:"receiptId"`
	Total        float64                 `json:"total"`
	Timestamp    time.Time               `json:"timestamp"`
	Items        []checkout.SnapshotItem `json:"items"`
	CustomerInfo CustomerInfo            `json:"customerInfo"`
}

// Processor charges the payer. Implementations must honour ctx.
type Processor interface {
	Process(ctx context.Context, form Form, amount float64) error
}

// SimulatedProcessor waits Delay and succeeds.
type SimulatedProcessor struct {
	Delay time.Duration
}

// DefaultDelay matches the storefront's simulated processing time.
const DefaultDelay = 1500 * time.Millisecond

func (p SimulatedProcessor) Process(ctx context.Context, _ Form, _ float64) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, form Form, amount float64) error

func (f ProcessorFunc) Process(ctx context.Context, form Form, amount float64) error {
	return f(ctx, form, amount)
}

// Controller owns the form and the receipt. Safe for concurrent use.
type Controller struct {
	processor Processor
	handoff   *checkout.Handoff
	now       func() time.Time

	mu      sync.Mutex
	form    Form
	errs    Validation
	state   State
	receipt *Receipt
}

// NewController returns a controller in the Editing state.
func NewController(processor Processor, handoff *checkout.Handoff) *Controller {
	if processor == nil {
		processor = SimulatedProcessor{Delay: DefaultDelay}
	}
	return &Controller{
		processor: processor,
		handoff:   handoff,
		now:       time.Now,
		errs:      Validation{},
		state:     Editing,
	}
}

// WithClock replaces the receipt timestamp source.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// LoadSnapshot reads the checkout snapshot the form pays for.
func (c *Controller) LoadSnapshot() (checkout.Snapshot, error) {
	return c.handoff.Retrieve()
}

// UpdateField formats raw for field, stores it and clears that field's error.
// It returns the stored value.
func (c *Controller) UpdateField(field Field, raw string) string {
	v := Format(field, raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.set(field, v)
	delete(c.errs, field)
	if c.state == Invalid || c.state == Failed {
		c.state = Editing
	}
	return v
}

// Validate checks the form and records the errors for display.
func (c *Controller) Validate() Validation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateLocked()
}

func (c *Controller) validateLocked() Validation {
	c.state = Validating
	v := Validate(c.form)
	c.errs = v
	if v.Valid() {
		c.state = Editing
	} else {
		c.state = Invalid
	}
	return v
}

// Submit validates, charges and on success builds the receipt and clears the
// snapshot. An invalid form has no side effects beyond recording errors.
func (c *Controller) Submit(ctx context.Context, snap checkout.Snapshot) (Receipt, error) {
	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		return Receipt{}, ErrBusy
	}
	if v := c.validateLocked(); !v.Valid() {
		c.mu.Unlock()
		return Receipt{}, &ValidationError{Errors: v}
	}
	c.state = Submitting
	form := c.form
	c.mu.Unlock()

	totals := snap.PayableTotals()
	logging.Payment("processing %s for %.2f", snap.ReceiptID, totals.Total)

	if err := c.processor.Process(ctx, form, totals.Total); err != nil {
		logging.PaymentError("payment for %s failed: %v", snap.ReceiptID, err)
		logging.Audit().Payment(snap.ReceiptID, totals.Total, err)
		c.mu.Lock()
		c.state = Failed
		c.mu.Unlock()
		return Receipt{}, &PaymentError{Err: err}
	}

	items := snap.Items
	if items == nil {
		items = []checkout.SnapshotItem{}
	}
	receipt := Receipt{
		ReceiptID:    snap.ReceiptID,
		Total:        totals.Total,
		Timestamp:    c.now().UTC(),
		Items:        items,
		CustomerInfo: CustomerInfo{Name: form.Name, Email: form.Email},
	}

	if err := c.handoff.Clear(); err != nil {
		logging.PaymentError("receipt %s issued but snapshot not cleared: %v", receipt.ReceiptID, err)
	}

	c.mu.Lock()
	c.state = Succeeded
	c.receipt = &receipt
	c.mu.Unlock()

	logging.Audit().Payment(receipt.ReceiptID, receipt.Total, nil)
	logging.Payment("payment succeeded: receipt %s", receipt.ReceiptID)
	return receipt, nil
}

// Reset clears the form and receipt and returns to Editing.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = Form{}
	c.errs = Validation{}
	c.receipt = nil
	c.state = Editing
}

// Form returns the current inputs.
func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Error returns the recorded error for field, if any.
func (c *Controller) Error(field Field) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs[field]
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Receipt returns the last receipt, if a payment succeeded.
func (c *Controller) Receipt() (Receipt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.receipt == nil {
		return Receipt{}, false
	}
	return *c.receipt, true
}
