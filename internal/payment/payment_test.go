package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/checkout"
	"storefront/internal/store"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFormatCardNumber(t *testing.T) {
	tests := map[string]string{
		"12345678901234567890": "1234 5678 9012 3456",
		"1234-5678":            "1234 5678",
		"12345":                "1234 5",
		"abcd":                 "",
		"4111 1111 1111 1111":  "4111 1111 1111 1111",
	}
	for raw, want := range tests {
		if got := FormatCardNumber(raw); got != want {
			t.Errorf("FormatCardNumber(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestFormatExpiry(t *testing.T) {
	tests := map[string]string{
		"1":      "1",
		"12":     "12/",
		"1226":   "12/26",
		"12/26":  "12/26",
		"122699": "12/26",
	}
	for raw, want := range tests {
		if got := FormatExpiry(raw); got != want {
			t.Errorf("FormatExpiry(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestFormatCVV(t *testing.T) {
	if got := FormatCVV("12a34"); got != "123" {
		t.Errorf("FormatCVV = %q, want 123", got)
	}
	if got := Format(FieldName, "  Ada "); got != "  Ada " {
		t.Errorf("name should pass through, got %q", got)
	}
}

func TestValidate_AllErrors(t *testing.T) {
	got := Validate(Form{})
	want := Validation{
		FieldName:       "Name is required",
		FieldEmail:      "Email is required",
		FieldCardNumber: "Card number is required",
		FieldExpiry:     "Expiry date required",
		FieldCVV:        "CVV required",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("validation mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Fields, got.Fields())
}

func TestValidate_FormatErrors(t *testing.T) {
	got := Validate(Form{
		Name:       "Ada",
		Email:      "ada@example",
		CardNumber: "1234 5678",
		ExpiryDate: "12/",
		CVV:        "12",
	})
	want := Validation{
		FieldEmail:      "Invalid email",
		FieldCardNumber: "Must be 16 digits",
		FieldExpiry:     "Invalid expiry",
		FieldCVV:        "Must be 3 digits",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("validation mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_WhitespaceNameIsMissing(t *testing.T) {
	got := Validate(validForm())
	require.True(t, got.Valid())

	f := validForm()
	f.Name = "   "
	assert.Equal(t, "Name is required", Validate(f)[FieldName])
}

func validForm() Form {
	return Form{
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		CardNumber: "4111 1111 1111 1111",
		ExpiryDate: "12/26",
		CVV:        "123",
	}
}

func fill(c *Controller, f Form) {
	c.UpdateField(FieldName, f.Name)
	c.UpdateField(FieldEmail, f.Email)
	c.UpdateField(FieldCardNumber, f.CardNumber)
	c.UpdateField(FieldExpiry, f.ExpiryDate)
	c.UpdateField(FieldCVV, f.CVV)
}

func newController(t *testing.T, p Processor) (*Controller, *checkout.Handoff, checkout.Snapshot) {
	t.Helper()
	h := checkout.NewHandoff(store.NewMemoryStore())
	snap := checkout.Snapshot{
		ReceiptID:  "R-42",
		TotalItems: 1,
		Subtotal:   100,
		Tax:        10,
		Total:      110,
		Items:      []checkout.SnapshotItem{{ProductID: "p1", Name: "Shirt", Price: 100, Quantity: 1, ItemTotal: 100}},
	}
	require.NoError(t, h.Persist(snap))
	return NewController(p, h), h, snap
}

func TestUpdateField_ClearsErrorAndFormats(t *testing.T) {
	c, _, _ := newController(t, SimulatedProcessor{})

	v := c.Validate()
	require.Len(t, v, 5)
	assert.Equal(t, Invalid, c.State())

	got := c.UpdateField(FieldCardNumber, "12345678901234567890")
	assert.Equal(t, "1234 5678 9012 3456", got)
	assert.Equal(t, "1234 5678 9012 3456", c.Form().CardNumber)
	assert.Empty(t, c.Error(FieldCardNumber))
	assert.Equal(t, "Name is required", c.Error(FieldName))
	assert.Equal(t, Editing, c.State())
}

func TestSubmit_InvalidHasNoSideEffects(t *testing.T) {
	called := false
	c, h, snap := newController(t, ProcessorFunc(func(context.Context, Form, float64) error {
		called = true
		return nil
	}))

	_, err := c.Submit(context.Background(), snap)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 5)
	assert.False(t, called)

	_, err = h.Retrieve()
	assert.NoError(t, err, "snapshot must survive an invalid submit")
	_, ok := c.Receipt()
	assert.False(t, ok)
}

func TestSubmit_Success(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	c, h, snap := newController(t, SimulatedProcessor{Delay: 10 * time.Millisecond})
	c.WithClock(func() time.Time { return now })
	fill(c, validForm())

	receipt, err := c.Submit(context.Background(), snap)
	require.NoError(t, err)

	want := Receipt{
		ReceiptID:    "R-42",
		Total:        110,
		Timestamp:    now,
		Items:        snap.Items,
		CustomerInfo: CustomerInfo{Name: "Ada Lovelace", Email: "ada@example.com"},
	}
	if diff := cmp.Diff(want, receipt); diff != "" {
		t.Errorf("receipt mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Succeeded, c.State())

	_, err = h.Retrieve()
	var missing *checkout.MissingSnapshotError
	assert.True(t, errors.As(err, &missing), "snapshot should be cleared after payment")

	stored, ok := c.Receipt()
	require.True(t, ok)
	assert.Equal(t, receipt.ReceiptID, stored.ReceiptID)
}

func TestSubmit_TotalFallbacks(t *testing.T) {
	c, _, snap := newController(t, SimulatedProcessor{})
	fill(c, validForm())

	snap.Tax = 0
	snap.Total = 0
	receipt, err := c.Submit(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, 110.0, receipt.Total)
}

func TestSubmit_ProcessorFailure(t *testing.T) {
	boom := errors.New("declined")
	c, h, snap := newController(t, ProcessorFunc(func(context.Context, Form, float64) error { return boom }))
	fill(c, validForm())

	_, err := c.Submit(context.Background(), snap)
	var pe *PaymentError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, FailedAlert, pe.Alert())
	assert.Equal(t, Failed, c.State())

	_, err = h.Retrieve()
	assert.NoError(t, err, "snapshot must survive a failed payment")

	c.UpdateField(FieldCVV, "321")
	assert.Equal(t, Editing, c.State())
}

func TestSubmit_ContextCancelled(t *testing.T) {
	c, _, snap := newController(t, SimulatedProcessor{Delay: time.Hour})
	fill(c, validForm())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(ctx, snap)
		done <- err
	}()

	require.Eventually(t, func() bool { return c.State() == Submitting }, time.Second, 5*time.Millisecond)
	_, err := c.Submit(context.Background(), snap)
	assert.ErrorIs(t, err, ErrBusy)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not observe cancellation")
	}
}

func TestReset(t *testing.T) {
	c, _, snap := newController(t, SimulatedProcessor{})
	fill(c, validForm())
	_, err := c.Submit(context.Background(), snap)
	require.NoError(t, err)

	c.Reset()
	assert.Equal(t, Form{}, c.Form())
	assert.Equal(t, Editing, c.State())
	_, ok := c.Receipt()
	assert.False(t, ok)
}

func TestLoadSnapshot(t *testing.T) {
	c, _, snap := newController(t, SimulatedProcessor{})
	got, err := c.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snap.ReceiptID, got.ReceiptID)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "submitting", Submitting.String())
	assert.Equal(t, "State(99)", State(99).String())
}
