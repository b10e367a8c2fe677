// Package checkout builds the snapshot handed from the cart view to the payment
// view and keeps it in the durable store between the two.
package checkout

import (
	"fmt"
	"time"

	"storefront/internal/types"
)

// TaxRate is applied to the subtotal.
const TaxRate = 0.10

// Totals is derived from a cart subtotal and never stored on its own.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Derive computes tax and total from a subtotal.
func Derive(subtotal float64) Totals {
	tax := subtotal * TaxRate
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal + tax}
}

// SnapshotItem is a cart line frozen at checkout time.
type SnapshotItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ItemTotal float64 `json:"itemTotal"`
}

// Snapshot is the one-way copy of the cart the payment view works from.
type Snapshot struct {
	ReceiptID  string         `json:"receiptId"`
	Date       time.Time      `json:"date"`
	TotalItems int            `json:"totalItems"`
	Subtotal   float64        `json:"subtotal"`
	Tax        float64        `json:"tax"`
	Total      float64        `json:"total"`
	Items      []SnapshotItem `json:"items"`
}

// FallbackReceiptID is used when the checkout response carries no receipt.
func FallbackReceiptID(now time.Time) string {
	return fmt.Sprintf("R-%d", now.UnixMilli())
}

// BuildSnapshot freezes cart. Subtotal is the server total, not a client sum.
func BuildSnapshot(cart types.Cart, receiptID string, now time.Time) Snapshot {
	if receiptID == "" {
		receiptID = FallbackReceiptID(now)
	}
	totals := Derive(cart.Total)

	items := make([]SnapshotItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, SnapshotItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Price:     it.Price,
			Quantity:  it.Quantity,
			ItemTotal: it.LineTotal(),
		})
	}

	return Snapshot{
		ReceiptID:  receiptID,
		Date:       now,
		TotalItems: cart.ItemCount(),
		Subtotal:   totals.Subtotal,
		Tax:        totals.Tax,
		Total:      totals.Total,
		Items:      items,
	}
}

// PayableTotals returns the snapshot totals, filling tax and total from the
// subtotal when they are zero.
func (s Snapshot) PayableTotals() Totals {
	tax := s.Tax
	if tax == 0 {
		tax = s.Subtotal * TaxRate
	}
	total := s.Total
	if total == 0 {
		total = s.Subtotal + tax
	}
	return Totals{Subtotal: s.Subtotal, Tax: tax, Total: total}
}
