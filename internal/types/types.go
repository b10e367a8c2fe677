// Package types provides the storefront records shared across packages.
// It exists so the API client, controllers and views agree on one shape without
// importing each other.
package types

// Product is a catalog entry as served by GET /products.
type Product struct {
	ID            string   `json:"_id"`
	Title         string   `json:"title"`
	Image         string   `json:"image"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
}

// Discounted reports whether the product carries a higher original price.
func (p Product) Discounted() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// CartItem is one line of the server-side cart.
type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// LineTotal is price times quantity, computed client-side.
func (i CartItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Cart is the server's view of a session's cart. Total is the server-computed
// subtotal and is displayed as-is rather than recomputed from Items.
type Cart struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

// EmptyCart is the state the client falls back to when the cart cannot be read.
func EmptyCart() Cart {
	return Cart{Items: []CartItem{}, Total: 0}
}

// ItemCount sums quantities across all lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Find returns the line for productID.
func (c Cart) Find(productID string) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return CartItem{}, false
}

// Clone returns a deep copy so callers never share the owner's slice.
func (c Cart) Clone() Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items, Total: c.Total}
}

// Normalize replaces a nil item list with an empty one.
func (c Cart) Normalize() Cart {
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	return c
}
