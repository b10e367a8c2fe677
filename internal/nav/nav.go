// Package nav holds the route table and the navigation intents controllers
// hand back to the view layer.
package nav

import "strings"

// Route is a page path.
type Route string

const (
	Listing  Route = "/"
	About    Route = "/about"
	Cart     Route = "/cart"
	Payment  Route = "/payment"
	NotFound Route = "*"
)

// NotFoundText is shown for any unknown path.
const NotFoundText = "404 - Page Not Found"

var known = map[Route]bool{
	Listing: true,
	About:   true,
	Cart:    true,
	Payment: true,
}

// Resolve maps a path to its route; unknown paths resolve to NotFound.
func Resolve(path string) Route {
	p := strings.TrimSpace(path)
	if p == "" {
		return Listing
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if r := Route(p); known[r] {
		return r
	}
	return NotFound
}

// Title is the label used in the navigation bar.
func (r Route) Title() string {
	switch r {
	case Listing:
		return "Home"
	case About:
		return "About"
	case Cart:
		return "Cart"
	case Payment:
		return "Payment"
	default:
		return "Not Found"
	}
}

// Intent asks the view layer to show Alert (if any) and then switch to Route.
// The zero Intent means "stay".
type Intent struct {
	Route Route
	Alert string
}

// NavigateTo builds an intent without an alert.
func NavigateTo(r Route) Intent {
	return Intent{Route: r}
}

// WithAlert returns a copy of the intent carrying a blocking alert.
func (i Intent) WithAlert(msg string) Intent {
	i.Alert = msg
	return i
}

// IsZero reports whether the intent requests nothing.
func (i Intent) IsZero() bool {
	return i.Route == "" && i.Alert == ""
}
