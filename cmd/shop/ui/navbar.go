package ui

import (
	"fmt"
	"strings"

	"storefront/internal/nav"

	"github.com/charmbracelet/lipgloss"
)

// NavbarModel shows the shop name, the page links and the cart badge.
type NavbarModel struct {
	styles Styles
	width  int
	count  int
	active nav.Route
}

// NewNavbarModel creates a navbar with the badge at zero.
func NewNavbarModel(styles Styles) NavbarModel {
	return NavbarModel{styles: styles, active: nav.Listing}
}

// SetWidth sets the rendered width.
func (m *NavbarModel) SetWidth(w int) { m.width = w }

// SetActive marks the current page.
func (m *NavbarModel) SetActive(r nav.Route) { m.active = r }

// SetCount updates the badge.
func (m *NavbarModel) SetCount(n int) { m.count = n }

// Count returns the badge value.
func (m NavbarModel) Count() int { return m.count }

// View renders the bar.
func (m NavbarModel) View() string {
	brand := m.styles.Navbar.Render("MyShop")

	links := []struct {
		key   string
		route nav.Route
	}{
		{"1", nav.Listing},
		{"2", nav.About},
	}
	var parts []string
	for _, l := range links {
		style := m.styles.NavLink
		if l.route == m.active {
			style = m.styles.NavOn
		}
		parts = append(parts, style.Render(fmt.Sprintf("[%s] %s", l.key, l.route.Title())))
	}

	cartStyle := m.styles.NavLink
	if m.active == nav.Cart {
		cartStyle = m.styles.NavOn
	}
	cart := cartStyle.Render("[3] Cart") + m.styles.Badge.Render(fmt.Sprintf("%d", m.count))

	left := lipgloss.JoinHorizontal(lipgloss.Top, brand, strings.Join(parts, ""))
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(cart)
	if gap < 1 {
		gap = 1
	}
	filler := m.styles.NavLink.UnsetPadding().Render(strings.Repeat(" ", gap))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, cart)
}
