package ui

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/types"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// CartPageModel shows the cart lines and the order summary at "/cart".
type CartPageModel struct {
	ctx  context.Context
	ctrl *cart.Controller

	spinner spinner.Model
	styles  Styles

	cart        types.Cart
	cursor      int
	loading     bool
	checkingOut bool
	width       int
	height      int
}

// NewCartPageModel creates the cart page.
func NewCartPageModel(ctx context.Context, ctrl *cart.Controller, styles Styles) CartPageModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return CartPageModel{
		ctx:     ctx,
		ctrl:    ctrl,
		spinner: sp,
		styles:  styles,
		cart:    types.EmptyCart(),
	}
}

// SetSize records the page geometry.
func (m *CartPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Enter starts a reload; called when the page becomes active.
func (m *CartPageModel) Enter() tea.Cmd {
	m.loading = true
	return tea.Batch(m.spinner.Tick, refreshCartCmd(m.ctx, m.ctrl))
}

// Reload fetches the cart without the loading placeholder.
func (m *CartPageModel) Reload() tea.Cmd {
	return refreshCartCmd(m.ctx, m.ctrl)
}

func (m *CartPageModel) setCart(c types.Cart) {
	m.cart = c
	if m.cursor >= len(c.Items) {
		m.cursor = len(c.Items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m CartPageModel) current() (types.CartItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cart.Items) {
		return types.CartItem{}, false
	}
	return m.cart.Items[m.cursor], true
}

// Update handles messages.
func (m CartPageModel) Update(msg tea.Msg) (CartPageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.loading || m.checkingOut {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case cartLoadedMsg:
		m.loading = false
		m.setCart(msg.cart)

	case cartMutatedMsg:
		m.setCart(m.ctrl.Snapshot())

	case checkoutMsg:
		m.checkingOut = false

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m CartPageModel) handleKey(msg tea.KeyMsg) (CartPageModel, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.cart.Items)-1 {
			m.cursor++
		}
	case "+", "=", "right", "l":
		if item, ok := m.current(); ok {
			return m, mutateCmd(item.ProductID, func() error { return m.ctrl.Increase(m.ctx, item) })
		}
	case "-", "left", "h":
		if item, ok := m.current(); ok && item.Quantity > 1 {
			return m, mutateCmd(item.ProductID, func() error { return m.ctrl.Decrease(m.ctx, item) })
		}
	case "d", "x", "delete":
		if item, ok := m.current(); ok {
			return m, mutateCmd(item.ProductID, func() error { return m.ctrl.Remove(m.ctx, item.ProductID) })
		}
	case "c":
		if len(m.cart.Items) > 0 && !m.checkingOut {
			m.checkingOut = true
			return m, tea.Batch(m.spinner.Tick, checkoutCmd(m.ctx, m.ctrl))
		}
	case "r":
		return m, m.Reload()
	}
	return m, nil
}

// View renders the page.
func (m CartPageModel) View() string {
	items := m.cart.Items

	if m.loading && len(items) == 0 {
		return fmt.Sprintf("%s Loading cart...\n", m.spinner.View())
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Shopping Cart"))
	sb.WriteString("\n")
	noun := "items"
	if len(items) == 1 {
		noun = "item"
	}
	sb.WriteString(m.styles.Subtitle.Render(fmt.Sprintf("%d %s in your cart", len(items), noun)))
	sb.WriteString("\n\n")

	if len(items) == 0 {
		sb.WriteString(m.styles.Bold.Render("Your cart is empty"))
		sb.WriteString("\n")
		sb.WriteString(m.styles.Muted.Render("Start shopping to add items to your cart"))
		sb.WriteString("\n")
		return sb.String()
	}

	lines := NewSimpleTable("", "Product", "Price", "Qty", "Total", "").AlignRight(1, 2, 3)
	lines.Highlight = m.cursor
	for _, it := range items {
		status := ""
		if m.ctrl.IsUpdating(it.ProductID) {
			status = "updating..."
		}
		lines.AddRow(it.Name, m.styles.Money(it.Price), fmt.Sprintf("%d", it.Quantity), m.styles.Money(it.LineTotal()), status)
	}

	totals := m.ctrl.Totals()
	summary := NewSimpleTable("Order Summary").AlignRight(1)
	summary.AddRow("Subtotal", m.styles.Money(totals.Subtotal))
	summary.AddRow("Tax (10%)", m.styles.Money(totals.Tax))
	summary.SetFooter("Total", m.styles.Money(totals.Total))

	checkout := m.styles.Button.Render("[c] Proceed to Checkout")
	if m.checkingOut {
		checkout = fmt.Sprintf("%s Processing...", m.spinner.View())
	}

	left := lines.View(m.styles)
	right := m.styles.Card.Render(summary.View(m.styles) + "\n" + checkout)
	if m.width > 0 && lipgloss.Width(left)+lipgloss.Width(right)+2 > m.width {
		sb.WriteString(lipgloss.JoinVertical(lipgloss.Left, left, right))
	} else {
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))
	}
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("↑/↓ select • +/- quantity • d remove • c checkout"))
	sb.WriteString("\n")
	return sb.String()
}
