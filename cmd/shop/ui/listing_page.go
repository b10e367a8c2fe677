package ui

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/catalog"
	"storefront/internal/types"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// ListingPageModel is the product grid at "/".
type ListingPageModel struct {
	ctx     context.Context
	listing *catalog.Listing

	table   table.Model
	spinner spinner.Model
	styles  Styles

	products []types.Product
	loading  bool
	err      error
	adding   string
	notice   string
	width    int
	height   int
}

// NewListingPageModel creates the listing page in the loading state.
func NewListingPageModel(ctx context.Context, listing *catalog.Listing, styles Styles) ListingPageModel {
	t := table.New(
		table.WithColumns(listingColumns(80)),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return ListingPageModel{
		ctx:     ctx,
		listing: listing,
		table:   t,
		spinner: sp,
		styles:  styles,
		loading: true,
	}
}

func listingColumns(width int) []table.Column {
	title := width - 40
	if title < 20 {
		title = 20
	}
	return []table.Column{
		{Title: "Product", Width: title},
		{Title: "Price", Width: 12},
		{Title: "Was", Width: 12},
		{Title: "", Width: 10},
	}
}

// SetSize updates the table geometry.
func (m *ListingPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.table.SetColumns(listingColumns(w))
	if h > 8 {
		m.table.SetHeight(h - 6)
	}
	m.refreshRows()
}

// Loading reports whether products are still being fetched.
func (m ListingPageModel) Loading() bool { return m.loading }

// SetProducts fills the grid from a load result.
func (m *ListingPageModel) SetProducts(products []types.Product, err error) {
	m.loading = false
	m.err = err
	if err == nil {
		m.products = products
	}
	m.refreshRows()
}

func (m *ListingPageModel) refreshRows() {
	rows := make([]table.Row, 0, len(m.products))
	for _, p := range m.products {
		was := ""
		if p.OriginalPrice != nil {
			was = m.styles.Money(*p.OriginalPrice)
		}
		status := "Add to Cart"
		if p.ID == m.adding {
			status = "Adding..."
		}
		rows = append(rows, table.Row{p.Title, m.styles.Money(p.Price), was, status})
	}
	m.table.SetRows(rows)
}

func (m ListingPageModel) selected() (types.Product, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.products) {
		return types.Product{}, false
	}
	return m.products[i], true
}

// Init starts the spinner.
func (m ListingPageModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m ListingPageModel) Update(msg tea.Msg) (ListingPageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case productsMsg:
		m.SetProducts(msg.products, msg.err)
		return m, nil

	case addedMsg:
		if m.adding == msg.productID {
			m.adding = ""
		}
		if msg.err == nil {
			m.notice = "Item added to cart"
		} else {
			m.notice = ""
		}
		m.refreshRows()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			if m.err != nil {
				m.loading = true
				m.err = nil
				return m, tea.Batch(m.spinner.Tick, loadProductsCmd(m.ctx, m.listing))
			}
		case "enter", "a":
			if m.loading || m.err != nil || m.adding != "" {
				return m, nil
			}
			p, ok := m.selected()
			if !ok {
				return m, nil
			}
			m.adding = p.ID
			m.notice = ""
			m.refreshRows()
			return m, addToCartCmd(m.ctx, m.listing, p)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the page.
func (m ListingPageModel) View() string {
	var sb strings.Builder

	switch {
	case m.loading:
		sb.WriteString(fmt.Sprintf("%s Loading products...\n", m.spinner.View()))

	case m.err != nil:
		sb.WriteString(m.styles.Error.Render("Error Loading Products"))
		sb.WriteString("\n")
		sb.WriteString(m.styles.Body.Render(m.err.Error()))
		sb.WriteString("\n\n")
		sb.WriteString(m.styles.Muted.Render("Press r to retry"))
		sb.WriteString("\n")

	case len(m.products) == 0:
		sb.WriteString(m.styles.Title.Render("No products available"))
		sb.WriteString("\n")
		sb.WriteString(m.styles.Muted.Render("Check back later for new items"))
		sb.WriteString("\n")

	default:
		sb.WriteString(m.table.View())
		sb.WriteString("\n")
		if m.notice != "" {
			sb.WriteString(m.styles.Success.Render(m.notice))
			sb.WriteString("\n")
		}
		sb.WriteString(m.styles.Muted.Render("↑/↓ select • enter add to cart"))
		sb.WriteString("\n")
	}

	return sb.String()
}
