package ui

import (
	"context"
	"strings"

	"storefront/internal/app"
	"storefront/internal/logging"
	"storefront/internal/nav"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	navbarHeight = 1
	footerHeight = 1
)

// pendingAlert blocks input until dismissed, then moves to route if set.
type pendingAlert struct {
	text  string
	route nav.Route
}

// Model is the router: it owns the pages and performs navigation intents.
type Model struct {
	ctx context.Context
	app *app.App

	styles Styles
	route  nav.Route
	path   string
	width  int
	height int

	navbar   NavbarModel
	listing  ListingPageModel
	about    AboutPageModel
	cart     CartPageModel
	payment  PaymentPageModel
	notFound NotFoundPageModel

	alert *pendingAlert

	badgeEvents func() tea.Cmd
	cancelBadge func()
	refreshSeq  int

	gotoInput  textinput.Model
	gotoActive bool
}

// New builds the router for a wired App starting at path.
func New(ctx context.Context, a *app.App, styles Styles, path string) Model {
	gi := textinput.New()
	gi.Prompt = "go to: "
	gi.Placeholder = "/cart"
	gi.CharLimit = 64
	gi.PromptStyle = styles.Prompt

	m := Model{
		ctx:       ctx,
		app:       a,
		styles:    styles,
		navbar:    NewNavbarModel(styles),
		listing:   NewListingPageModel(ctx, a.Catalog, styles),
		about:     NewAboutPageModel(styles),
		cart:      NewCartPageModel(ctx, a.Cart, styles),
		payment:   NewPaymentPageModel(ctx, a.Payment, styles),
		notFound:  NewNotFoundPageModel(styles),
		gotoInput: gi,
	}

	ch, cancel := a.Notifier.Listen(16)
	m.cancelBadge = cancel
	m.badgeEvents = func() tea.Cmd { return waitForBadge(ch) }

	m.path = path
	m.route = nav.Resolve(path)
	m.navbar.SetActive(m.route)
	m.navbar.SetCount(0)
	return m
}

// Close stops the badge subscription.
func (m Model) Close() {
	if m.cancelBadge != nil {
		m.cancelBadge()
	}
}

// Route returns the active route.
func (m Model) Route() nav.Route { return m.route }

// Init bootstraps the catalog and cart and starts listening for badge events.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.listing.Init(),
		bootstrapCmd(m.ctx, m.app),
		m.badgeEvents(),
	}
	if cmd := m.enterCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// enterCmd runs the on-mount work of the active page.
func (m *Model) enterCmd() tea.Cmd {
	switch m.route {
	case nav.Cart:
		return m.cart.Enter()
	case nav.Payment:
		return m.payment.Enter()
	case nav.NotFound:
		m.notFound.SetPath(m.path)
	}
	return nil
}

func (m *Model) goTo(path string) tea.Cmd {
	m.path = path
	m.route = nav.Resolve(path)
	m.navbar.SetActive(m.route)
	logging.UIDebug("navigate to %s (%s)", path, m.route)
	return m.enterCmd()
}

// perform shows the intent's alert, if any, and navigates.
func (m *Model) perform(in nav.Intent) tea.Cmd {
	if in.Alert != "" {
		m.alert = &pendingAlert{text: in.Alert, route: in.Route}
		return nil
	}
	if in.Route != "" {
		return m.goTo(string(in.Route))
	}
	return nil
}

func (m *Model) showError(err error) {
	if text := alertFor(err); text != "" {
		m.alert = &pendingAlert{text: text}
	}
}

func (m *Model) resize(w, h int) {
	m.width = w
	m.height = h
	body := h - navbarHeight - footerHeight - 2
	if body < 1 {
		body = 1
	}
	m.navbar.SetWidth(w)
	m.listing.SetSize(w-4, body)
	m.about.SetSize(w-4, body)
	m.cart.SetSize(w-4, body)
	m.payment.SetSize(w-4, body)
}

// Update routes messages to the navbar and the active page.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case navigateMsg:
		return m, m.perform(nav.Intent(msg))

	case badgeMsg:
		m.navbar.SetCount(msg.Count)
		cmds := []tea.Cmd{m.badgeEvents()}
		if m.route == nav.Cart {
			m.refreshSeq++
			cmds = append(cmds, refreshTick(m.refreshSeq))
		}
		return m, tea.Batch(cmds...)

	case badgeClosedMsg:
		return m, nil

	case refreshTickMsg:
		if msg.seq == m.refreshSeq && m.route == nav.Cart {
			return m, m.cart.Reload()
		}
		return m, nil

	case bootstrapMsg:
		m.listing.SetProducts(msg.Products, msg.ProductErr)
		if m.route == nav.Cart {
			var cmd tea.Cmd
			m.cart, cmd = m.cart.Update(cartLoadedMsg{cart: msg.Cart})
			return m, cmd
		}
		return m, nil

	case productsMsg, addedMsg:
		if am, ok := msg.(addedMsg); ok {
			m.showError(am.err)
		}
		var cmd tea.Cmd
		m.listing, cmd = m.listing.Update(msg)
		return m, cmd

	case cartLoadedMsg:
		var cmd tea.Cmd
		m.cart, cmd = m.cart.Update(msg)
		return m, cmd

	case cartMutatedMsg:
		m.showError(msg.err)
		var cmd tea.Cmd
		m.cart, cmd = m.cart.Update(msg)
		return m, cmd

	case checkoutMsg:
		var cmd tea.Cmd
		m.cart, cmd = m.cart.Update(msg)
		if msg.err != nil {
			m.showError(msg.err)
			return m, cmd
		}
		return m, tea.Batch(cmd, m.perform(msg.intent))

	case snapshotMsg:
		var cmd tea.Cmd
		m.payment, cmd = m.payment.Update(msg)
		return m, cmd

	case paymentMsg:
		m.showError(msg.err)
		var cmd tea.Cmd
		m.payment, cmd = m.payment.Update(msg)
		return m, cmd
	}

	// Everything else (spinner ticks, blinks) goes to the active page.
	return m.updateActive(msg)
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.route {
	case nav.Listing:
		m.listing, cmd = m.listing.Update(msg)
	case nav.About:
		m.about, cmd = m.about.Update(msg)
	case nav.Cart:
		m.cart, cmd = m.cart.Update(msg)
	case nav.Payment:
		m.payment, cmd = m.payment.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.Close()
		return m, tea.Quit
	}

	if m.alert != nil {
		switch msg.String() {
		case "enter", "esc", " ":
			a := m.alert
			m.alert = nil
			if a.route != "" {
				return m, m.goTo(string(a.route))
			}
		}
		return m, nil
	}

	if m.gotoActive {
		switch msg.String() {
		case "enter":
			m.gotoActive = false
			path := strings.TrimSpace(m.gotoInput.Value())
			m.gotoInput.Blur()
			m.gotoInput.SetValue("")
			return m, m.goTo(path)
		case "esc":
			m.gotoActive = false
			m.gotoInput.Blur()
			m.gotoInput.SetValue("")
			return m, nil
		}
		var cmd tea.Cmd
		m.gotoInput, cmd = m.gotoInput.Update(msg)
		return m, cmd
	}

	if msg.Type == tea.KeyCtrlG {
		m.gotoActive = true
		return m, m.gotoInput.Focus()
	}

	// The payment form captures printable keys.
	if m.route == nav.Payment {
		if msg.String() == "esc" && !m.payment.HasReceipt() {
			return m, m.goTo(string(nav.Cart))
		}
		var cmd tea.Cmd
		m.payment, cmd = m.payment.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.Close()
		return m, tea.Quit
	case "1":
		return m, m.goTo(string(nav.Listing))
	case "2":
		return m, m.goTo(string(nav.About))
	case "3":
		return m, m.goTo(string(nav.Cart))
	case "g":
		m.gotoActive = true
		return m, m.gotoInput.Focus()
	}

	return m.updateActive(msg)
}

// View renders the navbar, the active page and the footer.
func (m Model) View() string {
	var body string
	switch m.route {
	case nav.Listing:
		body = m.listing.View()
	case nav.About:
		body = m.about.View()
	case nav.Cart:
		body = m.cart.View()
	case nav.Payment:
		body = m.payment.View()
	default:
		body = m.notFound.View()
	}

	if m.alert != nil {
		box := m.styles.Modal.Render(m.alert.text + "\n\n" + m.styles.Muted.Render("[enter] OK"))
		body = lipgloss.JoinVertical(lipgloss.Left, box, body)
	}

	footer := m.styles.Footer.Render("ctrl+g go to • q quit")
	if m.route == nav.Payment {
		footer = m.styles.Footer.Render("ctrl+g go to • ctrl+c quit")
	}
	if m.gotoActive {
		footer = m.gotoInput.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.navbar.View(),
		m.styles.Content.Render(body),
		footer,
	)
}
