package ui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const aboutMarkdown = `# About MyShop

MyShop is a small storefront. Browse the catalog, add what you like to your
cart and check out with a card.

## How it works

- Your cart lives on the shop server and is tied to this session.
- Quantities and removals are saved as soon as you make them.
- Checkout adds **10% tax** to your subtotal.
- Payment details never leave this terminal.

## Keys

| Key | Action |
| --- | --- |
| 1 / 2 / 3 | Home, About, Cart |
| g | Go to a path |
| q | Quit |
`

// AboutPageModel renders the about text in a scrollable viewport.
type AboutPageModel struct {
	viewport viewport.Model
	styles   Styles
	width    int
	height   int
}

// NewAboutPageModel creates the about page.
func NewAboutPageModel(styles Styles) AboutPageModel {
	m := AboutPageModel{
		viewport: viewport.New(80, 20),
		styles:   styles,
		width:    80,
	}
	m.render()
	return m
}

// SetSize updates the viewport and re-wraps the text.
func (m *AboutPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h
	m.render()
}

func (m *AboutPageModel) render() {
	wrap := m.width - 4
	if wrap < 20 {
		wrap = 20
	}

	var (
		r   *glamour.TermRenderer
		err error
	)
	if m.styles.Theme.IsDark {
		r, err = glamour.NewTermRenderer(
			glamour.WithStylePath("dark"),
			glamour.WithWordWrap(wrap),
		)
	} else {
		r, err = glamour.NewTermRenderer(
			glamour.WithStylePath("light"),
			glamour.WithWordWrap(wrap),
		)
	}
	if err != nil {
		m.viewport.SetContent(aboutMarkdown)
		return
	}

	out, err := r.Render(aboutMarkdown)
	if err != nil {
		out = aboutMarkdown
	}
	m.viewport.SetContent(out)
}

// Update handles scrolling.
func (m AboutPageModel) Update(msg tea.Msg) (AboutPageModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the page.
func (m AboutPageModel) View() string {
	return m.viewport.View()
}
