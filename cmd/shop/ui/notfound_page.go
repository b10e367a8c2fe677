package ui

import "storefront/internal/nav"

// NotFoundPageModel is shown for unknown paths.
type NotFoundPageModel struct {
	styles Styles
	path   string
}

// NewNotFoundPageModel creates the page.
func NewNotFoundPageModel(styles Styles) NotFoundPageModel {
	return NotFoundPageModel{styles: styles}
}

// SetPath records the path that missed.
func (m *NotFoundPageModel) SetPath(p string) { m.path = p }

// View renders the page.
func (m NotFoundPageModel) View() string {
	out := m.styles.Title.Render(nav.NotFoundText)
	if m.path != "" {
		out += "\n" + m.styles.Muted.Render(m.path)
	}
	return out + "\n"
}
