package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/checkout"
	"storefront/internal/nav"
	"storefront/internal/payment"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var fieldLabels = map[payment.Field]string{
	payment.FieldName:       "Full Name",
	payment.FieldEmail:      "Email",
	payment.FieldCardNumber: "Card Number",
	payment.FieldExpiry:     "Expiry (MM/YY)",
	payment.FieldCVV:        "CVV",
}

var fieldPlaceholders = map[payment.Field]string{
	payment.FieldName:       "John Doe",
	payment.FieldEmail:      "john@example.com",
	payment.FieldCardNumber: "1234 5678 9012 3456",
	payment.FieldExpiry:     "MM/YY",
	payment.FieldCVV:        "123",
}

// PaymentPageModel is the checkout form at "/payment".
type PaymentPageModel struct {
	ctx  context.Context
	ctrl *payment.Controller

	inputs  []textinput.Model
	focus   int
	spinner spinner.Model
	styles  Styles

	snap       *checkout.Snapshot
	processing bool
	receipt    *payment.Receipt
	width      int
	height     int
}

// NewPaymentPageModel creates the payment page.
func NewPaymentPageModel(ctx context.Context, ctrl *payment.Controller, styles Styles) PaymentPageModel {
	inputs := make([]textinput.Model, len(payment.Fields))
	for i, f := range payment.Fields {
		ti := textinput.New()
		ti.Placeholder = fieldPlaceholders[f]
		ti.Prompt = "│ "
		ti.PromptStyle = styles.Prompt
		ti.TextStyle = styles.Input
		ti.CharLimit = 64
		ti.Width = 32
		inputs[i] = ti
	}
	inputs[0].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return PaymentPageModel{
		ctx:     ctx,
		ctrl:    ctrl,
		inputs:  inputs,
		spinner: sp,
		styles:  styles,
	}
}

// SetSize records the page geometry.
func (m *PaymentPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Enter reads the checkout snapshot; called when the page becomes active.
func (m *PaymentPageModel) Enter() tea.Cmd {
	m.snap = nil
	return tea.Batch(textinput.Blink, loadSnapshotCmd(m.ctrl))
}

// HasReceipt reports whether the receipt modal is open.
func (m PaymentPageModel) HasReceipt() bool { return m.receipt != nil }

func (m *PaymentPageModel) setFocus(i int) tea.Cmd {
	n := len(m.inputs)
	m.focus = ((i % n) + n) % n
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == m.focus {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return cmd
}

func (m *PaymentPageModel) resetInputs() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.setFocus(0)
}

// Update handles messages.
func (m PaymentPageModel) Update(msg tea.Msg) (PaymentPageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		if msg.err != nil {
			var missing *checkout.MissingSnapshotError
			if errors.As(msg.err, &missing) {
				return m, navigate(missing.Intent())
			}
			return m, navigate(nav.NavigateTo(nav.Cart).WithAlert(checkout.MissingAlert))
		}
		snap := msg.snap
		m.snap = &snap
		return m, nil

	case spinner.TickMsg:
		if m.processing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case paymentMsg:
		m.processing = false
		if msg.err == nil {
			r := msg.receipt
			m.receipt = &r
		}
		return m, nil

	case tea.KeyMsg:
		if m.receipt != nil {
			return m.handleReceiptKey(msg)
		}
		if m.processing {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			return m, m.setFocus(m.focus + 1)
		case "shift+tab", "up":
			return m, m.setFocus(m.focus - 1)
		case "enter":
			if m.focus < len(m.inputs)-1 {
				return m, m.setFocus(m.focus + 1)
			}
			return m.submit()
		case "ctrl+s":
			return m.submit()
		}

		field := payment.Fields[m.focus]
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		formatted := m.ctrl.UpdateField(field, m.inputs[m.focus].Value())
		if formatted != m.inputs[m.focus].Value() {
			m.inputs[m.focus].SetValue(formatted)
			m.inputs[m.focus].CursorEnd()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m PaymentPageModel) submit() (PaymentPageModel, tea.Cmd) {
	if m.snap == nil {
		return m, nil
	}
	if v := m.ctrl.Validate(); !v.Valid() {
		return m, nil
	}
	m.processing = true
	return m, tea.Batch(m.spinner.Tick, submitPaymentCmd(m.ctx, m.ctrl, *m.snap))
}

func (m PaymentPageModel) handleReceiptKey(msg tea.KeyMsg) (PaymentPageModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.receipt = nil
		m.snap = nil
		m.ctrl.Reset()
		m.resetInputs()
		return m, navigate(nav.NavigateTo(nav.Listing))
	case "esc", "x":
		m.receipt = nil
	}
	return m, nil
}

// View renders the page.
func (m PaymentPageModel) View() string {
	if m.receipt != nil {
		return m.receiptView()
	}
	if m.snap == nil {
		return m.styles.Muted.Render("Loading checkout...") + "\n"
	}

	var form strings.Builder
	form.WriteString(m.styles.Title.Render("Payment Details"))
	form.WriteString("\n")
	for i, f := range payment.Fields {
		form.WriteString(m.styles.Label.Render(fieldLabels[f]))
		form.WriteString("\n")
		form.WriteString(m.inputs[i].View())
		form.WriteString("\n")
		if e := m.ctrl.Error(f); e != "" {
			form.WriteString(m.styles.FieldError.Render(e))
			form.WriteString("\n")
		}
	}
	form.WriteString("\n")

	totals := m.snap.PayableTotals()
	if m.processing {
		form.WriteString(fmt.Sprintf("%s Processing...", m.spinner.View()))
	} else {
		form.WriteString(m.styles.Button.Render(fmt.Sprintf("Pay %s", m.styles.Money(totals.Total))))
	}
	form.WriteString("\n")

	summary := NewSimpleTable("Order Summary").AlignRight(1)
	for _, it := range m.snap.Items {
		summary.AddRow(fmt.Sprintf("%s × %d", it.Name, it.Quantity), m.styles.Money(it.ItemTotal))
	}
	summary.AddRow("Subtotal", m.styles.Money(totals.Subtotal))
	summary.AddRow("Tax (10%)", m.styles.Money(totals.Tax))
	summary.SetFooter("Total", m.styles.Money(totals.Total))

	left := form.String()
	right := m.styles.Card.Render(summary.View(m.styles))

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Checkout"))
	sb.WriteString("\n")
	if m.width > 0 && lipgloss.Width(left)+lipgloss.Width(right)+2 > m.width {
		sb.WriteString(lipgloss.JoinVertical(lipgloss.Left, left, right))
	} else {
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))
	}
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("tab next field • enter pay • esc back to cart"))
	sb.WriteString("\n")
	return sb.String()
}

func (m PaymentPageModel) receiptView() string {
	r := m.receipt
	ts := r.Timestamp.Local()

	details := NewSimpleTable("").AlignRight(1)
	details.AddRow("Receipt ID", r.ReceiptID)
	details.AddRow("Customer", r.CustomerInfo.Name)
	details.AddRow("Email", r.CustomerInfo.Email)
	details.AddRow("Date", ts.Format("2006-01-02"))
	details.AddRow("Time", ts.Format("15:04:05"))
	details.SetFooter("Total Amount", m.styles.Money(r.Total))

	var sb strings.Builder
	sb.WriteString(m.styles.Success.Render("Payment Successful!"))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("Thank you for your purchase"))
	sb.WriteString("\n\n")
	sb.WriteString(details.View(m.styles))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Button.Render("[enter] Continue Shopping"))
	sb.WriteString("  ")
	sb.WriteString(m.styles.Muted.Render("esc close"))

	return m.styles.Modal.Render(sb.String()) + "\n"
}
