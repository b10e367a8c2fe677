package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"storefront/internal/app"
	"storefront/internal/payment"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// CHECKOUT AND PAYMENT COMMANDS
// =============================================================================

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Check out the cart and save the order for payment",
	Long: `Submits the session's cart to the storefront and saves the order snapshot
in the workspace store. Complete it with 'shop pay'.`,
	RunE: runCheckout,
}

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Pay for the saved checkout",
	Long: `Validates the card details, runs the payment and prints the receipt.

Example:
  shop pay --name "Jane Doe" --email jane@example.com \
    --card 4111111111111111 --expiry 12/27 --cvv 123`,
	RunE: runPay,
}

var (
	payName   string
	payEmail  string
	payCard   string
	payExpiry string
	payCVV    string
	payJSON   bool
)

func registerCheckoutCommands(root *cobra.Command) {
	payCmd.Flags().StringVar(&payName, "name", "", "Cardholder name")
	payCmd.Flags().StringVar(&payEmail, "email", "", "Email for the receipt")
	payCmd.Flags().StringVar(&payCard, "card", "", "16-digit card number")
	payCmd.Flags().StringVar(&payExpiry, "expiry", "", "Expiry as MM/YY")
	payCmd.Flags().StringVar(&payCVV, "cvv", "", "3-digit CVV")
	payCmd.Flags().BoolVar(&payJSON, "json", false, "Print the receipt as JSON")

	root.AddCommand(checkoutCmd)
	root.AddCommand(payCmd)
}

func runCheckout(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		c, err := a.Cart.Load(ctx)
		if err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return fmt.Errorf("cart is empty")
		}

		snap, intent, err := a.Cart.Checkout(ctx)
		if err != nil {
			return err
		}
		logger.Info("Checkout saved", zap.String("receipt", snap.ReceiptID), zap.String("next", string(intent.Route)))

		sym := currency(a)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Order %s: %d items\n", snap.ReceiptID, snap.TotalItems)
		fmt.Fprintf(out, "Subtotal:  %s%.2f\n", sym, snap.Subtotal)
		fmt.Fprintf(out, "Tax (10%%): %s%.2f\n", sym, snap.Tax)
		fmt.Fprintf(out, "Total:     %s%.2f\n", sym, snap.Total)
		fmt.Fprintln(out, "Run 'shop pay' to complete payment.")
		return nil
	})
}

func runPay(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		snap, err := a.Payment.LoadSnapshot()
		if err != nil {
			return err
		}

		inputs := map[payment.Field]string{
			payment.FieldName:       payName,
			payment.FieldEmail:      payEmail,
			payment.FieldCardNumber: payCard,
			payment.FieldExpiry:     payExpiry,
			payment.FieldCVV:        payCVV,
		}
		for _, f := range payment.Fields {
			a.Payment.UpdateField(f, inputs[f])
		}

		receipt, err := a.Payment.Submit(ctx, snap)
		if err != nil {
			var invalid *payment.ValidationError
			if errors.As(err, &invalid) {
				for _, f := range invalid.Errors.Fields() {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", f, invalid.Errors[f])
				}
			}
			return err
		}
		logger.Info("Payment complete", zap.String("receipt", receipt.ReceiptID), zap.Float64("total", receipt.Total))

		if payJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(receipt)
		}
		printReceipt(cmd.OutOrStdout(), receipt, currency(a))
		return nil
	})
}

func printReceipt(w io.Writer, r payment.Receipt, sym string) {
	ts := r.Timestamp.Local()
	fmt.Fprintln(w, "Payment Successful!")
	fmt.Fprintf(w, "Receipt ID:   %s\n", r.ReceiptID)
	fmt.Fprintf(w, "Customer:     %s <%s>\n", r.CustomerInfo.Name, r.CustomerInfo.Email)
	fmt.Fprintf(w, "Date:         %s\n", ts.Format("2006-01-02 15:04:05"))
	for _, it := range r.Items {
		fmt.Fprintf(w, "  %s × %d  %s%.2f\n", it.Name, it.Quantity, sym, it.ItemTotal)
	}
	fmt.Fprintf(w, "Total Amount: %s%.2f\n", sym, r.Total)
}
