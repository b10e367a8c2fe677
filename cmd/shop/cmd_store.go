package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"storefront/internal/app"
	"storefront/internal/checkout"
	"storefront/internal/logging"
	"storefront/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// CATALOG AND CART COMMANDS
// =============================================================================

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the catalog",
	RunE:  runProducts,
}

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and edit the session's cart",
	Long: `Show the cart for the current session.

Subcommands:
  add <product-id>        - Add one unit of a product
  set <product-id> <qty>  - Set a line's quantity (must be at least 1)
  rm <product-id>         - Remove a line`,
	RunE: runCartShow,
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Add one unit of a product to the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartAdd,
}

var cartSetCmd = &cobra.Command{
	Use:   "set <product-id> <qty>",
	Short: "Set the quantity of a cart line",
	Args:  cobra.ExactArgs(2),
	RunE:  runCartSet,
}

var cartRemoveCmd = &cobra.Command{
	Use:     "rm <product-id>",
	Aliases: []string{"remove"},
	Short:   "Remove a line from the cart",
	Args:    cobra.ExactArgs(1),
	RunE:    runCartRemove,
}

func registerStoreCommands(root *cobra.Command) {
	cartCmd.AddCommand(cartAddCmd)
	cartCmd.AddCommand(cartSetCmd)
	cartCmd.AddCommand(cartRemoveCmd)

	root.AddCommand(productsCmd)
	root.AddCommand(cartCmd)
}

// withApp opens the App under a timeout and a signal-cancelled context, runs
// fn and releases everything.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer logging.CloseAll()
	defer a.Close()

	return fn(ctx, a)
}

func runProducts(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		products, err := a.Catalog.Load(ctx)
		if err != nil {
			return err
		}
		logger.Debug("Products loaded", zap.Int("count", len(products)))
		printProducts(cmd.OutOrStdout(), products, currency(a))
		return nil
	})
}

func runCartShow(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		c, err := a.Cart.Load(ctx)
		if err != nil {
			return err
		}
		printCart(cmd.OutOrStdout(), a, c)
		return nil
	})
}

func runCartAdd(cmd *cobra.Command, args []string) error {
	productID := args[0]
	return withApp(func(ctx context.Context, a *app.App) error {
		products, err := a.Catalog.Load(ctx)
		if err != nil {
			return err
		}
		var product *types.Product
		for i := range products {
			if products[i].ID == productID {
				product = &products[i]
				break
			}
		}
		if product == nil {
			return fmt.Errorf("unknown product: %s", productID)
		}

		c, err := a.Catalog.AddToCart(ctx, *product)
		if err != nil {
			return err
		}
		logger.Info("Added to cart", zap.String("product", productID), zap.Int("items", c.ItemCount()))
		fmt.Fprintf(cmd.OutOrStdout(), "Item added to cart: %s\n", product.Title)
		printCart(cmd.OutOrStdout(), a, c)
		return nil
	})
}

func runCartSet(cmd *cobra.Command, args []string) error {
	productID := args[0]
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", args[1], err)
	}
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1 (use 'cart rm' to remove)")
	}

	return withApp(func(ctx context.Context, a *app.App) error {
		c, err := a.Cart.Load(ctx)
		if err != nil {
			return err
		}
		if _, ok := c.Find(productID); !ok {
			return fmt.Errorf("product %s is not in the cart", productID)
		}
		if err := a.Cart.SetQuantity(ctx, productID, qty); err != nil {
			return err
		}
		printCart(cmd.OutOrStdout(), a, a.Cart.Snapshot())
		return nil
	})
}

func runCartRemove(cmd *cobra.Command, args []string) error {
	productID := args[0]
	return withApp(func(ctx context.Context, a *app.App) error {
		if _, err := a.Cart.Load(ctx); err != nil {
			return err
		}
		if err := a.Cart.Remove(ctx, productID); err != nil {
			return err
		}
		printCart(cmd.OutOrStdout(), a, a.Cart.Snapshot())
		return nil
	})
}

func currency(a *app.App) string {
	return a.Config.UI.CurrencySymbol()
}

func printProducts(w io.Writer, products []types.Product, sym string) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products available")
		return
	}
	fmt.Fprintf(w, "%-26s %-32s %12s %12s\n", "ID", "TITLE", "PRICE", "WAS")
	for _, p := range products {
		was := ""
		if p.OriginalPrice != nil {
			was = fmt.Sprintf("%s%.2f", sym, *p.OriginalPrice)
		}
		fmt.Fprintf(w, "%-26s %-32s %12s %12s\n", p.ID, p.Title, fmt.Sprintf("%s%.2f", sym, p.Price), was)
	}
}

func printCart(w io.Writer, a *app.App, c types.Cart) {
	sym := currency(a)
	if len(c.Items) == 0 {
		fmt.Fprintln(w, "Your cart is empty")
		return
	}

	fmt.Fprintf(w, "%-26s %-28s %10s %5s %12s\n", "ID", "PRODUCT", "PRICE", "QTY", "TOTAL")
	for _, it := range c.Items {
		fmt.Fprintf(w, "%-26s %-28s %10s %5d %12s\n",
			it.ProductID, it.Name, fmt.Sprintf("%s%.2f", sym, it.Price), it.Quantity, fmt.Sprintf("%s%.2f", sym, it.LineTotal()))
	}

	totals := checkout.Derive(c.Total)
	fmt.Fprintf(w, "\nSubtotal:  %s%.2f\n", sym, totals.Subtotal)
	fmt.Fprintf(w, "Tax (10%%): %s%.2f\n", sym, totals.Tax)
	fmt.Fprintf(w, "Total:     %s%.2f\n", sym, totals.Total)
}
