package config

// UIConfig holds terminal user interface configuration.
type UIConfig struct {
	// Theme is auto, light or dark. Auto inspects COLORFGBG.
	Theme string `yaml:"theme"`

	// Currency is the symbol prefixed to prices.
	Currency string `yaml:"currency,omitempty"`
}

// CurrencySymbol returns the configured symbol, defaulting to the rupee sign used by
// the storefront API's catalog.
func (c UIConfig) CurrencySymbol() string {
	if c.Currency == "" {
		return "₹"
	}
	return c.Currency
}
