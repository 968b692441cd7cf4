package domain

import "strings"

// Provider identifies the external platform a shop is connected to
type Provider string

const (
	ProviderAmazon      Provider = "amazon"
	ProviderShopify     Provider = "shopify"
	ProviderEtsy        Provider = "etsy"
	ProviderPayPal      Provider = "paypal"
	ProviderSquare      Provider = "square"
	ProviderSquarespace Provider = "squarespace"
	ProviderWix         Provider = "wix"
	ProviderWooCommerce Provider = "woocommerce"
	ProviderQuickBooks  Provider = "quickbooks"
	ProviderFaire       Provider = "faire"
)

// AllProviders lists every supported provider in display order
var AllProviders = []Provider{
	ProviderAmazon,
	ProviderShopify,
	ProviderEtsy,
	ProviderPayPal,
	ProviderSquare,
	ProviderSquarespace,
	ProviderWix,
	ProviderWooCommerce,
	ProviderQuickBooks,
	ProviderFaire,
}

var providerTitles = map[Provider]string{
	ProviderAmazon:      "Amazon",
	ProviderShopify:     "Shopify",
	ProviderEtsy:        "Etsy",
	ProviderPayPal:      "PayPal",
	ProviderSquare:      "Square",
	ProviderSquarespace: "Squarespace",
	ProviderWix:         "Wix",
	ProviderWooCommerce: "WooCommerce",
	ProviderQuickBooks:  "QuickBooks",
	ProviderFaire:       "Faire",
}

// ParseProvider normalizes a stored provider name
func ParseProvider(s string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	return p, p.IsValid()
}

// IsValid reports whether the provider is one the import engine supports
func (p Provider) IsValid() bool {
	_, ok := providerTitles[p]
	return ok
}

// Title returns the human-readable provider name used in logs and notifications
func (p Provider) Title() string {
	if t, ok := providerTitles[p]; ok {
		return t
	}
	return string(p)
}

func (p Provider) String() string {
	return string(p)
}
