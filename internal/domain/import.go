package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ImportType controls date-window granularity
type ImportType string

const (
	ImportTypeFull   ImportType = ""
	ImportTypeHourly ImportType = "hourly"
)

// ResourceKind names a fetchable resource on a provider
type ResourceKind string

const (
	ResourceOrders          ResourceKind = "orders"
	ResourceListings        ResourceKind = "listings"
	ResourcePayments        ResourceKind = "payments"
	ResourceFinancialEvents ResourceKind = "financial_events"
	ResourceShipments       ResourceKind = "shipments"
	ResourceInvoices        ResourceKind = "invoices"
	ResourceAccounts        ResourceKind = "accounts"
	ResourceTransactions    ResourceKind = "transactions"
)

// Cursor is an opaque pagination token. The empty cursor starts a listing.
type Cursor string

// Page is one page of provider records
type Page struct {
	Items []any
	Next  Cursor // Empty when the listing is exhausted
}

// HasMore reports whether another page can be fetched
func (p *Page) HasMore() bool {
	return p != nil && p.Next != ""
}

// Result is what a finished import run reports to its caller
type Result struct {
	Success         bool     `json:"success"`
	ConversionNotes []string `json:"conversion_notes"`
}

// Exchange is the exchange-rate service's answer for one conversion
type Exchange struct {
	ConvertedAmount decimal.Decimal
	ConversionNote  string
}

// ConversionNotes is the append-only audit log of currency conversions in one run
type ConversionNotes struct {
	mu      sync.Mutex
	entries []string
}

// Append records "{note}: {detail}"
func (n *ConversionNotes) Append(note, detail string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, fmt.Sprintf("%s: %s", note, detail))
}

// Entries returns a snapshot of the log in insertion order
func (n *ConversionNotes) Entries() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.entries))
	copy(out, n.entries)
	return out
}

// Len returns the number of recorded conversions
func (n *ConversionNotes) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}

// Notification is a user-facing message delivered through the notification sink
type Notification struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	LinkText  string    `json:"link_text"`
	CreatedAt time.Time `json:"created_at"`
}

// LineItem is the provider-neutral view of an order line used to build ghost products
type LineItem struct {
	Name               string
	TotalPrice         string
	Tax                string
	TaxIncludedInPrice bool
	Quantity           int
	Currency           string // Optional override of the shop currency
}

// GhostProduct is a placeholder for a product that no longer exists upstream
type GhostProduct struct {
	Name          string          `json:"name"`
	State         string          `json:"state"`
	BaseUnitPrice decimal.Decimal `json:"base_unit_price"`
	QuantityType  string          `json:"quantity_type"`
}
