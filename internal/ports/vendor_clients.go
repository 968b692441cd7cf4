package ports

import (
	"context"
	"net/url"
	"time"

	"commerce-import-layer/internal/domain"
)

// TokenRefresher exchanges a refresh token for a new grant
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenGrant, error)
}

// RoleCredentials are temporary AWS credentials from an assumed role
type RoleCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expires         time.Time
}

// RoleAssumer obtains fresh role credentials for Amazon SP-API calls
type RoleAssumer interface {
	AssumeRole(ctx context.Context) (*RoleCredentials, error)
}

// AmazonSession carries everything an SP-API call needs
type AmazonSession struct {
	RefreshToken string
	Role         RoleCredentials
}

// AmazonMarketplace is one marketplace the seller participates in
type AmazonMarketplace struct {
	ID                  string
	DefaultCurrencyCode string
}

// AmazonReportRequest asks SP-API to generate a report
type AmazonReportRequest struct {
	ReportType     string
	MarketplaceIDs []string
	DataStartTime  *time.Time
	DataEndTime    *time.Time
}

// AmazonReport is the processing state of a requested report
type AmazonReport struct {
	ProcessingStatus string
	DocumentID       string
}

// AmazonAPI defines the SP-API operations the importer uses
type AmazonAPI interface {
	MarketplaceParticipations(ctx context.Context, session AmazonSession) ([]AmazonMarketplace, error)
	GetOrders(ctx context.Context, session AmazonSession, marketplaceIDs []string, createdAfter, createdBefore time.Time, nextToken string) ([]any, string, error)
	ListFinancialEvents(ctx context.Context, session AmazonSession, postedAfter, postedBefore time.Time, nextToken string) ([]any, string, error)
	CreateReport(ctx context.Context, session AmazonSession, req AmazonReportRequest) (string, error)
	GetReport(ctx context.Context, session AmazonSession, reportID string) (*AmazonReport, error)
	// DownloadReport returns the rows of a tab-separated report document keyed by header
	DownloadReport(ctx context.Context, session AmazonSession, documentID string) ([]map[string]string, error)
}

// EtsyShop is the Etsy shop owned by the connected user
type EtsyShop struct {
	ShopID       int64
	CurrencyCode string
}

// EtsyAPI defines the Etsy v3 operations the importer uses
type EtsyAPI interface {
	GetShopByOwner(ctx context.Context, token string, userID string) (*EtsyShop, error)
	Ping(ctx context.Context, token string) error
	GetListingsByShop(ctx context.Context, token string, shopID int64, state string, limit, offset int) ([]any, error)
	GetShopReceipts(ctx context.Context, token string, shopID int64, minCreated, maxCreated time.Time, limit, offset int) ([]any, error)
	GetLedgerEntries(ctx context.Context, token string, shopID int64, minCreated, maxCreated time.Time, limit, offset int) ([]any, error)
	// ExchangeLegacyToken trades an OAuth1 token for an OAuth2 grant
	ExchangeLegacyToken(ctx context.Context, legacyToken string) (*domain.TokenGrant, error)
}

// PayPalAPI defines the PayPal REST operations the importer uses
type PayPalAPI interface {
	UserInfoEmails(ctx context.Context, token string) ([]string, error)
	// SearchInvoices returns one page and whether more pages follow
	SearchInvoices(ctx context.Context, token string, begin, end time.Time, page, pageSize int) ([]any, bool, error)
}

// SquareLocation is a Square business location
type SquareLocation struct {
	ID       string
	Currency string
}

// SquareCatalogObject is the subset of a catalog object the importer resolves names from
type SquareCatalogObject struct {
	Type                string
	CategoryName        string
	ImageURL            string
	ItemOptionName      string
	ItemOptionValueName string
}

// SquareAPI defines the Square operations the importer uses
type SquareAPI interface {
	ListLocations(ctx context.Context, token string) ([]SquareLocation, error)
	SearchOrders(ctx context.Context, token string, locationIDs []string, start, end time.Time, cursor string) ([]any, string, error)
	RetrieveCatalogObject(ctx context.Context, token string, objectID string) (*SquareCatalogObject, error)
	// ObtainMigrationToken converts a legacy long-lived token into a refreshable grant
	ObtainMigrationToken(ctx context.Context, legacyToken string) (*domain.TokenGrant, error)
}

// SquarespaceWebsite is the connected Squarespace site
type SquarespaceWebsite struct {
	ID       string
	Currency string
}

// SquarespaceAPI defines the Squarespace Commerce operations the importer uses
type SquarespaceAPI interface {
	Website(ctx context.Context, token string) (*SquarespaceWebsite, error)
	ListOrders(ctx context.Context, token string, modifiedAfter, modifiedBefore time.Time, cursor string) ([]any, string, error)
	ListProducts(ctx context.Context, token string, modifiedAfter, modifiedBefore time.Time, cursor string) ([]any, string, error)
	ListTransactions(ctx context.Context, token string, cursor string) ([]any, string, error)
}

// WixProperties are the site properties of a Wix shop
type WixProperties struct {
	PaymentCurrency string
}

// WixOrder is an order with the payment status the importer filters on
type WixOrder struct {
	ID            string
	PaymentStatus string
	Payload       any
}

// WixAPI defines the Wix operations the importer uses
type WixAPI interface {
	GetProperties(ctx context.Context, token string) (*WixProperties, error)
	QueryOrders(ctx context.Context, token string, start, end time.Time, limit, offset int) ([]WixOrder, error)
	QueryProducts(ctx context.Context, token string, limit, offset int) ([]any, error)
}

// WooCredentials address one WooCommerce store
type WooCredentials struct {
	StoreURL       string
	ConsumerKey    string
	ConsumerSecret string
}

// WooSystemStatus is the answer of the system_status endpoint
type WooSystemStatus struct {
	Status   int
	Currency string
	Body     string
}

// WooListResponse is one page of a WooCommerce listing
type WooListResponse struct {
	Status  int
	Message string
	Items   []any
	Total   int // x-wp-total
}

// WooCommerceAPI defines the WooCommerce REST operations the importer uses
type WooCommerceAPI interface {
	SystemStatus(ctx context.Context, creds WooCredentials) (*WooSystemStatus, error)
	List(ctx context.Context, creds WooCredentials, endpoint string, params url.Values) (*WooListResponse, error)
}

// QuickBooksAPI defines the QuickBooks Online query operation
type QuickBooksAPI interface {
	Query(ctx context.Context, companyID string, token string, query string, startPosition, maxResults int) ([]any, error)
}

// FaireBrand is the brand behind a Faire connection
type FaireBrand struct {
	ID       string
	Name     string
	Currency string
}

// FaireAPI defines the Faire operations the importer uses
type FaireAPI interface {
	Brand(ctx context.Context, token string) (*FaireBrand, error)
	ListOrders(ctx context.Context, token string, updatedAtMin time.Time, page, limit int) ([]any, error)
	ListProducts(ctx context.Context, token string, page, limit int) ([]any, error)
}
