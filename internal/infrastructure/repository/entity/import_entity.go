package entity

import (
	"time"

	"commerce-import-layer/internal/domain"
)

// MongoCredentialDoc represents a shop credential in MongoDB
type MongoCredentialDoc struct {
	ShopID                string            `bson:"shopId"`
	Token                 string            `bson:"token"`
	TokenSecret           string            `bson:"tokenSecret,omitempty"`
	RefreshToken          string            `bson:"refreshToken,omitempty"`
	TokenExpiresAt        *time.Time        `bson:"tokenExpiresAt,omitempty"`
	RefreshTokenExpiresAt *time.Time        `bson:"refreshTokenExpiresAt,omitempty"`
	UID                   string            `bson:"uid,omitempty"`
	ProviderData          map[string]string `bson:"providerData,omitempty"`
	Version               int64             `bson:"version"`
	UpdatedAt             time.Time         `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoCredentialDoc) ToDomain() *domain.Credential {
	return &domain.Credential{
		ShopID:                d.ShopID,
		Token:                 d.Token,
		TokenSecret:           d.TokenSecret,
		RefreshToken:          d.RefreshToken,
		TokenExpiresAt:        d.TokenExpiresAt,
		RefreshTokenExpiresAt: d.RefreshTokenExpiresAt,
		UID:                   d.UID,
		ProviderData:          d.ProviderData,
		Version:               d.Version,
		UpdatedAt:             d.UpdatedAt,
	}
}

// MongoCredentialDocFromDomain converts a domain entity to a MongoDB document
func MongoCredentialDocFromDomain(c *domain.Credential) *MongoCredentialDoc {
	return &MongoCredentialDoc{
		ShopID:                c.ShopID,
		Token:                 c.Token,
		TokenSecret:           c.TokenSecret,
		RefreshToken:          c.RefreshToken,
		TokenExpiresAt:        c.TokenExpiresAt,
		RefreshTokenExpiresAt: c.RefreshTokenExpiresAt,
		UID:                   c.UID,
		ProviderData:          c.ProviderData,
		Version:               c.Version,
		UpdatedAt:             c.UpdatedAt,
	}
}

// MongoShopDoc represents a connected shop in MongoDB
type MongoShopDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Provider     string    `bson:"provider"`
	AccountID    string    `bson:"accountId"`
	ExternalUID  string    `bson:"externalUid"`
	Currency     string    `bson:"currency,omitempty"`
	Active       bool      `bson:"active"`
	PaypalEmails []string  `bson:"paypalEmails,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoShopDoc) ToDomain() *domain.Shop {
	return &domain.Shop{
		ID:           d.ID,
		Name:         d.Name,
		Provider:     domain.Provider(d.Provider),
		AccountID:    d.AccountID,
		ExternalUID:  d.ExternalUID,
		Currency:     d.Currency,
		Active:       d.Active,
		PaypalEmails: d.PaypalEmails,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// MongoShopDocFromDomain converts a domain entity to a MongoDB document
func MongoShopDocFromDomain(s *domain.Shop) *MongoShopDoc {
	return &MongoShopDoc{
		ID:           s.ID,
		Name:         s.Name,
		Provider:     string(s.Provider),
		AccountID:    s.AccountID,
		ExternalUID:  s.ExternalUID,
		Currency:     s.Currency,
		Active:       s.Active,
		PaypalEmails: s.PaypalEmails,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// MongoAccountDoc represents a tenant account in MongoDB
type MongoAccountDoc struct {
	ID            string    `bson:"_id"`
	CurrencyCode  string    `bson:"currencyCode"`
	StartDate     time.Time `bson:"startDate"`
	TimeZone      string    `bson:"timeZone"`
	PrimaryUserID string    `bson:"primaryUserId"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoAccountDoc) ToDomain() *domain.Account {
	return &domain.Account{
		ID:            d.ID,
		CurrencyCode:  d.CurrencyCode,
		StartDate:     d.StartDate,
		TimeZone:      d.TimeZone,
		PrimaryUserID: d.PrimaryUserID,
	}
}

// MongoExternalImportDoc represents an import job in MongoDB
type MongoExternalImportDoc struct {
	ID             string               `bson:"_id"`
	ShopID         string               `bson:"shopId"`
	DateFrom       *time.Time           `bson:"dateFrom,omitempty"`
	DateTo         *time.Time           `bson:"dateTo,omitempty"`
	ResourceIDs    []string             `bson:"resourceIds,omitempty"`
	Resources      []string             `bson:"resources,omitempty"`
	TotalItems     int                  `bson:"totalItems"`
	ProcessedItems int                  `bson:"processedItems"`
	FailedAt       *time.Time           `bson:"failedAt,omitempty"`
	ErrorMessages  *MongoErrorDetailDoc `bson:"errorMessages,omitempty"`
	FinishedAt     *time.Time           `bson:"finishedAt,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt"`
}

// MongoErrorDetailDoc is the failure stamped on an import job
type MongoErrorDetailDoc struct {
	Message   string `bson:"message"`
	Backtrace string `bson:"backtrace,omitempty"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoExternalImportDoc) ToDomain() *domain.ExternalImport {
	ext := &domain.ExternalImport{
		ID:             d.ID,
		ShopID:         d.ShopID,
		DateFrom:       d.DateFrom,
		DateTo:         d.DateTo,
		ResourceIDs:    d.ResourceIDs,
		TotalItems:     d.TotalItems,
		ProcessedItems: d.ProcessedItems,
		FailedAt:       d.FailedAt,
		FinishedAt:     d.FinishedAt,
		CreatedAt:      d.CreatedAt,
	}
	for _, r := range d.Resources {
		ext.Resources = append(ext.Resources, domain.ResourceKind(r))
	}
	if d.ErrorMessages != nil {
		ext.ErrorMessages = &domain.ErrorDetail{
			Message:   d.ErrorMessages.Message,
			Backtrace: d.ErrorMessages.Backtrace,
		}
	}
	return ext
}
