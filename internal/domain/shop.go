package domain

import "time"

// Shop represents a merchant's connection to one external provider
type Shop struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Provider     Provider  `json:"provider" bson:"provider"`
	AccountID    string    `json:"account_id" bson:"account_id"`
	ExternalUID  string    `json:"external_uid" bson:"external_uid"` // Vendor shop id, domain, company id or seller id
	Currency     string    `json:"currency" bson:"currency"`         // Cached provider-native currency
	Active       bool      `json:"active" bson:"active"`
	PaypalEmails []string  `json:"paypal_emails,omitempty" bson:"paypal_emails,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Account is the tenant owning one or more shops
type Account struct {
	ID            string    `json:"id" bson:"_id"`
	CurrencyCode  string    `json:"currency_code" bson:"currency_code"` // Base reporting currency
	StartDate     time.Time `json:"start_date" bson:"start_date"`       // Reporting start date
	TimeZone      string    `json:"time_zone" bson:"time_zone"`
	PrimaryUserID string    `json:"primary_user_id" bson:"primary_user_id"`
}

// Location returns the account's time zone, falling back to UTC
func (a *Account) Location() *time.Location {
	if a == nil || a.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
