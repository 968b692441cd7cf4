package domain

import "time"

// ExternalImport is a persisted job descriptor for one import run
type ExternalImport struct {
	ID             string         `json:"id" bson:"_id"`
	ShopID         string         `json:"shop_id" bson:"shop_id"`
	DateFrom       *time.Time     `json:"date_from,omitempty" bson:"date_from,omitempty"`
	DateTo         *time.Time     `json:"date_to,omitempty" bson:"date_to,omitempty"`
	ResourceIDs    []string       `json:"resource_ids,omitempty" bson:"resource_ids,omitempty"` // Optional order id filter
	Resources      []ResourceKind `json:"resources,omitempty" bson:"resources,omitempty"`       // Optional subset of resources to import
	TotalItems     int            `json:"total_items" bson:"total_items"`
	ProcessedItems int            `json:"processed_items" bson:"processed_items"`
	FailedAt       *time.Time     `json:"failed_at,omitempty" bson:"failed_at,omitempty"`
	ErrorMessages  *ErrorDetail   `json:"error_messages,omitempty" bson:"error_messages,omitempty"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty" bson:"finished_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at" bson:"created_at"`
}

// ErrorDetail is the serialized failure stored on an ExternalImport
type ErrorDetail struct {
	Message   string `json:"message" bson:"message"`
	Backtrace string `json:"backtrace,omitempty" bson:"backtrace,omitempty"`
}

// HasRange reports whether the job carries an explicit date range
func (e *ExternalImport) HasRange() bool {
	return e != nil && e.DateFrom != nil && e.DateTo != nil
}
