package model

import "time"

// CustomerProfile holds the account attributes shared by every purchase row of
// one customer.
type CustomerProfile struct {
	CustomerID     string  `json:"customer_id"`
	Name           string  `json:"customer_name"`
	Industry       string  `json:"industry"`
	AnnualRevenue  float64 `json:"annual_revenue_usd"`
	EmployeeCount  int     `json:"number_of_employees"`
	Location       string  `json:"location"`
	PriorityRating string  `json:"customer_priority_rating"`
	AccountType    string  `json:"account_type"`
}

// PurchaseRecord is a single line of a customer's purchase history.
type PurchaseRecord struct {
	Product      string    `json:"product"`
	Quantity     int       `json:"quantity"`
	UnitPrice    float64   `json:"unit_price_usd"`
	TotalPrice   float64   `json:"total_price_usd"`
	PurchaseDate time.Time `json:"purchase_date"`
}

// PurchaseRow is one row of the customer_purchases table: profile columns are
// denormalized onto every purchase.
type PurchaseRow struct {
	CustomerProfile
	PurchaseRecord
}

// Profile returns the profile columns of the row.
func (r PurchaseRow) Profile() CustomerProfile {
	return r.CustomerProfile
}

// Purchase returns the purchase columns of the row.
func (r PurchaseRow) Purchase() PurchaseRecord {
	return r.PurchaseRecord
}

// CustomerProduct pairs a customer with one product they purchased.
type CustomerProduct struct {
	CustomerID string `json:"customer_id"`
	Product    string `json:"product"`
}
