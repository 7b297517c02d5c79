// Package store provides the customer purchase data store.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-agent/internal/model"
)

// Table is the purchase table name.
const Table = "customer_purchases"

// Columns lists the purchase table columns in insert order.
var Columns = []string{
	"customer_id",
	"product",
	"quantity",
	"unit_price",
	"total_price",
	"purchase_date",
	"customer_name",
	"industry",
	"annual_revenue",
	"employee_count",
	"priority_rating",
	"account_type",
	"location",
}

// Reader holds the read queries the recommendation pipeline issues.
type Reader interface {
	// CustomerPurchases returns every purchase row for customerID ordered by
	// purchase date, then product. No rows is not an error.
	CustomerPurchases(ctx context.Context, customerID string) ([]model.PurchaseRow, error)

	// PeerProducts returns the distinct products bought by customers in
	// industry other than excludeCustomerID, ordered by product.
	PeerProducts(ctx context.Context, industry, excludeCustomerID string) ([]string, error)

	// PurchasePairs returns every (customer, product) pair in the table
	// ordered by customer, purchase date, then product.
	PurchasePairs(ctx context.Context) ([]model.CustomerProduct, error)
}

// Store defines the persistence interface for customer purchase data.
type Store interface {
	Reader

	// Loading
	InsertPurchases(ctx context.Context, rows []model.PurchaseRow) (int64, error)
	Truncate(ctx context.Context) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and tunes a Store implementation.
type Config struct {
	Driver         string
	DatabaseURL    string
	ConnectTimeout time.Duration
	Pool           *PoolConfig
}

// Open creates the Store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "opportunity.db"
		}
		return NewSQLite(dsn)
	case "postgres", "":
		return NewPostgres(ctx, cfg.DatabaseURL, cfg.ConnectTimeout, cfg.Pool)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}

// purchaseValues flattens a row into Columns order.
func purchaseValues(r model.PurchaseRow) []any {
	return []any{
		r.CustomerID,
		r.Product,
		r.Quantity,
		r.UnitPrice,
		r.TotalPrice,
		r.PurchaseDate,
		r.Name,
		r.Industry,
		r.AnnualRevenue,
		r.EmployeeCount,
		r.PriorityRating,
		r.AccountType,
		r.Location,
	}
}

const selectPurchases = `SELECT customer_id, product, quantity, unit_price, total_price, purchase_date,
	customer_name, industry, annual_revenue, employee_count, priority_rating, account_type, location
FROM customer_purchases`
