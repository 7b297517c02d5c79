package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/opportunity-agent/internal/model"
)

// dateLayout is the purchase_date storage format in SQLite.
const dateLayout = "2006-01-02"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS customer_purchases (
	customer_id     TEXT    NOT NULL,
	product         TEXT    NOT NULL,
	quantity        INTEGER NOT NULL CHECK (quantity > 0),
	unit_price      REAL    NOT NULL DEFAULT 0,
	total_price     REAL    NOT NULL DEFAULT 0,
	purchase_date   TEXT    NOT NULL,
	customer_name   TEXT    NOT NULL DEFAULT '',
	industry        TEXT    NOT NULL DEFAULT '',
	annual_revenue  REAL    NOT NULL DEFAULT 0 CHECK (annual_revenue >= 0),
	employee_count  INTEGER NOT NULL DEFAULT 0 CHECK (employee_count >= 0),
	priority_rating TEXT    NOT NULL DEFAULT '',
	account_type    TEXT    NOT NULL DEFAULT '',
	location        TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_customer_purchases_customer_id ON customer_purchases(customer_id);
CREATE INDEX IF NOT EXISTS idx_customer_purchases_industry ON customer_purchases(industry);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CustomerPurchases(ctx context.Context, customerID string) ([]model.PurchaseRow, error) {
	rows, err := s.db.QueryContext(ctx,
		selectPurchases+` WHERE customer_id = ? ORDER BY purchase_date, product`,
		customerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: customer purchases %s", customerID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.PurchaseRow
	for rows.Next() {
		var r model.PurchaseRow
		var date string
		if err := rows.Scan(
			&r.CustomerID, &r.Product, &r.Quantity, &r.UnitPrice, &r.TotalPrice, &date,
			&r.Name, &r.Industry, &r.AnnualRevenue, &r.EmployeeCount, &r.PriorityRating, &r.AccountType, &r.Location,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan purchase")
		}
		r.PurchaseDate, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse purchase date %q", date)
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate purchases")
}

func (s *SQLiteStore) PeerProducts(ctx context.Context, industry, excludeCustomerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT product FROM customer_purchases WHERE industry = ? AND customer_id <> ? ORDER BY product`,
		industry, excludeCustomerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: peer products %s", industry)
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan peer product")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate peer products")
}

func (s *SQLiteStore) PurchasePairs(ctx context.Context) ([]model.CustomerProduct, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT customer_id, product FROM customer_purchases ORDER BY customer_id, purchase_date, product`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: purchase pairs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CustomerProduct
	for rows.Next() {
		var cp model.CustomerProduct
		if err := rows.Scan(&cp.CustomerID, &cp.Product); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan purchase pair")
		}
		out = append(out, cp)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate purchase pairs")
}

// InsertPurchases inserts rows in a single transaction.
func (s *SQLiteStore) InsertPurchases(ctx context.Context, rows []model.PurchaseRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO customer_purchases (customer_id, product, quantity, unit_price, total_price, purchase_date,
			customer_name, industry, annual_revenue, employee_count, priority_rating, account_type, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, r := range rows {
		values := purchaseValues(r)
		values[5] = r.PurchaseDate.Format(dateLayout)
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert purchase %s/%s", r.CustomerID, r.Product)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert")
	}
	return n, nil
}

func (s *SQLiteStore) Truncate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM customer_purchases`)
	return eris.Wrap(err, "sqlite: truncate")
}
