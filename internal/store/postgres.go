package store

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-agent/internal/db"
	"github.com/sells-group/opportunity-agent/internal/model"
)

// DefaultConnectTimeout bounds connection establishment when none is configured.
const DefaultConnectTimeout = 10 * time.Second

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool and verifies the
// connection with a ping.
func NewPostgres(ctx context.Context, connString string, connectTimeout time.Duration, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute
	pgxCfg.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS customer_purchases (
	customer_id     VARCHAR(50)  NOT NULL,
	product         VARCHAR(100) NOT NULL,
	quantity        INTEGER      NOT NULL CHECK (quantity > 0),
	unit_price      NUMERIC      NOT NULL DEFAULT 0,
	total_price     NUMERIC      NOT NULL DEFAULT 0,
	purchase_date   DATE         NOT NULL,
	customer_name   VARCHAR(255) NOT NULL DEFAULT '',
	industry        VARCHAR(100) NOT NULL DEFAULT '',
	annual_revenue  NUMERIC      NOT NULL DEFAULT 0 CHECK (annual_revenue >= 0),
	employee_count  INTEGER      NOT NULL DEFAULT 0 CHECK (employee_count >= 0),
	priority_rating VARCHAR(50)  NOT NULL DEFAULT '',
	account_type    VARCHAR(50)  NOT NULL DEFAULT '',
	location        VARCHAR(255) NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_customer_purchases_customer_id ON customer_purchases(customer_id);
CREATE INDEX IF NOT EXISTS idx_customer_purchases_industry ON customer_purchases(industry);
`

// PostgresSchema returns the Postgres DDL for the purchase table.
func PostgresSchema() string {
	return strings.TrimSpace(postgresMigration)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CustomerPurchases(ctx context.Context, customerID string) ([]model.PurchaseRow, error) {
	rows, err := s.pool.Query(ctx,
		selectPurchases+` WHERE customer_id = $1 ORDER BY purchase_date, product`,
		customerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: customer purchases %s", customerID)
	}
	defer rows.Close()

	var out []model.PurchaseRow
	for rows.Next() {
		var r model.PurchaseRow
		if err := rows.Scan(
			&r.CustomerID, &r.Product, &r.Quantity, &r.UnitPrice, &r.TotalPrice, &r.PurchaseDate,
			&r.Name, &r.Industry, &r.AnnualRevenue, &r.EmployeeCount, &r.PriorityRating, &r.AccountType, &r.Location,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan purchase")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate purchases")
}

func (s *PostgresStore) PeerProducts(ctx context.Context, industry, excludeCustomerID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT product FROM customer_purchases WHERE industry = $1 AND customer_id <> $2 ORDER BY product`,
		industry, excludeCustomerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: peer products %s", industry)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "postgres: scan peer product")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate peer products")
}

func (s *PostgresStore) PurchasePairs(ctx context.Context) ([]model.CustomerProduct, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT customer_id, product FROM customer_purchases ORDER BY customer_id, purchase_date, product`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: purchase pairs")
	}
	defer rows.Close()

	var out []model.CustomerProduct
	for rows.Next() {
		var cp model.CustomerProduct
		if err := rows.Scan(&cp.CustomerID, &cp.Product); err != nil {
			return nil, eris.Wrap(err, "postgres: scan purchase pair")
		}
		out = append(out, cp)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate purchase pairs")
}

// InsertPurchases bulk-loads rows with COPY.
func (s *PostgresStore) InsertPurchases(ctx context.Context, rows []model.PurchaseRow) (int64, error) {
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, purchaseValues(r))
	}
	n, err := db.CopyFrom(ctx, s.pool, Table, Columns, values)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert purchases")
	}
	return n, nil
}

func (s *PostgresStore) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE TABLE `+pgx.Identifier{Table}.Sanitize())
	return eris.Wrap(err, "postgres: truncate")
}
