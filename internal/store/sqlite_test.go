package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-agent/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func purchase(customer, industry, product string, day int) model.PurchaseRow {
	return model.PurchaseRow{
		CustomerProfile: model.CustomerProfile{
			CustomerID:     customer,
			Name:           customer + " Inc",
			Industry:       industry,
			AnnualRevenue:  1500000,
			EmployeeCount:  40,
			Location:       "Austin, TX",
			PriorityRating: "Medium",
			AccountType:    "SMB",
		},
		PurchaseRecord: model.PurchaseRecord{
			Product:      product,
			Quantity:     1,
			UnitPrice:    10,
			TotalPrice:   10,
			PurchaseDate: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		},
	}
}

func seedSQLite(t *testing.T, st *SQLiteStore) {
	t.Helper()
	n, err := st.InsertPurchases(context.Background(), []model.PurchaseRow{
		purchase("C1", "Construction", "Drill Bits", 2),
		purchase("C1", "Construction", "Drills", 1),
		purchase("C2", "Construction", "Generators", 1),
		purchase("C2", "Construction", "Drills", 2),
		purchase("C3", "Construction", "Safety Gear", 1),
		purchase("C4", "Software", "Workflow Automation", 1),
	})
	require.NoError(t, err)
	require.Equal(t, int64(6), n)
}

func TestSQLite_CustomerPurchases(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedSQLite(t, st)

	got, err := st.CustomerPurchases(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Drills", got[0].Product, "ordered by purchase date")
	assert.Equal(t, "Drill Bits", got[1].Product)
	assert.Equal(t, "C1 Inc", got[0].Name)
	assert.Equal(t, 1500000.0, got[0].AnnualRevenue)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got[1].PurchaseDate)
}

func TestSQLite_CustomerPurchases_Unknown(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedSQLite(t, st)

	got, err := st.CustomerPurchases(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_PeerProducts(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedSQLite(t, st)

	got, err := st.PeerProducts(context.Background(), "Construction", "C1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Drills", "Generators", "Safety Gear"}, got)
}

func TestSQLite_PurchasePairs(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedSQLite(t, st)

	got, err := st.PurchasePairs(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Equal(t, model.CustomerProduct{CustomerID: "C1", Product: "Drills"}, got[0])
	assert.Equal(t, model.CustomerProduct{CustomerID: "C1", Product: "Drill Bits"}, got[1])
	assert.Equal(t, model.CustomerProduct{CustomerID: "C4", Product: "Workflow Automation"}, got[5])
}

func TestSQLite_Truncate(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedSQLite(t, st)
	ctx := context.Background()

	require.NoError(t, st.Truncate(ctx))
	got, err := st.PurchasePairs(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_InsertPurchases_RejectsBadQuantity(t *testing.T) {
	st := newTestSQLiteStore(t)
	row := purchase("C9", "Retail", "Drills", 1)
	row.Quantity = 0

	_, err := st.InsertPurchases(context.Background(), []model.PurchaseRow{row})
	require.Error(t, err)

	got, err := st.CustomerPurchases(context.Background(), "C9")
	require.NoError(t, err)
	assert.Empty(t, got, "failed insert must roll back")
}

func TestSQLite_PingAndMigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Ping(ctx))
	require.NoError(t, st.Migrate(ctx))
}

func TestOpen_SQLite(t *testing.T) {
	st, err := Open(context.Background(), Config{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	assert.NoError(t, st.Ping(context.Background()))
}
