package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-agent/internal/model"
	"github.com/sells-group/opportunity-agent/internal/store"
)

func row(customer, industry, product string, day int) model.PurchaseRow {
	return model.PurchaseRow{
		CustomerProfile: model.CustomerProfile{
			CustomerID:     customer,
			Name:           customer + " Builders",
			Industry:       industry,
			AnnualRevenue:  1200000,
			EmployeeCount:  85,
			Location:       "Denver, CO",
			PriorityRating: "High",
			AccountType:    "Enterprise",
		},
		PurchaseRecord: model.PurchaseRecord{
			Product:      product,
			Quantity:     2,
			UnitPrice:    150,
			TotalPrice:   300,
			PurchaseDate: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		},
	}
}

// scenarioRows is the C1 scenario: C1 owns Drills and Drill Bits; Construction
// peers buy Generators and Safety Gear.
func scenarioRows() []model.PurchaseRow {
	return []model.PurchaseRow{
		row("C1", "Construction", "Drills", 1),
		row("C1", "Construction", "Drill Bits", 2),
		row("C2", "Construction", "Generators", 1),
		row("C2", "Construction", "Drills", 3),
		row("C3", "Construction", "Safety Gear", 4),
		row("C4", "Software", "Workflow Automation", 1),
	}
}

func newScenarioStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	_, err = st.InsertPurchases(ctx, scenarioRows())
	require.NoError(t, err)
	return st
}

// fillJSON returns a mock Run func that decodes payload into the Structured
// out argument.
func fillJSON(t *testing.T, payload string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		require.NoError(t, json.Unmarshal([]byte(payload), args.Get(2)))
	}
}

func profileState(frequent, missing []string) model.PipelineState {
	p := row("C1", "Construction", "", 1).Profile()
	return model.NewPipelineState("run-test", "C1").
		WithContext(p, nil).
		WithPatterns(frequent, missing)
}

func intPtr(n int) *int { return &n }
