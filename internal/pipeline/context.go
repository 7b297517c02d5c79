package pipeline

import (
	"context"
	"strings"

	"github.com/sells-group/opportunity-agent/internal/model"
	"github.com/sells-group/opportunity-agent/internal/store"
)

// ContextLoader loads the customer profile and purchase history.
type ContextLoader struct {
	store store.Reader
}

// NewContextLoader creates a ContextLoader.
func NewContextLoader(st store.Reader) *ContextLoader {
	return &ContextLoader{store: st}
}

// Name implements Stage.
func (l *ContextLoader) Name() string { return "customer_context" }

// Run implements Stage. An id with no purchase rows is NotFound.
func (l *ContextLoader) Run(ctx context.Context, st model.PipelineState) model.PipelineState {
	if st.Failed() {
		return st
	}
	if strings.TrimSpace(st.CustomerID) == "" {
		return st.WithError(model.NotFoundError("customer id not found"))
	}

	rows, err := l.store.CustomerPurchases(ctx, st.CustomerID)
	if err != nil {
		return st.WithError(model.DataStoreError("load customer purchases", err))
	}
	if len(rows) == 0 {
		return st.WithError(model.NotFoundError("customer id not found"))
	}

	purchases := make([]model.PurchaseRecord, 0, len(rows))
	for _, r := range rows {
		purchases = append(purchases, r.Purchase())
	}
	return st.WithContext(rows[0].Profile(), purchases)
}
