package dataload

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-agent/internal/model"
	"github.com/sells-group/opportunity-agent/internal/store"
)

// DefaultBatchSize is the number of rows inserted per store call.
const DefaultBatchSize = 1000

// SeedOptions controls Seed.
type SeedOptions struct {
	// Reset truncates the table before inserting.
	Reset     bool
	BatchSize int
}

// Seed migrates st and inserts rows in batches. It returns the number of rows
// inserted.
func Seed(ctx context.Context, st store.Store, rows []model.PurchaseRow, opts SeedOptions) (int64, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	log := zap.L().With(zap.Int("rows", len(rows)), zap.Bool("reset", opts.Reset))

	if err := st.Migrate(ctx); err != nil {
		return 0, eris.Wrap(err, "dataload: migrate")
	}
	if opts.Reset {
		if err := st.Truncate(ctx); err != nil {
			return 0, eris.Wrap(err, "dataload: truncate")
		}
		log.Info("dataload: table truncated")
	}

	var total int64
	for start := 0; start < len(rows); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(rows))
		n, err := st.InsertPurchases(ctx, rows[start:end])
		if err != nil {
			return total, eris.Wrapf(err, "dataload: insert rows %d-%d", start, end-1)
		}
		total += n
		log.Debug("dataload: batch inserted", zap.Int("start", start), zap.Int64("inserted", n))
	}

	log.Info("dataload: seed complete", zap.Int64("inserted", total))
	return total, nil
}
