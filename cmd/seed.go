package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-agent/internal/dataload"
	"github.com/sells-group/opportunity-agent/internal/model"
)

var (
	seedFile      string
	seedSQLOut    string
	seedReset     bool
	seedBatchSize int
	seedSkipDB    bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a CSV or XLSX purchase export into the data store",
	Long:  "Reads a customer purchase export, optionally writes an init.sql bootstrap script, and inserts the rows into customer_purchases.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mode := "seed"
		if seedSkipDB {
			if seedSQLOut == "" {
				return eris.New("seed: --skip-db requires --sql")
			}
			mode = "init-sql"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		rows, err := dataload.ReadFile(ctx, seedFile)
		if err != nil {
			return err
		}
		zap.L().Info("seed: export parsed", zap.String("file", seedFile), zap.Int("rows", len(rows)))

		if seedSQLOut != "" {
			if err := writeInitSQLFile(seedSQLOut, rows); err != nil {
				return err
			}
			zap.L().Info("seed: init sql written", zap.String("path", seedSQLOut))
		}
		if seedSkipDB {
			return nil
		}

		return seedStore(ctx, rows)
	},
}

func seedStore(ctx context.Context, rows []model.PurchaseRow) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	n, err := dataload.Seed(ctx, st, rows, dataload.SeedOptions{
		Reset:     seedReset,
		BatchSize: seedBatchSize,
	})
	if err != nil {
		return err
	}
	zap.L().Info("seed: complete", zap.Int64("inserted", n))
	return nil
}

func writeInitSQLFile(path string, rows []model.PurchaseRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "seed: create %s", path)
	}
	if err := dataload.WriteInitSQL(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "seed: close %s", path)
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "purchase export (.csv or .xlsx)")
	seedCmd.Flags().StringVar(&seedSQLOut, "sql", "", "also write an init.sql bootstrap script to this path")
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "truncate customer_purchases before loading")
	seedCmd.Flags().IntVar(&seedBatchSize, "batch-size", dataload.DefaultBatchSize, "rows per insert batch")
	seedCmd.Flags().BoolVar(&seedSkipDB, "skip-db", false, "only write --sql, do not touch the data store")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}
