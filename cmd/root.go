package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-agent/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "opportunity-agent",
	Short: "Cross-sell and upsell recommendation service",
	Long:  "Analyzes customer purchase history against industry peers and product co-occurrence, scores cross-sell and upsell opportunities, and writes a research report.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
