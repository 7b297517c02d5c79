package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/opportunity-agent/internal/api"
	"github.com/sells-group/opportunity-agent/internal/model"
)

var recommendFailOnError bool

var recommendCmd = &cobra.Command{
	Use:   "recommend <customer_id>",
	Short: "Run the recommendation pipeline for one customer and print JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "recommend")
		if err != nil {
			return err
		}
		defer env.Close()

		state := env.Pipeline.Run(ctx, args[0])
		if err := writeRecommendation(cmd.OutOrStdout(), state); err != nil {
			return err
		}
		if state.Failed() && recommendFailOnError {
			return eris.Wrap(state.Err, "recommend")
		}
		return nil
	},
}

// writeRecommendation prints the API response shape for state.
func writeRecommendation(w io.Writer, state model.PipelineState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(api.NewResponse(state)), "write recommendation")
}

func init() {
	recommendCmd.Flags().BoolVar(&recommendFailOnError, "fail-on-error", true, "exit non-zero when the pipeline reports an error")
	rootCmd.AddCommand(recommendCmd)
}
