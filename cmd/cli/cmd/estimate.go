package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/graph-analytics/internal/algorithm"
	"github.com/graph-analytics/pkg/model"
)

var (
	// Estimate command flags
	estimateAlgorithm     string
	estimateNodes         int64
	estimateRelationships int64
	estimateJSON          bool
	estimateReq           model.RunRequest
)

// estimateCmd represents the estimate command
var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the memory a run needs",
	Long: `Estimate the bytes the loaded graph and the algorithm state need for a
graph of the given size. Without --algorithm every algorithm is listed.`,
	RunE: runEstimate,
}

func init() {
	rootCmd.AddCommand(estimateCmd)

	binName := BinName()
	estimateCmd.Example = `  # Every algorithm on 10M nodes and 100M relationships
  ` + binName + ` estimate --nodes 10000000 --relationships 100000000

  # Walks with a larger buffer
  ` + binName + ` estimate -a randomwalk --nodes 1000000 --relationships 5000000 --buffer-size 10000`

	f := estimateCmd.Flags()
	f.StringVarP(&estimateAlgorithm, "algorithm", "a", "", "Algorithm to estimate (default all)")
	f.Int64Var(&estimateNodes, "nodes", 0, "Node count (required)")
	f.Int64Var(&estimateRelationships, "relationships", 0, "Stored relationship count, twice the edges of an undirected graph")
	f.BoolVar(&estimateJSON, "json", false, "Print JSON")
	f.IntVar(&estimateReq.Concurrency, "concurrency", 0, "Worker count")
	f.IntVar(&estimateReq.Options.WalkLength, "walk-length", 0, "Nodes per walk")
	f.IntVar(&estimateReq.Options.BufferSize, "buffer-size", 0, "Finished walks buffered ahead of the export")

	estimateCmd.MarkFlagRequired("nodes")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	kinds := model.Kinds()
	if estimateAlgorithm != "" {
		kind, err := model.ParseAlgorithmKind(estimateAlgorithm)
		if err != nil {
			return err
		}
		kinds = []model.AlgorithmKind{kind}
	}

	req := estimateReq
	if req.Concurrency == 0 {
		req.Concurrency = appConfig.Engine.Concurrency
	}
	if req.Options.WalkLength == 0 {
		req.Options.WalkLength = appConfig.Sampling.WalkLength
	}
	if req.Options.BufferSize == 0 {
		req.Options.BufferSize = appConfig.Sampling.BufferSize
	}

	estimates := make([]algorithm.MemoryEstimate, 0, len(kinds))
	for _, kind := range kinds {
		req.Kind = kind
		e, err := algorithm.EstimateMemory(&req, estimateNodes, estimateRelationships)
		if err != nil {
			return err
		}
		estimates = append(estimates, e)
	}

	if estimateJSON {
		return printJSON(cmd, estimates)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ALGORITHM\tGRAPH\tALGORITHM STATE\tTOTAL")
	for _, e := range estimates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Kind, formatBytes(e.Graph), formatBytes(e.Algorithm), formatBytes(e.Total()))
	}
	return tw.Flush()
}

// formatBytes renders n with a binary unit, e.g. 1.5 GiB.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
