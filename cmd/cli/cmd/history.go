package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/graph-analytics/internal/repository"
	"github.com/graph-analytics/pkg/model"
)

var (
	// History command flags
	historyAlgorithm string
	historyRunID     string
	historyLimit     int
	historySummary   bool
	historyJSON      bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long: `List the runs recorded in the configured database, newest first.

With --run-id the full record of one run is shown, including its
statistics and error. With --summary the totals per algorithm follow
the list.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	binName := BinName()
	historyCmd.Example = `  # The 20 most recent runs
  ` + binName + ` history

  # Label propagation runs only, with per-algorithm totals
  ` + binName + ` history -a labelprop --summary

  # One run as JSON
  ` + binName + ` history --run-id 3f1c... --json`

	historyCmd.Flags().StringVarP(&historyAlgorithm, "algorithm", "a", "", "Only list runs of this algorithm")
	historyCmd.Flags().StringVar(&historyRunID, "run-id", "", "Show one run")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", repository.DefaultListLimit, "Maximum number of runs to list")
	historyCmd.Flags().BoolVar(&historySummary, "summary", false, "Print totals per algorithm")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if !appConfig.Database.Enabled() {
		return fmt.Errorf("run history is disabled (database type %q)", appConfig.Database.Type)
	}

	repos, err := repository.Open(ctx, &appConfig.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repos.Close()

	if historyRunID != "" {
		record, err := repos.Runs.GetByRunID(ctx, historyRunID)
		if err != nil {
			return err
		}
		if historyJSON {
			return printJSON(cmd, newRunDetail(record))
		}
		printRecord(cmd.OutOrStdout(), record)
		return nil
	}

	var records []*repository.RunRecord
	if historyAlgorithm != "" {
		kind, err := model.ParseAlgorithmKind(historyAlgorithm)
		if err != nil {
			return err
		}
		records, err = repos.Runs.ListByAlgorithm(ctx, kind, historyLimit)
		if err != nil {
			return err
		}
	} else {
		records, err = repos.Runs.ListRecent(ctx, historyLimit)
		if err != nil {
			return err
		}
	}

	var summaries []repository.AlgorithmSummary
	if historySummary {
		summaries, err = repos.Summary.SummarizeByAlgorithm(ctx)
		if err != nil {
			return err
		}
	}

	if historyJSON {
		views := make([]model.RunRecordView, len(records))
		for i, r := range records {
			views[i] = r.ToView()
		}
		out := map[string]interface{}{"runs": views}
		if historySummary {
			out["summary"] = summaries
		}
		return printJSON(cmd, out)
	}

	w := cmd.OutOrStdout()
	printRuns(w, records)
	if historySummary {
		fmt.Fprintln(w)
		printSummaries(w, summaries)
	}
	return nil
}

func printRuns(w io.Writer, records []*repository.RunRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tALGORITHM\tSTATUS\tNODES\tITERATIONS\tDURATION\tCREATED")
	for _, r := range records {
		v := r.ToView()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%v\t%s\n",
			v.RunID, v.Algorithm, v.Status, v.NodeCount, v.RanIterations,
			v.Duration, v.CreatedAt.Local().Format(time.DateTime))
	}
	tw.Flush()
}

func printSummaries(w io.Writer, summaries []repository.AlgorithmSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ALGORITHM\tRUNS\tFAILED\tAVG DURATION\tMAX NODES")
	for _, s := range summaries {
		avg := time.Duration(s.AvgDurationMs * float64(time.Millisecond)).Round(time.Millisecond)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%v\t%d\n", s.Algorithm, s.Runs, s.Failed, avg, s.MaxNodeCount)
	}
	tw.Flush()
}

// runDetail is the JSON form of one run.
type runDetail struct {
	model.RunRecordView
	RelationshipCount int64              `json:"relationship_count"`
	Fingerprint       string             `json:"fingerprint"`
	ResultKey         string             `json:"result_key,omitempty"`
	Error             string             `json:"error,omitempty"`
	Stats             map[string]float64 `json:"stats,omitempty"`
}

func newRunDetail(r *repository.RunRecord) runDetail {
	return runDetail{
		RunRecordView:     r.ToView(),
		RelationshipCount: r.RelationshipCount,
		Fingerprint:       r.Fingerprint,
		ResultKey:         r.ResultKey,
		Error:             r.Error,
		Stats:             r.StatsMap(),
	}
}

func printRecord(w io.Writer, r *repository.RunRecord) {
	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Algorithm:     %s\n", r.Algorithm)
	fmt.Fprintf(w, "Status:        %s\n", r.Status)
	fmt.Fprintf(w, "Nodes:         %d\n", r.NodeCount)
	fmt.Fprintf(w, "Relationships: %d\n", r.RelationshipCount)
	fmt.Fprintf(w, "Concurrency:   %d\n", r.Concurrency)
	fmt.Fprintf(w, "Iterations:    %d of %d (converged: %t)\n", r.RanIterations, r.MaxIterations, r.DidConverge)
	fmt.Fprintf(w, "Duration:      %v\n", time.Duration(r.DurationMs)*time.Millisecond)
	fmt.Fprintf(w, "Fingerprint:   %s\n", r.Fingerprint)
	if r.ResultKey != "" {
		fmt.Fprintf(w, "Result key:    %s\n", r.ResultKey)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error:         %s\n", r.Error)
	}
	stats := r.StatsMap()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-22s %v\n", name, stats[name])
	}
}
