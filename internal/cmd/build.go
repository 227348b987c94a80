package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/ledger"
	"github.com/salmonumbrella/notion-cli/internal/metrics"
	"github.com/salmonumbrella/notion-cli/internal/output"
	"github.com/salmonumbrella/notion-cli/internal/render"
	"github.com/salmonumbrella/notion-cli/internal/site"
)

var buildCmd = &cobra.Command{
	Use:   "build [database-id]",
	Short: "Build every page of a database",
	Long: `Build every page of a database into an output directory.

Each page is assembled and written to <out>/<page-id>.<ext>. Pages end in
one of four outcomes:
  built      every block was resolved
  partial    written, but some nested content could not be loaded
  not_found  the page could not be fetched; nothing is written
  failed     the build errored (with --strict, also service errors)

Outcomes are recorded in a local ledger; see "notion build history".
The command exits non-zero when any page failed.

Examples:
  notion build <database-id> --out site --format html
  notion build --format markdown --metrics-file notion.prom
  notion build --strict --no-ledger`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

var buildHistoryCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded build runs",
	Long: `Without arguments, list recent build runs. With a run ID, list the
outcome of every page in that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuildHistory,
}

var (
	buildOut         string
	buildFormat      string
	buildStrict      bool
	buildParallel    int
	buildLedgerPath  string
	buildNoLedger    bool
	buildMetricsFile string
	historyLimit     int
)

func init() {
	buildCmd.Flags().StringVar(&buildOut, "out", "site", "Output directory")
	buildCmd.Flags().StringVar(&buildFormat, "format", "html", "Page format (json|markdown|html)")
	buildCmd.Flags().BoolVar(&buildStrict, "strict", false, "Count service errors as failed instead of not_found")
	buildCmd.Flags().IntVar(&buildParallel, "parallel", site.DefaultConcurrency, "Pages built at once")
	buildCmd.Flags().BoolVar(&buildNoLedger, "no-ledger", false, "Do not record outcomes")
	buildCmd.Flags().StringVar(&buildMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file")
	buildCmd.PersistentFlags().StringVar(&buildLedgerPath, "ledger", "", "Ledger database (default: $XDG_DATA_HOME/notion/ledger.db)")

	buildHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list")

	buildCmd.AddCommand(buildHistoryCmd)
	rootCmd.AddCommand(buildCmd)
}

// pageOutcome is one row of a build report.
type pageOutcome struct {
	PageID  string `json:"page_id"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Title   string `json:"title,omitempty"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

type buildReport struct {
	RunID      int64          `json:"run_id,omitempty"`
	DatabaseID string         `json:"database_id"`
	Out        string         `json:"out"`
	Format     string         `json:"format"`
	Pages      []pageOutcome  `json:"pages"`
	Summary    map[string]int `json:"summary"`
}

func (r buildReport) Table() output.Table {
	t := output.Table{Headers: []string{"PAGE", "OUTCOME", "REASON", "TITLE", "PATH"}}
	for _, p := range r.Pages {
		t.Rows = append(t.Rows, []string{p.PageID, p.Outcome, p.Reason, p.Title, p.Path})
	}
	return t
}

func (r buildReport) failed() int {
	return r.Summary[string(site.OutcomeFailed)]
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dbID, err := requireDatabaseID(args)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(buildFormat)
	if err != nil {
		return err
	}
	if buildParallel < 1 {
		return api.ValidationError{Message: "--parallel must be at least 1"}
	}

	assembler := newAssembler(site.WithConcurrency(buildParallel), site.WithStrict(buildStrict))

	ids, err := assembler.KnownIDs(ctx, dbID, api.QueryOptions{All: true})
	if err != nil {
		return err
	}
	logger.Info("building pages", "database_id", dbID, "pages", len(ids), "format", string(format))

	if err := os.MkdirAll(buildOut, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var (
		book  *ledger.Ledger
		runID int64
	)
	if !buildNoLedger {
		book, err = ledger.Open(ledgerPath())
		if err != nil {
			return err
		}
		defer book.Close()
		if runID, err = book.StartRun(ctx, dbID); err != nil {
			return err
		}
	}

	results := assembler.BuildAll(ctx, ids)

	report := buildReport{
		RunID:      runID,
		DatabaseID: dbID,
		Out:        buildOut,
		Format:     string(format),
		Pages:      make([]pageOutcome, 0, len(results)),
		Summary:    map[string]int{},
	}
	for _, r := range results {
		row := writePage(format, r)
		report.Pages = append(report.Pages, row)
		report.Summary[row.Outcome]++

		if book != nil {
			if err := book.RecordOutcome(ctx, ledger.Entry{
				RunID:   runID,
				PageID:  row.PageID,
				Outcome: row.Outcome,
				Reason:  row.Reason,
				Title:   row.Title,
				Error:   row.Error,
			}); err != nil {
				return err
			}
		}
	}

	if book != nil {
		if err := book.FinishRun(ctx, runID); err != nil {
			return err
		}
	}
	if buildMetricsFile != "" {
		if err := metricsRecorder().WriteTextfile(buildMetricsFile); err != nil {
			return err
		}
	}

	if err := printData(ctx, report, func() error { return printBuildReport(ctx, report) }); err != nil {
		return err
	}
	if n := report.failed(); n > 0 {
		return fmt.Errorf("%d of %d pages failed to build", n, len(results))
	}
	return nil
}

// writePage writes the rendered document of a built or partial result. A
// write error turns the outcome into failed.
func writePage(format render.Format, r site.Result) pageOutcome {
	row := pageOutcome{PageID: r.PageID, Outcome: string(r.Outcome), Reason: r.Reason}
	if r.Err != nil {
		row.Error = r.Err.Error()
	}
	if r.Document == nil {
		return row
	}
	row.Title = r.Document.TitleText

	path := filepath.Join(buildOut, r.PageID+format.Extension())
	if err := writeDocument(path, format, r.Document); err != nil {
		logger.Warn("write page failed", "page_id", r.PageID, "error", err)
		row.Outcome = string(site.OutcomeFailed)
		row.Reason = "write_error"
		row.Error = err.Error()
		return row
	}
	row.Path = path
	return row
}

func writeDocument(path string, format render.Format, doc *site.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.Render(f, format, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printBuildReport(ctx context.Context, report buildReport) error {
	out := stdoutFromContext(ctx)
	for _, p := range report.Pages {
		line := fmt.Sprintf("%-9s  %s", p.Outcome, p.PageID)
		switch {
		case p.Path != "":
			line += "  " + p.Path
		case p.Reason != "":
			line += "  (" + p.Reason + ")"
		}
		fmt.Fprintln(out, line)
	}

	outcomes := make([]string, 0, len(report.Summary))
	for o := range report.Summary {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	fmt.Fprintf(out, "\n%d pages:", len(report.Pages))
	for _, o := range outcomes {
		fmt.Fprintf(out, " %s=%d", o, report.Summary[o])
	}
	fmt.Fprintln(out)
	if report.RunID != 0 {
		fmt.Fprintf(out, "Recorded as run %d\n", report.RunID)
	}
	return nil
}

func ledgerPath() string {
	if buildLedgerPath != "" {
		return buildLedgerPath
	}
	return ledger.DefaultPath()
}

func metricsRecorder() *metrics.PrometheusRecorder {
	if recorder == nil {
		recorder = metrics.NewPrometheusRecorder(nil)
	}
	return recorder
}

func runBuildHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	book, err := ledger.Open(ledgerPath())
	if err != nil {
		return err
	}
	defer book.Close()

	if len(args) == 0 {
		runs, err := book.Runs(ctx, historyLimit)
		if err != nil {
			return err
		}
		return printData(ctx, runs, func() error {
			out := stdoutFromContext(ctx)
			if len(runs) == 0 {
				fmt.Fprintln(out, "No builds recorded.")
				return nil
			}
			for _, r := range runs {
				status := "running"
				if r.FinishedAt != nil {
					status = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
				}
				fmt.Fprintf(out, "%d  %s  %s  %d pages  %s\n", r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.DatabaseID, r.Pages, status)
			}
			return nil
		})
	}

	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return api.ValidationError{Message: fmt.Sprintf("invalid run ID %q", args[0])}
	}
	entries, err := book.Outcomes(ctx, runID)
	if err != nil {
		if errors.Is(err, ledger.ErrRunNotFound) {
			return fmt.Errorf("run %d: %w", runID, err)
		}
		return err
	}
	return printData(ctx, entries, func() error {
		out := stdoutFromContext(ctx)
		for _, e := range entries {
			line := fmt.Sprintf("%-9s  %s", e.Outcome, e.PageID)
			if e.Title != "" {
				line += "  " + e.Title
			}
			if e.Reason != "" {
				line += "  (" + e.Reason + ")"
			}
			fmt.Fprintln(out, line)
		}
		return nil
	})
}
