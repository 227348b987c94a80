package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/notiondb"
	"github.com/salmonumbrella/notion-cli/internal/output"
)

var dbCmd = &cobra.Command{
	Use:     "db",
	Aliases: []string{"database"},
	Short:   "Work with databases",
}

var dbListCmd = &cobra.Command{
	Use:   "list [database-id]",
	Short: "List the pages of a database",
	Long: `List the pages of a database.

--filter and --sorts take Notion query JSON and are sent unchanged.

Examples:
  notion db list
  notion db list <database-id> --all
  notion db list --filter '{"property":"Published","checkbox":{"equals":true}}'
  notion db list --sorts '[{"timestamp":"last_edited_time","direction":"descending"}]'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDBList,
}

var (
	dbFilter      string
	dbFilterFile  string
	dbSorts       string
	dbSortsFile   string
	dbPageSize    int
	dbStartCursor string
	dbAll         bool
)

func init() {
	dbListCmd.Flags().StringVar(&dbFilter, "filter", "", "Filter JSON")
	dbListCmd.Flags().StringVar(&dbFilterFile, "filter-file", "", "Read filter JSON from file (use - for stdin)")
	dbListCmd.Flags().StringVar(&dbSorts, "sorts", "", "Sorts JSON array")
	dbListCmd.Flags().StringVar(&dbSortsFile, "sorts-file", "", "Read sorts JSON from file (use - for stdin)")
	dbListCmd.Flags().IntVar(&dbPageSize, "page-size", 0, "Results per request, 0 for the service default (max 100)")
	dbListCmd.Flags().StringVar(&dbStartCursor, "start-cursor", "", "Cursor to start from")
	dbListCmd.Flags().BoolVar(&dbAll, "all", false, "Follow pagination until every page is listed")

	dbCmd.AddCommand(dbListCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDBList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dbID, err := requireDatabaseID(args)
	if err != nil {
		return err
	}
	if dbPageSize < 0 || dbPageSize > 100 {
		return api.ValidationError{Message: "--page-size must be between 0 and 100 (0 = service default)"}
	}

	filter, err := jsonArg("filter", dbFilter, dbFilterFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	sorts, err := jsonArg("sorts", dbSorts, dbSortsFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	pages, err := client.QueryDatabase(ctx, dbID, api.QueryOptions{
		Filter:      filter,
		Sorts:       sorts,
		PageSize:    dbPageSize,
		StartCursor: dbStartCursor,
		All:         dbAll,
	})
	if err != nil {
		return err
	}

	return printData(ctx, summaryRows(pages), func() error {
		out := stdoutFromContext(ctx)
		for _, p := range output.ApplyLimit(ctx, pages).([]notiondb.PageSummary) {
			title := p.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(out, "%s  %s\n", p.ID, title)
		}
		return nil
	})
}

type summaryRows []notiondb.PageSummary

func (rows summaryRows) Table() output.Table {
	t := output.Table{Headers: []string{"ID", "TITLE", "LAST EDITED"}}
	for _, p := range rows {
		t.Rows = append(t.Rows, []string{p.ID, p.Title, p.LastEditedTime.Format("2006-01-02 15:04")})
	}
	return t
}
