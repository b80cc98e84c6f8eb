package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/memtrace/analysis"
	"github.com/sarchlab/memtrace/datarecording"
	"github.com/sarchlab/memtrace/trace"
	"github.com/spf13/cobra"
)

var pagesCmd = &cobra.Command{
	Use:   "pages <recording.sqlite3>",
	Short: "List the pages stored in a SQLite recording.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter pageFilter

		filter.Kind, _ = cmd.Flags().GetString("kind")
		filter.Trace, _ = cmd.Flags().GetString("trace")
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		entries, total, err := listPages(cmd.Context(), args[0], filter)
		if err != nil {
			return err
		}

		return printPages(cmd.OutOrStdout(), entries, total)
	},
}

func init() {
	rootCmd.AddCommand(pagesCmd)
	pagesCmd.Flags().String("kind", "",
		"only list instruction or data pages")
	pagesCmd.Flags().String("trace", "", "only list the pages of this trace")
	pagesCmd.Flags().Int("limit", 0, "maximum number of pages to list")
}

type pageFilter struct {
	Kind  string
	Trace string
	Limit int
}

func (f pageFilter) params() (datarecording.QueryParams, error) {
	var (
		conds  []string
		params datarecording.QueryParams
	)

	switch f.Kind {
	case "":
	case analysis.KindInstruction, analysis.KindData:
		conds = append(conds, "Kind = ?")
		params.Args = append(params.Args, f.Kind)
	default:
		return params, fmt.Errorf("unknown page kind %q", f.Kind)
	}

	if f.Trace != "" {
		conds = append(conds, "Trace = ?")
		params.Args = append(params.Args, f.Trace)
	}

	params.Where = strings.Join(conds, " AND ")
	params.OrderBy = "RunID ASC, Trace ASC, Kind ASC, Position ASC"
	params.Limit = f.Limit

	return params, nil
}

func listPages(
	ctx context.Context,
	filename string,
	filter pageFilter,
) ([]*analysis.PageCountEntry, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	params, err := filter.params()
	if err != nil {
		return nil, 0, err
	}

	reader, err := datarecording.NewReader(filename)
	if err != nil {
		return nil, 0, err
	}
	defer reader.Close()

	tables, err := reader.ListTables(ctx)
	if err != nil {
		return nil, 0, err
	}

	if !slices.Contains(tables, analysis.PageCountTable) {
		return nil, 0, fmt.Errorf("%s holds no %s table",
			filename, analysis.PageCountTable)
	}

	reader.MapTable(analysis.PageCountTable, analysis.PageCountEntry{})

	rows, total, err := reader.Query(ctx, analysis.PageCountTable, params)
	if err != nil {
		return nil, 0, fmt.Errorf("query %s: %w", filename, err)
	}

	entries := make([]*analysis.PageCountEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.(*analysis.PageCountEntry))
	}

	return entries, total, nil
}

func printPages(w io.Writer, entries []*analysis.PageCountEntry, total int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "TRACE\tKIND\tPOSITION\tPAGE\tCOUNT")

	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\n",
			e.Trace, e.Kind, e.Position, trace.FormatPage(e.Page), e.Count)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if total > len(entries) {
		_, err := fmt.Fprintf(w, "(%d of %d pages)\n", len(entries), total)
		return err
	}

	return nil
}
