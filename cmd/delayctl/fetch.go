package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/model"
)

func ago(ts model.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return humanize.Time(ts.Time)
}

func linesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "lines",
		Short: "Per-line delay metrics, most delayed first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := g.setup()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			lines, err := client.FetchLines(ctx)
			if err != nil {
				return err
			}
			if ok, err := g.emit(cmd.OutOrStdout(), lines); ok {
				return err
			}
			rows := make([][]string, 0, len(lines))
			for _, l := range lines {
				rows = append(rows, []string{
					l.Line,
					humanize.Comma(int64(l.TotalDelays)),
					l.AvgDelay.String(),
					strconv.Itoa(l.MaxDelay),
					ago(l.LastUpdated),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"Line", "Delays", "Avg", "Max", "Updated"}, rows)
			return nil
		},
	}
}

func statsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Aggregate statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := g.setup()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			st, err := client.FetchStats(ctx)
			if err != nil {
				return err
			}
			if ok, err := g.emit(cmd.OutOrStdout(), st); ok {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Delays recorded:  %s\n", humanize.Comma(int64(st.TotalDelaysRecorded)))
			fmt.Fprintf(w, "Lines tracked:    %d\n", st.LinesTracked)
			fmt.Fprintf(w, "Average delay:    %s min\n", st.OverallAvgDelay)
			fmt.Fprintf(w, "Last scrape:      %s\n", ago(st.LastScrape))
			return nil
		},
	}
}

func printReports(cmd *cobra.Command, cat *catalog.Catalog, reports []model.Report) {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Line,
			cat.IssueLabel(r.IssueType),
			r.Description,
			strconv.Itoa(r.Upvotes),
			ago(r.CreatedAt),
		})
	}
	renderTable(cmd.OutOrStdout(), []string{"ID", "Line", "Issue", "Description", "▲", "When"}, rows)
}

func reportsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "reports <line>",
		Short: "Rider reports for a line from the last two hours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cat, err := g.setup()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			reports, err := client.FetchReportsForLine(ctx, args[0])
			if err != nil {
				return err
			}
			if ok, err := g.emit(cmd.OutOrStdout(), reports); ok {
				return err
			}
			printReports(cmd, cat, reports)
			return nil
		},
	}
}

func recentCmd(g *globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Recent reports across all lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cat, err := g.setup()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			reports, err := client.FetchRecentReports(ctx, limit)
			if err != nil {
				return err
			}
			if ok, err := g.emit(cmd.OutOrStdout(), reports); ok {
				return err
			}
			printReports(cmd, cat, reports)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 8, "Maximum reports to fetch")
	return cmd
}

func alertsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts [line...]",
		Short: "Active alerts for the given lines (default: every catalog line)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cat, err := g.setup()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			lines := args
			if len(lines) == 0 {
				lines = cat.Codes()
			}
			byLine, err := client.FetchAllAlerts(ctx, lines)
			if err != nil {
				return err
			}
			if ok, err := g.emit(cmd.OutOrStdout(), byLine); ok {
				return err
			}

			codes := make([]string, 0, len(byLine))
			for code := range byLine {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			if len(codes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active alerts.")
				return nil
			}
			var rows [][]string
			for _, code := range codes {
				for _, a := range byLine[code] {
					rows = append(rows, []string{code, cat.AlertIcon(a.AlertType) + " " + string(a.AlertType), a.Header, ago(a.CreatedAt)})
				}
			}
			renderTable(cmd.OutOrStdout(), []string{"Line", "Type", "Header", "Since"}, rows)
			return nil
		},
	}
}
