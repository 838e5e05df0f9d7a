package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/garnizeh/ats/internal/report"
	"github.com/garnizeh/ats/internal/repository/sqlstore"
)

// NewReportCommand builds the comprehensive report straight from the
// database, bypassing the server cache.
func NewReportCommand(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the comprehensive report and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := quietLogger()
			report.SetLogger(logger)

			store, closeStore, err := sqlstore.Open(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			agg := report.New(store,
				report.WithLocation(cfg.Reports.Location()),
				report.WithTimeout(cfg.Reports.QueryTimeout),
			)
			r, err := agg.Report(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			RenderReport(cmd.OutOrStdout(), r)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw report document")
	return cmd
}

func newTable(out io.Writer, title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(title)
	return tbl
}

func pct(v float64) string { return fmt.Sprintf("%.2f%%", v) }

// RenderReport prints the summary, trends and insights of r as tables.
func RenderReport(out io.Writer, r *report.Report) {
	s := r.Summary

	fmt.Fprintf(out, "Generated %s from %s records\n\n",
		r.Metadata.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), humanize.Comma(r.Metadata.TotalRecords))

	tbl := newTable(out, "Summary")
	tbl.AppendHeader(table.Row{"Area", "Total", "Breakdown", "Rate"})
	tbl.AppendRows([]table.Row{
		{"Jobs", s.Jobs.Total, fmt.Sprintf("%d active, %d filled, %d paused, %d closed", s.Jobs.Active, s.Jobs.Filled, s.Jobs.Paused, s.Jobs.Closed), "fill " + pct(s.Jobs.FillRate)},
		{"Candidates", s.Candidates.Total, fmt.Sprintf("%d pending, %d shortlisted, %d hired, %d rejected", s.Candidates.Pending, s.Candidates.Shortlisted, s.Candidates.Hired, s.Candidates.Rejected), "conversion " + pct(s.Candidates.ConversionRate)},
		{"Interviews", s.Interviews.Total, fmt.Sprintf("%d scheduled, %d completed, %d cancelled, %d rescheduled", s.Interviews.Scheduled, s.Interviews.Completed, s.Interviews.Cancelled, s.Interviews.Rescheduled), "completion " + pct(s.Interviews.CompletionRate)},
		{"Customers", s.Customers.Total, fmt.Sprintf("%d active, %d inactive, %d prospects, %d suspended", s.Customers.Active, s.Customers.Inactive, s.Customers.Prospects, s.Customers.Suspended), "active " + pct(s.Customers.ActiveRate)},
		{"Timesheets", s.Timesheets.Total, fmt.Sprintf("%s h approved, %s h billable, %d pending", humanize.FormatFloat("#,###.##", s.Timesheets.TotalHours), humanize.FormatFloat("#,###.##", s.Timesheets.BillableHours), s.Timesheets.Pending), "approval " + pct(s.Timesheets.ApprovalRate)},
	})
	tbl.Render()
	fmt.Fprintln(out)

	if p := s.Performance; p != nil {
		tbl = newTable(out, "Performance")
		tbl.AppendRows([]table.Row{
			{"Average time to fill", fmt.Sprintf("%.1f days", p.AvgTimeToFill)},
			{"Filled jobs", p.TotalFilledJobs},
			{"Application to interview", pct(p.InterviewConversionRate)},
			{"Interview to hire", pct(p.HireConversionRate)},
		})
		tbl.Render()
		fmt.Fprintln(out)
	}

	tbl = newTable(out, "Trends")
	tbl.AppendHeader(table.Row{"Category", "Trend", "Change"})
	for _, t := range r.Trends {
		tbl.AppendRow(table.Row{t.Category, t.Trend, t.Change})
	}
	tbl.Render()

	if len(r.Insights) > 0 {
		fmt.Fprintln(out)
		warn := color.New(color.FgYellow)
		for _, in := range r.Insights {
			warn.Fprintf(out, "[%s] %s (%s)\n", in.Category, in.Message, in.Metric)
		}
	} else {
		fmt.Fprintln(out)
		color.New(color.FgGreen).Fprintln(out, "No warnings.")
	}

	if r.Narrative != "" {
		fmt.Fprintf(out, "\n%s\n", r.Narrative)
	}
}
