package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// Template names accepted by Notify.
const (
	TemplateInsightAlert = "insight_alert"
	TemplateReportDigest = "report_digest"
)

const insightAlert = `ATS report warnings ({{stamp .Metadata.GeneratedAt}})
{{range .Warnings}}- [{{.Category}}] {{.Message}} ({{.Metric}})
{{end}}`

const reportDigest = `ATS pipeline digest ({{stamp .Metadata.GeneratedAt}})
Jobs: {{.Summary.Jobs.Total}} total, {{.Summary.Jobs.Active}} active, fill rate {{pct .Summary.Jobs.FillRate}}
Candidates: {{.Summary.Candidates.Total}} total, {{.Summary.Candidates.Hired}} hired, conversion {{pct .Summary.Candidates.ConversionRate}}
Interviews: {{.Summary.Interviews.Total}} total, completion {{pct .Summary.Interviews.CompletionRate}}
Customers: {{.Summary.Customers.Active}} of {{.Summary.Customers.Total}} active
Timesheets: {{hours .Summary.Timesheets.TotalHours}} approved hours, {{.Summary.Timesheets.Pending}} pending
{{- with .Summary.Performance}}
Time to fill: {{printf "%.1f" .AvgTimeToFill}} days over {{.TotalFilledJobs}} filled jobs
{{- end}}
{{- range .Trends}}
Trend {{.Category}}: {{.Trend}} ({{.Change}})
{{- end}}
{{- if .Warnings}}
Warnings:
{{- range .Warnings}}
- {{.Message}}
{{- end}}
{{- end}}
`

var funcs = template.FuncMap{
	"stamp": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
	"pct":   func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
	"hours": func(v float64) string { return humanize.FormatFloat("#,###.##", v) },
}

var templates = template.Must(template.Must(
	template.New(TemplateInsightAlert).Funcs(funcs).Parse(insightAlert)).
	New(TemplateReportDigest).Parse(reportDigest))

// Render executes the named template with data.
func Render(name string, data any) (string, error) {
	t := templates.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("notify: unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", name, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
