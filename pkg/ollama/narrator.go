package ollama

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/garnizeh/ats/internal/report"
)

const narrationPrompt = `You are an operations analyst at a recruiting agency.
Summarise the pipeline report below for the account managers in at most five plain sentences.
Mention the weakest area first. Do not invent numbers.

Jobs: {{.Summary.Jobs.Total}} total, {{.Summary.Jobs.Active}} active, {{.Summary.Jobs.Filled}} filled, fill rate {{.Summary.Jobs.FillRate}}%.
Candidates: {{.Summary.Candidates.Total}} total, {{.Summary.Candidates.Hired}} hired, conversion {{.Summary.Candidates.ConversionRate}}%.
Interviews: {{.Summary.Interviews.Total}} total, completion {{.Summary.Interviews.CompletionRate}}%.
Customers: {{.Summary.Customers.Active}} active of {{.Summary.Customers.Total}}.
Timesheets: {{.Summary.Timesheets.TotalHours}} approved hours, {{.Summary.Timesheets.Pending}} entries pending.
{{- with .Summary.Performance}}
Average time to fill: {{.AvgTimeToFill}} days.
{{- end}}
{{- range .Trends}}
{{.Category}} trend: {{.Trend}} by {{.Change}} month over month.
{{- end}}
{{- range .Insights}}
Warning: {{.Message}} ({{.Metric}}).
{{- end}}
`

var narrationTmpl = template.Must(template.New("narration").Parse(narrationPrompt))

// Narrator writes a short prose summary of a report with a local model.
type Narrator struct {
	client *Client
	model  string
}

func NewNarrator(client *Client, model string) *Narrator {
	return &Narrator{client: client, model: model}
}

func (n *Narrator) Narrate(ctx context.Context, r *report.Report) (string, error) {
	if r == nil {
		return "", errors.New("narrate: nil report")
	}
	var prompt bytes.Buffer
	if err := narrationTmpl.Execute(&prompt, r); err != nil {
		return "", fmt.Errorf("narrate: render prompt: %w", err)
	}
	res, err := n.client.Generate(ctx, n.model, prompt.String())
	if err != nil {
		return "", fmt.Errorf("narrate: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}

// Health reports whether the narration model can be reached.
func (n *Narrator) Health(ctx context.Context) error {
	return n.client.Health(ctx, n.model)
}
