package report

import "fmt"

// Warning thresholds, in percent. A rate strictly below its threshold
// raises an insight.
const (
	FillRateThreshold       = 30.0
	ConversionRateThreshold = 10.0
	CompletionRateThreshold = 80.0
)

const SeverityWarning = "warning"

type Insight struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Metric   string `json:"metric"`
}

// Rates carries the ratios insights are derived from.
type Rates struct {
	FillRate       float64
	ConversionRate float64
	CompletionRate float64
}

// Insights applies the fixed thresholds to r. The result is never nil.
func Insights(r Rates) []Insight {
	out := []Insight{}
	if r.FillRate < FillRateThreshold {
		out = append(out, Insight{
			Type:     SeverityWarning,
			Category: "jobs",
			Message:  "Job fill rate is below 30%. Consider reviewing job requirements or recruitment strategies.",
			Metric:   fmt.Sprintf("%.1f%% fill rate", r.FillRate),
		})
	}
	if r.ConversionRate < ConversionRateThreshold {
		out = append(out, Insight{
			Type:     SeverityWarning,
			Category: "candidates",
			Message:  "Candidate conversion rate is low. Review screening and interview processes.",
			Metric:   fmt.Sprintf("%.1f%% conversion rate", r.ConversionRate),
		})
	}
	if r.CompletionRate < CompletionRateThreshold {
		out = append(out, Insight{
			Type:     SeverityWarning,
			Category: "interviews",
			Message:  "Interview completion rate is below 80%. Check for scheduling issues.",
			Metric:   fmt.Sprintf("%.1f%% completion rate", r.CompletionRate),
		})
	}
	return out
}
