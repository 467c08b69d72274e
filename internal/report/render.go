package report

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

const excerptLimit = 200

// MatchRow carries one fully precomputed table row. All labels and numbers
// are resolved in BuildView so the template stays pure substitution.
type MatchRow struct {
	LeftExcerpt  string
	RightExcerpt string
	Label        string
	ScorePercent string
}

type View struct {
	ComparisonID           string
	Timestamp              string
	CompliantCount         int
	NonCompliantCount      int
	CompliantPercentage    string
	NonCompliantPercentage string
	Rows                   []MatchRow
}

// BuildView derives the renderable view model from a classification.
func BuildView(comparisonID string, generatedAt time.Time, c Classification) View {
	v := View{
		ComparisonID:           comparisonID,
		Timestamp:              generatedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		CompliantCount:         c.CompliantCount,
		NonCompliantCount:      c.NonCompliantCount,
		CompliantPercentage:    fmt.Sprintf("%.1f", c.CompliantPercentage),
		NonCompliantPercentage: fmt.Sprintf("%.1f", c.NonCompliantPercentage),
	}

	for _, m := range c.Matches {
		label := "NON-COMPLIANT"
		if Compliant(m.MatchType) {
			label = "COMPLIANT"
		}
		v.Rows = append(v.Rows, MatchRow{
			LeftExcerpt:  excerpt(m.LeftText),
			RightExcerpt: excerpt(m.RightText),
			Label:        label,
			ScorePercent: fmt.Sprintf("%.1f%%", m.SimilarityScore*100),
		})
	}
	return v
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= excerptLimit {
		return s
	}
	return string(runes[:excerptLimit]) + "..."
}

var reportTemplate = template.Must(template.New("report").Parse(`<html>
<head><title>Comparison Report</title></head>
<body>
    <h1>Comparison Report</h1>
    <p>Comparison: {{.ComparisonID}}</p>
    <p>Generated: {{.Timestamp}}</p>
    <h2>Summary</h2>
    <p>Compliant: {{.CompliantCount}} ({{.CompliantPercentage}}%)</p>
    <p>Non-Compliant: {{.NonCompliantCount}} ({{.NonCompliantPercentage}}%)</p>
    <h2>Details</h2>
    <table border="1" style="width:100%; border-collapse: collapse;">
        <tr>
            <th>Left Document</th>
            <th>Right Document</th>
            <th>Status &amp; Percentage</th>
        </tr>
        {{range .Rows}}
        <tr>
            <td>{{.LeftExcerpt}}</td>
            <td>{{.RightExcerpt}}</td>
            <td>{{.Label}}<br>{{.ScorePercent}}</td>
        </tr>
        {{end}}
    </table>
</body>
</html>
`))

// Render writes the HTML report for a prebuilt view. Substitution only; any
// classification logic belongs in Classify/BuildView.
func Render(w io.Writer, v View) error {
	return reportTemplate.Execute(w, v)
}
