package ai

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/bugtracker/server/internal/models"
)

// ReportData is everything the report template can reference.
type ReportData struct {
	Bug        models.Bug
	Analysis   Analysis
	Narrative  string
	Generated  time.Time
	Duplicates []models.DuplicateCandidate
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"join":      strings.Join,
	"pct":       func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	"date":      func(t time.Time) string { return t.UTC().Format("2006-01-02") },
	"upper":     strings.ToUpper,
	"nextSteps": NextSteps,
}).Parse(`Bug Report: {{.Bug.Title}}
Status: {{.Bug.Status}} | Priority: {{.Bug.Priority}} | Severity: {{upper .Analysis.Severity}}
Reported: {{date .Bug.CreatedAt}}{{if .Bug.Component}} | Component: {{.Bug.Component}}{{end}}

Description
{{.Bug.Description}}
{{if .Narrative}}
Summary
{{.Narrative}}
{{end}}
Classification
- Tags: {{if .Analysis.Tags}}{{join .Analysis.Tags ", "}}{{else}}none{{end}}
- Suggested priority: {{.Analysis.Priority}}
{{- if .Analysis.SuggestedAssignee}}
- Suggested assignee: {{.Analysis.SuggestedAssignee}}
{{- end}}
- Confidence: {{.Analysis.Confidence}}%
{{if .Duplicates}}
Possible duplicates
{{- range .Duplicates}}
- {{.Title}} ({{.Status}}, {{pct .Similarity}} similar)
{{- end}}
{{end}}
Recommended next steps
{{- range nextSteps .Analysis}}
- {{.}}
{{- end}}

Generated {{.Generated.UTC.Format "2006-01-02 15:04 MST"}}
`))

// RenderReport produces the plain-text report for d.
func RenderReport(d ReportData) (string, error) {
	if d.Generated.IsZero() {
		d.Generated = time.Now()
	}
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// NextSteps returns canned recommendations for an analysis.
func NextSteps(a Analysis) []string {
	var steps []string
	switch a.Severity {
	case SeverityCritical:
		steps = append(steps, "Escalate immediately and notify the on-call engineer")
	case SeverityHigh:
		steps = append(steps, "Schedule for the current sprint")
	case SeverityLow:
		steps = append(steps, "Add to the backlog for a polish pass")
	default:
		steps = append(steps, "Triage during the next planning session")
	}
	for _, t := range a.Tags {
		switch t {
		case "crash":
			steps = append(steps, "Attach crash logs and a stack trace")
		case "performance":
			steps = append(steps, "Capture a profile or timing measurements")
		case "security":
			steps = append(steps, "Restrict visibility of this report until fixed")
		case "mobile":
			steps = append(steps, "Record device model and OS version")
		case "ui":
			steps = append(steps, "Add a screenshot of the affected screen")
		}
	}
	steps = append(steps, "Add reproduction steps if missing")
	return steps
}
