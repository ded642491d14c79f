package ai

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bugtracker/server/internal/models"
)

// Severity labels produced by the rules table.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Rule maps any of its keywords to Label. Keywords are matched on whole
// words, case-insensitively; multi-word keywords match as a phrase.
type Rule struct {
	Label    string
	Keywords []string
}

// Rules is the keyword → classification table used for heuristic analysis.
//
// Severity rules are ordered: the first rule with a hit decides. Tag rules
// all apply. Team rules match against the detected tags and the component.
type Rules struct {
	Severity []Rule
	Tags     []Rule
	Teams    []Rule
}

// DefaultRules returns the built-in table.
func DefaultRules() Rules {
	return Rules{
		Severity: []Rule{
			{Label: SeverityCritical, Keywords: []string{
				"crash", "crashes", "crashed", "crashing", "data loss", "security", "vulnerability",
				"outage", "production down", "cannot login", "can't login", "corrupted", "breach",
			}},
			{Label: SeverityHigh, Keywords: []string{
				"error", "errors", "fail", "fails", "failed", "failing", "failure", "broken",
				"exception", "timeout", "not working", "500",
			}},
			{Label: SeverityLow, Keywords: []string{
				"typo", "cosmetic", "alignment", "misaligned", "color", "colour", "spelling",
				"padding", "font", "tooltip",
			}},
		},
		Tags: []Rule{
			{Label: "ui", Keywords: []string{"ui", "button", "layout", "css", "display", "screen", "modal", "page", "style"}},
			{Label: "mobile", Keywords: []string{"mobile", "ios", "android", "iphone", "tablet", "phone"}},
			{Label: "crash", Keywords: []string{"crash", "crashes", "crashed", "crashing", "freeze", "freezes", "hang", "hangs"}},
			{Label: "performance", Keywords: []string{"slow", "latency", "timeout", "memory", "cpu", "lag", "performance"}},
			{Label: "security", Keywords: []string{"security", "xss", "injection", "csrf", "password", "token", "vulnerability"}},
			{Label: "auth", Keywords: []string{"login", "logout", "auth", "authentication", "session", "oauth", "signin", "sign in"}},
			{Label: "api", Keywords: []string{"api", "endpoint", "request", "response", "500", "404", "status code"}},
			{Label: "database", Keywords: []string{"database", "db", "query", "mongo", "mongodb", "index", "migration"}},
		},
		Teams: []Rule{
			{Label: "security-team", Keywords: []string{"security"}},
			{Label: "mobile-team", Keywords: []string{"mobile"}},
			{Label: "frontend-team", Keywords: []string{"ui", "frontend"}},
			{Label: "backend-team", Keywords: []string{"api", "database", "auth", "backend"}},
			{Label: "platform-team", Keywords: []string{"performance", "infrastructure"}},
		},
	}
}

// AnalysisInput is what the analyze endpoint receives.
type AnalysisInput struct {
	Title       string
	Description string
	Component   string
}

// Analysis is the heuristic classification of a bug report.
type Analysis struct {
	Severity          string          `json:"severity"`
	Priority          models.Priority `json:"priority"`
	Tags              []string        `json:"tags"`
	SuggestedAssignee string          `json:"suggestedAssignee,omitempty"`
	SuggestedTitle    string          `json:"suggestedTitle,omitempty"`
	Confidence        int             `json:"confidence"`
	Reasoning         []string        `json:"reasoning"`
}

var severityPriority = map[string]models.Priority{
	SeverityCritical: models.PriorityCritical,
	SeverityHigh:     models.PriorityHigh,
	SeverityMedium:   models.PriorityMedium,
	SeverityLow:      models.PriorityLow,
}

// PriorityForSeverity maps a severity label to the bug priority scale.
// Unknown labels map to Medium.
func PriorityForSeverity(severity string) models.Priority {
	if p, ok := severityPriority[severity]; ok {
		return p
	}
	return models.PriorityMedium
}

// Analyze classifies in against the table. It never fails.
func (r Rules) Analyze(in AnalysisInput) Analysis {
	text := normalize(in.Title + " " + in.Description)
	a := Analysis{
		Severity:  SeverityMedium,
		Tags:      []string{},
		Reasoning: []string{},
	}

	hits := 0
	for _, rule := range r.Severity {
		if kw, ok := rule.match(text); ok {
			a.Severity = rule.Label
			a.Reasoning = append(a.Reasoning, fmt.Sprintf("severity %s: mentions %q", rule.Label, kw))
			hits++
			break
		}
	}
	a.Priority = PriorityForSeverity(a.Severity)

	for _, rule := range r.Tags {
		if kw, ok := rule.match(text); ok {
			a.Tags = append(a.Tags, rule.Label)
			a.Reasoning = append(a.Reasoning, fmt.Sprintf("tag %s: mentions %q", rule.Label, kw))
			hits++
		}
	}

	teamText := normalize(strings.Join(a.Tags, " ") + " " + in.Component)
	for _, rule := range r.Teams {
		if _, ok := rule.match(teamText); ok {
			a.SuggestedAssignee = rule.Label
			break
		}
	}

	if strings.TrimSpace(in.Title) == "" {
		a.SuggestedTitle = SuggestTitle(in.Description)
	}

	a.Confidence = heuristicConfidence(hits, in.Component != "")
	return a
}

// heuristicConfidence grows with the number of rule hits and stays below the
// range the fuser adds on top of.
func heuristicConfidence(hits int, hasComponent bool) int {
	c := 40 + 5*hits
	if hasComponent {
		c += 5
	}
	if c > 80 {
		c = 80
	}
	return c
}

func (r Rule) match(normalized string) (string, bool) {
	for _, kw := range r.Keywords {
		if strings.Contains(normalized, normalize(kw)) {
			return kw, true
		}
	}
	return "", false
}

// normalize lowercases s and rewrites it as space-separated word tokens with
// a leading and trailing space, so Contains(" a b ") is a whole-phrase match.
func normalize(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	return " " + strings.Join(words, " ") + " "
}

const maxTitleRunes = 80

// SuggestTitle derives a title from the first sentence of description.
func SuggestTitle(description string) string {
	s := strings.TrimSpace(description)
	if i := strings.IndexAny(s, ".!?\n"); i > 0 {
		s = s[:i]
	}
	s = strings.Join(strings.Fields(s), " ")
	return Truncate(s, maxTitleRunes)
}

// Truncate shortens s to at most n runes, adding "..." when it cuts.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
