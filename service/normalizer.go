package service

import (
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/remedy-kit/remedy/domain"
)

// RawViolation mirrors the analyzer wire format before validation. Incidents
// stay loose maps so one malformed record cannot fail the whole decode.
type RawViolation struct {
	Description string           `yaml:"description" json:"description"`
	Category    string           `yaml:"category" json:"category"`
	Labels      []string         `yaml:"labels" json:"labels"`
	Incidents   []map[string]any `yaml:"incidents" json:"incidents"`
	Effort      int              `yaml:"effort" json:"effort"`
}

// RawRuleSet mirrors one analyzer ruleset record
type RawRuleSet struct {
	Name        string                  `yaml:"name" json:"name"`
	Description string                  `yaml:"description" json:"description"`
	Violations  map[string]RawViolation `yaml:"violations" json:"violations"`
	Errors      map[string]string       `yaml:"errors" json:"errors"`
	Unmatched   []string                `yaml:"unmatched" json:"unmatched"`
	Skipped     []string                `yaml:"skipped" json:"skipped"`
}

// DecodeRuleSets parses an analyzer payload. YAML and JSON are both accepted
// (JSON is a YAML subset). The payload must be a sequence of ruleset records;
// anything else is rejected wholesale without touching engine state.
func DecodeRuleSets(data []byte) ([]RawRuleSet, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, domain.NewInvalidPayloadError("empty analysis payload", nil)
	}

	var raw []RawRuleSet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, domain.NewInvalidPayloadError("analysis payload is not a sequence of rulesets", err)
	}
	return raw, nil
}

// ResultNormalizer validates raw analyzer records into the domain model
type ResultNormalizer struct {
	logger *slog.Logger
}

// NewResultNormalizer creates a normalizer
func NewResultNormalizer(logger *slog.Logger) *ResultNormalizer {
	return &ResultNormalizer{logger: logger.With("component", "normalizer")}
}

// Normalize converts raw rulesets into domain rulesets. Malformed incidents
// are dropped and reported in the returned anomaly list; a bad record never
// aborts the batch.
func (n *ResultNormalizer) Normalize(raw []RawRuleSet) ([]domain.RuleSet, []string) {
	ruleSets := make([]domain.RuleSet, 0, len(raw))
	var anomalies []string

	for ri, r := range raw {
		rs := domain.RuleSet{
			Name:        r.Name,
			Description: r.Description,
			Errors:      r.Errors,
			Unmatched:   r.Unmatched,
			Skipped:     r.Skipped,
		}

		if len(r.Violations) > 0 {
			rs.Violations = make(map[string]domain.Violation, len(r.Violations))
			for id, rv := range r.Violations {
				incidents, dropped := n.normalizeIncidents(rv.Incidents)
				for _, d := range dropped {
					anomalies = append(anomalies, fmt.Sprintf("ruleset %s violation %s: %s", ruleSetLabel(r.Name, ri), id, d))
				}
				rs.Violations[id] = domain.Violation{
					Description: rv.Description,
					Category:    domain.Category(rv.Category),
					Labels:      rv.Labels,
					Incidents:   incidents,
					Effort:      rv.Effort,
				}
			}
		}

		ruleSets = append(ruleSets, rs)
	}

	if len(anomalies) > 0 {
		n.logger.Warn("dropped malformed incidents", "count", len(anomalies))
	}
	return ruleSets, anomalies
}

// normalizeIncidents validates one violation's incident records in encounter
// order. A record survives only with a string message and a file URI;
// lineNumber is coerced to 1 when absent, non-numeric or non-positive.
func (n *ResultNormalizer) normalizeIncidents(raw []map[string]any) ([]domain.Incident, []string) {
	incidents := make([]domain.Incident, 0, len(raw))
	var dropped []string

	for i, rec := range raw {
		message, ok := rec["message"].(string)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("incident %d: message missing or not a string", i))
			continue
		}
		uri, ok := rec["uri"].(string)
		if !ok || !domain.IsFileURI(uri) {
			dropped = append(dropped, fmt.Sprintf("incident %d: uri missing or not a file URI", i))
			continue
		}

		inc := domain.Incident{
			URI:        uri,
			Message:    message,
			LineNumber: lineNumberOf(rec["lineNumber"]),
		}
		if snip, ok := rec["codeSnip"].(string); ok {
			inc.CodeSnip = snip
		}
		if sev, ok := rec["severity"].(string); ok {
			inc.Severity = domain.Severity(sev)
		}
		if vars, ok := rec["variables"].(map[string]any); ok {
			inc.Variables = vars
		}
		incidents = append(incidents, inc)
	}

	return incidents, dropped
}

// lineNumberOf coerces the wire value to a 1-based line number
func lineNumberOf(v any) int {
	var line int
	switch n := v.(type) {
	case int:
		line = n
	case int64:
		line = int(n)
	case uint64:
		line = int(n)
	case float64:
		line = int(n)
	default:
		return 1
	}
	if line < 1 {
		return 1
	}
	return line
}

// ruleSetLabel names a ruleset in anomaly messages, falling back to its
// position when the record is anonymous.
func ruleSetLabel(name string, idx int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("#%d", idx)
}
