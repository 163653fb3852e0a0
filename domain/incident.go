package domain

import "sort"

// Category represents how strongly a violation's rule applies
type Category string

const (
	CategoryPotential Category = "potential"
	CategoryOptional  Category = "optional"
	CategoryMandatory Category = "mandatory"
)

// Severity represents the analyzer-assigned weight of a single incident
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// Incident represents a single analyzer finding at a file location
type Incident struct {
	// URI locates the affected file (file:// scheme)
	URI string `json:"uri" yaml:"uri"`

	// Message describes the finding
	Message string `json:"message" yaml:"message"`

	// CodeSnip holds surrounding source context, if the analyzer provided it
	CodeSnip string `json:"codeSnip,omitempty" yaml:"codeSnip,omitempty"`

	// LineNumber is 1-based; always >= 1 after normalization
	LineNumber int `json:"lineNumber" yaml:"lineNumber"`

	Severity  Severity       `json:"severity,omitempty" yaml:"severity,omitempty"`
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// IncidentKey is the identity used for incident deduplication
type IncidentKey struct {
	URI        string
	Message    string
	LineNumber int
}

// Key returns the incident's deduplication identity
func (i Incident) Key() IncidentKey {
	return IncidentKey{URI: i.URI, Message: i.Message, LineNumber: i.LineNumber}
}

// Violation represents one rule's findings within a ruleset
type Violation struct {
	Description string     `json:"description" yaml:"description"`
	Category    Category   `json:"category,omitempty" yaml:"category,omitempty"`
	Labels      []string   `json:"labels,omitempty" yaml:"labels,omitempty"`
	Incidents   []Incident `json:"incidents" yaml:"incidents"`
	Effort      int        `json:"effort,omitempty" yaml:"effort,omitempty"`
}

// RuleSet groups violations produced by one rule collection
type RuleSet struct {
	Name        string               `json:"name,omitempty" yaml:"name,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Violations  map[string]Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
	Errors      map[string]string    `json:"errors,omitempty" yaml:"errors,omitempty"`
	Unmatched   []string             `json:"unmatched,omitempty" yaml:"unmatched,omitempty"`
	Skipped     []string             `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// ViolationIDs returns the ruleset's violation identifiers in sorted order.
// Map iteration is randomized, so every consumer that needs deterministic
// output walks violations through this.
func (r RuleSet) ViolationIDs() []string {
	ids := make([]string, 0, len(r.Violations))
	for id := range r.Violations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IncidentCount returns the total incidents across all violations
func (r RuleSet) IncidentCount() int {
	n := 0
	for _, v := range r.Violations {
		n += len(v.Incidents)
	}
	return n
}

// TotalIncidents returns the incident count across all rulesets
func TotalIncidents(ruleSets []RuleSet) int {
	n := 0
	for _, rs := range ruleSets {
		n += rs.IncidentCount()
	}
	return n
}

// TotalViolations returns the violation count across all rulesets
func TotalViolations(ruleSets []RuleSet) int {
	n := 0
	for _, rs := range ruleSets {
		n += len(rs.Violations)
	}
	return n
}

// AffectedFiles returns the distinct incident file paths across all rulesets,
// sorted lexicographically.
func AffectedFiles(ruleSets []RuleSet) []string {
	seen := map[string]struct{}{}
	for _, rs := range ruleSets {
		for _, v := range rs.Violations {
			for _, inc := range v.Incidents {
				if p, err := URIToPath(inc.URI); err == nil {
					seen[p] = struct{}{}
				}
			}
		}
	}
	files := make([]string, 0, len(seen))
	for p := range seen {
		files = append(files, p)
	}
	sort.Strings(files)
	return files
}
