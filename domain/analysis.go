package domain

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// IngestRequest represents a request to merge one analysis result
type IngestRequest struct {
	// Path of the analyzer output file (YAML or JSON)
	Path string

	// Scope: the files the analysis run was asked to examine. Eviction is
	// keyed on this, not on the files present in the payload.
	ScopeFiles []string
	ScopeDirs  []string

	// Full marks a whole-workspace run: everything accumulated is in scope
	Full bool
}

// IngestResult summarizes one merge of analyzer output
type IngestResult struct {
	RuleSets         int      `json:"rule_sets" yaml:"rule_sets"`
	Violations       int      `json:"violations" yaml:"violations"`
	Incidents        int      `json:"incidents" yaml:"incidents"`
	ScopeFiles       int      `json:"scope_files" yaml:"scope_files"`
	AddedIncidents   int      `json:"added_incidents" yaml:"added_incidents"`
	EvictedIncidents int      `json:"evicted_incidents" yaml:"evicted_incidents"`
	UnknownRuleSets  []string `json:"unknown_rule_sets,omitempty" yaml:"unknown_rule_sets,omitempty"`
	Anomalies        []string `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
	AnalysisVersion  uint64   `json:"analysis_version" yaml:"analysis_version"`
	DurationMs       int64    `json:"duration_ms" yaml:"duration_ms"`
	GeneratedAt      string   `json:"generated_at" yaml:"generated_at"`
}

// NodeKind tags entries in the issue tree arena
type NodeKind string

const (
	NodeKindGroup    NodeKind = "group"
	NodeKindFile     NodeKind = "file"
	NodeKindIncident NodeKind = "incident"
)

// IssueNode is one arena entry. Nodes reference each other only through
// indices into the enclosing tree's Nodes slice.
type IssueNode struct {
	Kind     NodeKind `json:"kind" yaml:"kind"`
	Parent   int      `json:"parent" yaml:"parent"` // -1 for roots
	Children []int    `json:"children,omitempty" yaml:"children,omitempty"`

	// Message is the group's shared incident message
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// URI locates file and incident nodes
	URI string `json:"uri,omitempty" yaml:"uri,omitempty"`

	// Incident payload, set on incident nodes only
	Incident *Incident `json:"incident,omitempty" yaml:"incident,omitempty"`

	// Label is the group's pluralized count summary
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	IncidentCount int `json:"incident_count,omitempty" yaml:"incident_count,omitempty"`
	FileCount     int `json:"file_count,omitempty" yaml:"file_count,omitempty"`
}

// IssueTree is the aggregated view over the accumulated rulesets
type IssueTree struct {
	Nodes          []IssueNode `json:"nodes" yaml:"nodes"`
	Roots          []int       `json:"roots" yaml:"roots"`
	TotalIncidents int         `json:"total_incidents" yaml:"total_incidents"`
	TotalFiles     int         `json:"total_files" yaml:"total_files"`

	// Version is the ruleset version the tree was built from
	Version uint64 `json:"version" yaml:"version"`
}

// MarkerSeverity represents an editor diagnostic severity
type MarkerSeverity string

const (
	MarkerSeverityError       MarkerSeverity = "Error"
	MarkerSeverityWarning     MarkerSeverity = "Warning"
	MarkerSeverityHint        MarkerSeverity = "Hint"
	MarkerSeverityInformation MarkerSeverity = "Information"
)

// SeverityForCategory maps a violation category to a marker severity
func SeverityForCategory(c Category) MarkerSeverity {
	switch c {
	case CategoryMandatory:
		return MarkerSeverityError
	case CategoryOptional:
		return MarkerSeverityWarning
	case CategoryPotential:
		return MarkerSeverityHint
	default:
		return MarkerSeverityInformation
	}
}

// Diagnostic is one editor marker derived from an incident
type Diagnostic struct {
	URI string `json:"uri" yaml:"uri"`

	// Line is 0-based (incident lineNumber - 1)
	Line int `json:"line" yaml:"line"`

	Severity MarkerSeverity `json:"severity" yaml:"severity"`
	Message  string         `json:"message" yaml:"message"`

	// Code carries the violation ID, Source the ruleset name
	Code   string `json:"code,omitempty" yaml:"code,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}
