package service

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	runewidth "github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/internal/version"
)

// OutputFormatterImpl implements the OutputFormatter interface
type OutputFormatterImpl struct{}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

var (
	headingColor = color.New(color.Bold)
	countColor   = color.New(color.FgCyan)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

// WriteJSON writes data as JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML to the writer
func WriteYAML(writer io.Writer, data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	_, err = writer.Write(out)
	return err
}

// IssueTreeJSON wraps the issue tree with report metadata
type IssueTreeJSON struct {
	Version     string            `json:"version" yaml:"version"`
	GeneratedAt string            `json:"generated_at" yaml:"generated_at"`
	Tree        *domain.IssueTree `json:"tree" yaml:"tree"`
}

// WriteTree writes the aggregated issue tree in the specified format
func (f *OutputFormatterImpl) WriteTree(tree *domain.IssueTree, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, f.treeReport(tree))
	case domain.OutputFormatYAML:
		return WriteYAML(writer, f.treeReport(tree))
	case domain.OutputFormatText:
		return f.writeTreeText(tree, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteDiagnostics writes editor diagnostics in the specified format
func (f *OutputFormatterImpl) WriteDiagnostics(diagnostics []domain.Diagnostic, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, diagnostics)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, diagnostics)
	case domain.OutputFormatText:
		return f.writeDiagnosticsText(diagnostics, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteChanges writes the staged change list in the specified format
func (f *OutputFormatterImpl) WriteChanges(changes []domain.LocalChange, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, changes)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, changes)
	case domain.OutputFormatText:
		return f.writeChangesText(changes, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteIngest writes the outcome of one analysis merge in the specified format
func (f *OutputFormatterImpl) WriteIngest(result *domain.IngestResult, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, result)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, result)
	case domain.OutputFormatText:
		return f.writeIngestText(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteSolution writes the outcome of staging one solution in the specified format
func (f *OutputFormatterImpl) WriteSolution(result *domain.SolutionResult, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, result)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, result)
	case domain.OutputFormatText:
		return f.writeSolutionText(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteBatch writes the per-file outcome of a batch operation in the specified format
func (f *OutputFormatterImpl) WriteBatch(result *domain.BatchResult, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, result)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, result)
	case domain.OutputFormatText:
		return f.writeBatchText(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteStatus writes the engine status report in the specified format
func (f *OutputFormatterImpl) WriteStatus(report *domain.StatusReport, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, report)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, report)
	case domain.OutputFormatText:
		return f.writeStatusText(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteMergeHistory writes journaled merge records in the specified format
func (f *OutputFormatterImpl) WriteMergeHistory(records []MergeRecord, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, records)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, records)
	case domain.OutputFormatText:
		return f.writeMergeHistoryText(records, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteChangeHistory writes journaled change events in the specified format
func (f *OutputFormatterImpl) WriteChangeHistory(records []ChangeEventRecord, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, records)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, records)
	case domain.OutputFormatText:
		return f.writeChangeHistoryText(records, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func (f *OutputFormatterImpl) treeReport(tree *domain.IssueTree) IssueTreeJSON {
	return IssueTreeJSON{
		Version:     version.GetVersion(),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Tree:        tree,
	}
}

// writeTreeText writes the issue tree as indented plain text
func (f *OutputFormatterImpl) writeTreeText(tree *domain.IssueTree, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Analysis Issues ===\n\n")

	if tree == nil || len(tree.Roots) == 0 {
		fmt.Fprintf(writer, "No outstanding issues.\n")
		return nil
	}

	for _, rootIdx := range tree.Roots {
		group := tree.Nodes[rootIdx]
		fmt.Fprintf(writer, "%s %s\n",
			headingColor.Sprint(group.Message),
			countColor.Sprintf("(%s)", group.Label))

		for _, fileIdx := range group.Children {
			file := tree.Nodes[fileIdx]
			fmt.Fprintf(writer, "  %s\n", displayPath(file.URI))

			for _, incIdx := range file.Children {
				inc := tree.Nodes[incIdx].Incident
				if inc == nil {
					continue
				}
				fmt.Fprintf(writer, "    %s %s\n",
					dimColor.Sprintf("%d:", inc.LineNumber), inc.Message)
			}
		}
		fmt.Fprintf(writer, "\n")
	}

	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Issues: %d\n", len(tree.Roots))
	fmt.Fprintf(writer, "  Incidents: %d\n", tree.TotalIncidents)
	fmt.Fprintf(writer, "  Affected files: %d\n", tree.TotalFiles)
	return nil
}

// writeDiagnosticsText writes diagnostics grouped by file as plain text
func (f *OutputFormatterImpl) writeDiagnosticsText(diagnostics []domain.Diagnostic, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Diagnostics ===\n\n")

	if len(diagnostics) == 0 {
		fmt.Fprintf(writer, "No diagnostics.\n")
		return nil
	}

	grouped := GroupDiagnosticsByURI(diagnostics)
	uris := make([]string, 0, len(grouped))
	for uri := range grouped {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	for _, uri := range uris {
		fmt.Fprintf(writer, "%s:\n", displayPath(uri))
		for _, d := range grouped[uri] {
			indicator := severityColor(d.Severity).Sprintf("[%s]", d.Severity)
			fmt.Fprintf(writer, "  %d: %s %s", d.Line+1, indicator, d.Message)
			if d.Code != "" {
				fmt.Fprintf(writer, " (%s)", d.Code)
			}
			fmt.Fprintf(writer, "\n")
		}
	}

	fmt.Fprintf(writer, "\nTotal diagnostics: %d\n", len(diagnostics))
	return nil
}

// writeChangesText writes the staged changes as an aligned table
func (f *OutputFormatterImpl) writeChangesText(changes []domain.LocalChange, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Staged Changes ===\n\n")

	if len(changes) == 0 {
		fmt.Fprintf(writer, "No staged changes.\n")
		return nil
	}

	states := make([]string, len(changes))
	paths := make([]string, len(changes))
	for i, ch := range changes {
		states[i] = string(ch.State)
		paths[i] = displayPath(ch.OriginalURI)
	}
	stateWidth := columnWidth("STATE", states)
	pathWidth := columnWidth("FILE", paths)

	fmt.Fprintf(writer, "%s  %s  %s\n",
		padCell("STATE", stateWidth), padCell("FILE", pathWidth), "ID")
	for i, ch := range changes {
		cell := stateColor(ch.State).Sprint(padCell(states[i], stateWidth))
		fmt.Fprintf(writer, "%s  %s  %s\n", cell, padCell(paths[i], pathWidth), ch.ID)
	}

	pending, applied, discarded := 0, 0, 0
	for _, ch := range changes {
		switch ch.State {
		case domain.ChangeStatePending:
			pending++
		case domain.ChangeStateApplied:
			applied++
		case domain.ChangeStateDiscarded:
			discarded++
		}
	}
	fmt.Fprintf(writer, "\n%d pending, %d applied, %d discarded\n", pending, applied, discarded)
	return nil
}

// writeIngestText writes the merge outcome as plain text
func (f *OutputFormatterImpl) writeIngestText(result *domain.IngestResult, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Analysis Merge ===\n\n")
	fmt.Fprintf(writer, "Generated: %s\n", result.GeneratedAt)
	fmt.Fprintf(writer, "Duration: %dms\n\n", result.DurationMs)

	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Rule sets: %d\n", result.RuleSets)
	fmt.Fprintf(writer, "  Violations: %d\n", result.Violations)
	fmt.Fprintf(writer, "  Incidents: %d\n", result.Incidents)
	fmt.Fprintf(writer, "  Scope files: %d\n", result.ScopeFiles)
	fmt.Fprintf(writer, "  Added incidents: %d\n", result.AddedIncidents)
	fmt.Fprintf(writer, "  Evicted incidents: %d\n", result.EvictedIncidents)
	fmt.Fprintf(writer, "  Analysis version: %d\n", result.AnalysisVersion)

	if len(result.UnknownRuleSets) > 0 {
		fmt.Fprintf(writer, "\nUnknown rule sets:\n")
		for _, name := range result.UnknownRuleSets {
			fmt.Fprintf(writer, "  - %s\n", warnColor.Sprint(name))
		}
	}
	writeAnomalies(writer, result.Anomalies)
	return nil
}

// writeSolutionText writes the staging outcome as plain text
func (f *OutputFormatterImpl) writeSolutionText(result *domain.SolutionResult, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Solution Staging ===\n\n")

	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Staged changes: %d\n", result.StagedChanges)
	fmt.Fprintf(writer, "  Dropped renames: %d\n", result.DroppedRenames)
	fmt.Fprintf(writer, "  Dropped sections: %d\n", result.DroppedSections)
	fmt.Fprintf(writer, "  Change version: %d\n", result.ChangeVersion)

	if len(result.PatchFallbacks) > 0 {
		fmt.Fprintf(writer, "\nPatch fallbacks (raw diff staged):\n")
		for _, path := range result.PatchFallbacks {
			fmt.Fprintf(writer, "  - %s\n", warnColor.Sprint(path))
		}
	}
	if len(result.GeneratorErrors) > 0 {
		fmt.Fprintf(writer, "\nGenerator errors:\n")
		for _, e := range result.GeneratorErrors {
			fmt.Fprintf(writer, "  - %s\n", errorColor.Sprint(e))
		}
	}
	writeAnomalies(writer, result.Anomalies)
	return nil
}

// writeBatchText writes the batch outcome as plain text
func (f *OutputFormatterImpl) writeBatchText(result *domain.BatchResult, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Batch Result ===\n\n")

	if len(result.Succeeded) == 0 && len(result.Failed) == 0 {
		fmt.Fprintf(writer, "No pending changes.\n")
		return nil
	}

	for _, path := range result.Succeeded {
		fmt.Fprintf(writer, "  %s %s\n", okColor.Sprint("ok"), path)
	}
	for _, failure := range result.Failed {
		fmt.Fprintf(writer, "  %s %s: %s\n",
			errorColor.Sprint("failed"), failure.Path, failure.Reason)
	}

	fmt.Fprintf(writer, "\n%d succeeded, %d failed\n", len(result.Succeeded), len(result.Failed))
	return nil
}

// writeStatusText writes the status report as plain text
func (f *OutputFormatterImpl) writeStatusText(report *domain.StatusReport, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Remedy Status ===\n\n")
	fmt.Fprintf(writer, "Workspace: %s\n", report.WorkspaceRoot)
	fmt.Fprintf(writer, "Version: %s\n\n", version.GetVersion())

	fmt.Fprintf(writer, "Analysis:\n")
	fmt.Fprintf(writer, "  State version: %d\n", report.AnalysisVersion)
	fmt.Fprintf(writer, "  Rule sets: %d\n", report.RuleSets)
	fmt.Fprintf(writer, "  Violations: %d\n", report.Violations)
	fmt.Fprintf(writer, "  Incidents: %d\n", report.Incidents)
	fmt.Fprintf(writer, "  Affected files: %d\n\n", report.AffectedFiles)

	fmt.Fprintf(writer, "Changes:\n")
	fmt.Fprintf(writer, "  State version: %d\n", report.ChangeVersion)
	fmt.Fprintf(writer, "  Pending: %d\n", report.PendingChanges)
	fmt.Fprintf(writer, "  Applied: %d\n", report.AppliedChanges)
	fmt.Fprintf(writer, "  Discarded: %d\n", report.DiscardedChanges)
	fmt.Fprintf(writer, "  Overlay entries: %d\n", report.OverlayEntries)
	return nil
}

// writeMergeHistoryText writes journaled merges as plain text
func (f *OutputFormatterImpl) writeMergeHistoryText(records []MergeRecord, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Merge History ===\n\n")

	if len(records) == 0 {
		fmt.Fprintf(writer, "No recorded merges.\n")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(writer, "%s  %s\n", dimColor.Sprint(rec.OccurredAt), rec.SourcePath)
		fmt.Fprintf(writer, "    added %d, evicted %d, scope %d files (version %d)\n",
			rec.Added, rec.Evicted, rec.ScopeFiles, rec.AnalysisVersion)
		if rec.Anomalies > 0 {
			fmt.Fprintf(writer, "    %s\n", warnColor.Sprintf("%d anomalies", rec.Anomalies))
		}
	}
	return nil
}

// writeChangeHistoryText writes journaled change events as plain text
func (f *OutputFormatterImpl) writeChangeHistoryText(records []ChangeEventRecord, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Change History ===\n\n")

	if len(records) == 0 {
		fmt.Fprintf(writer, "No recorded change events.\n")
		return nil
	}

	events := make([]string, len(records))
	for i, rec := range records {
		events[i] = rec.Event
	}
	eventWidth := columnWidth("", events)

	for _, rec := range records {
		fmt.Fprintf(writer, "%s  %s  %s", dimColor.Sprint(rec.OccurredAt),
			eventColor(rec.Event).Sprint(padCell(rec.Event, eventWidth)), rec.Path)
		if rec.Detail != "" {
			fmt.Fprintf(writer, " (%s)", rec.Detail)
		}
		fmt.Fprintf(writer, "\n")
	}
	return nil
}

func writeAnomalies(writer io.Writer, anomalies []string) {
	if len(anomalies) == 0 {
		return
	}
	fmt.Fprintf(writer, "\nAnomalies:\n")
	for _, a := range anomalies {
		fmt.Fprintf(writer, "  - %s\n", a)
	}
}

// displayPath renders a file URI as a plain path, falling back to the raw URI
func displayPath(uri string) string {
	if path, err := domain.URIToPath(uri); err == nil {
		return path
	}
	return uri
}

func severityColor(s domain.MarkerSeverity) *color.Color {
	switch s {
	case domain.MarkerSeverityError:
		return errorColor
	case domain.MarkerSeverityWarning:
		return warnColor
	default:
		return dimColor
	}
}

func stateColor(s domain.ChangeState) *color.Color {
	switch s {
	case domain.ChangeStatePending:
		return warnColor
	case domain.ChangeStateApplied:
		return okColor
	default:
		return dimColor
	}
}

func eventColor(event string) *color.Color {
	switch event {
	case JournalEventApplied:
		return okColor
	case JournalEventDiscarded:
		return dimColor
	default:
		return warnColor
	}
}

// columnWidth returns the display width of the widest value, header included
func columnWidth(header string, values []string) int {
	width := runewidth.StringWidth(header)
	for _, v := range values {
		if w := runewidth.StringWidth(v); w > width {
			width = w
		}
	}
	return width
}

// padCell pads value with spaces to the given display width
func padCell(value string, width int) string {
	gap := width - runewidth.StringWidth(value)
	if gap <= 0 {
		return value
	}
	return value + strings.Repeat(" ", gap)
}
