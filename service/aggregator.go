package service

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/remedy-kit/remedy/domain"
)

// IssueAggregator builds the grouped issue tree over the accumulated
// rulesets: message groups in first-seen order, files sorted lexicographically
// within a group, incidents by ascending line within a file. The tree is
// memoized on the ruleset version token so reads between merges cost nothing.
type IssueAggregator struct {
	mu     sync.Mutex
	cached *domain.IssueTree
	logger *slog.Logger
}

// NewIssueAggregator creates an aggregator
func NewIssueAggregator(logger *slog.Logger) *IssueAggregator {
	return &IssueAggregator{logger: logger.With("component", "aggregator")}
}

// Tree returns the issue tree for the given rulesets. The version token must
// come from the state that produced ruleSets; a matching cached tree is
// returned as is. Callers treat the result as read-only.
func (a *IssueAggregator) Tree(ruleSets []domain.RuleSet, version uint64) *domain.IssueTree {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached != nil && a.cached.Version == version {
		return a.cached
	}

	tree := buildIssueTree(ruleSets, version)
	a.logger.Debug("issue tree rebuilt",
		"version", version,
		"groups", len(tree.Roots),
		"incidents", tree.TotalIncidents)
	a.cached = tree
	return tree
}

// Invalidate drops the cached tree
func (a *IssueAggregator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cached = nil
}

type fileBucket struct {
	uri       string
	incidents []domain.Incident
}

type groupBucket struct {
	message string
	files   []*fileBucket
	byURI   map[string]*fileBucket
}

// buildIssueTree walks rulesets in slice order and violations in sorted ID
// order so the same state always yields the same arena layout.
func buildIssueTree(ruleSets []domain.RuleSet, version uint64) *domain.IssueTree {
	var groups []*groupBucket
	byMessage := map[string]*groupBucket{}
	allFiles := map[string]struct{}{}
	total := 0

	for _, rs := range ruleSets {
		for _, id := range rs.ViolationIDs() {
			for _, inc := range rs.Violations[id].Incidents {
				g, ok := byMessage[inc.Message]
				if !ok {
					g = &groupBucket{message: inc.Message, byURI: map[string]*fileBucket{}}
					byMessage[inc.Message] = g
					groups = append(groups, g)
				}
				f, ok := g.byURI[inc.URI]
				if !ok {
					f = &fileBucket{uri: inc.URI}
					g.byURI[inc.URI] = f
					g.files = append(g.files, f)
				}
				f.incidents = append(f.incidents, inc)
				allFiles[inc.URI] = struct{}{}
				total++
			}
		}
	}

	tree := &domain.IssueTree{
		Roots:          []int{},
		TotalIncidents: total,
		TotalFiles:     len(allFiles),
		Version:        version,
	}

	for _, g := range groups {
		sort.Slice(g.files, func(i, j int) bool { return g.files[i].uri < g.files[j].uri })

		groupIdx := len(tree.Nodes)
		tree.Nodes = append(tree.Nodes, domain.IssueNode{
			Kind:          domain.NodeKindGroup,
			Parent:        -1,
			Message:       g.message,
			IncidentCount: groupIncidents(g),
			FileCount:     len(g.files),
		})
		tree.Nodes[groupIdx].Label = CountLabel(tree.Nodes[groupIdx].IncidentCount, len(g.files))
		tree.Roots = append(tree.Roots, groupIdx)

		for _, f := range g.files {
			sort.SliceStable(f.incidents, func(i, j int) bool {
				return f.incidents[i].LineNumber < f.incidents[j].LineNumber
			})

			fileIdx := len(tree.Nodes)
			tree.Nodes = append(tree.Nodes, domain.IssueNode{
				Kind:          domain.NodeKindFile,
				Parent:        groupIdx,
				URI:           f.uri,
				IncidentCount: len(f.incidents),
			})
			tree.Nodes[groupIdx].Children = append(tree.Nodes[groupIdx].Children, fileIdx)

			for _, inc := range f.incidents {
				incident := inc
				incIdx := len(tree.Nodes)
				tree.Nodes = append(tree.Nodes, domain.IssueNode{
					Kind:     domain.NodeKindIncident,
					Parent:   fileIdx,
					URI:      inc.URI,
					Message:  inc.Message,
					Incident: &incident,
				})
				tree.Nodes[fileIdx].Children = append(tree.Nodes[fileIdx].Children, incIdx)
			}
		}
	}

	return tree
}

func groupIncidents(g *groupBucket) int {
	n := 0
	for _, f := range g.files {
		n += len(f.incidents)
	}
	return n
}

// CountLabel renders the pluralized count summary shown on group nodes
func CountLabel(incidents, files int) string {
	incidentWord := "incidents"
	if incidents == 1 {
		incidentWord = "incident"
	}
	fileWord := "files"
	if files == 1 {
		fileWord = "file"
	}
	return fmt.Sprintf("%d %s in %d %s", incidents, incidentWord, files, fileWord)
}
