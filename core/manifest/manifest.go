// Package manifest provides the canonical data model for remote course
// manifests. A manifest enumerates downloadable assignment packages or
// submission targets; three historical wire shapes exist (flat JSON,
// attribute XML, element XML) and each is parsed by a format handler into
// the single tree defined here: Root -> Group (optional) -> Entry.
package manifest

import (
	"path"
	"sort"
	"strings"

	snarferrors "github.com/coursekit/snarf/core/errors"
)

// Param is a single named request or file parameter on an endpoint.
// Value may be a literal or a placeholder token such as "${user}",
// resolved at submission time. Params are ordered.
type Param struct {
	Name  string
	Value string
}

// Endpoint describes how to fetch from or submit to a remote target.
// An Endpoint is immutable once parsed; placeholder substitution happens
// at use time and never mutates the endpoint.
type Endpoint struct {
	URI           string
	RequestParams []Param
	FileParams    []Param
}

// Entry is a leaf manifest node: one downloadable assignment package or
// one submission target.
type Entry struct {
	// Label is the display name. A sanitized form of it also names the
	// destination folder during materialization.
	Label       string
	Description string

	// Endpoints holds one or more transports. The first is the primary
	// transport used for downloads.
	Endpoints []Endpoint

	// ExcludePatterns are the entry-local glob patterns. The effective
	// set for a pipeline run is the union of root, group, and entry
	// patterns plus the fixed built-ins; see EffectiveExcludes.
	ExcludePatterns []string

	// Digest is an optional BLAKE3 hex digest of the entry's archive.
	// When present the downloaded archive is verified before extraction.
	Digest string
}

// Primary returns the entry's primary endpoint.
func (e *Entry) Primary() (*Endpoint, error) {
	if len(e.Endpoints) == 0 {
		return nil, &snarferrors.FormatError{Field: "transport", Message: "entry has no endpoints"}
	}
	return &e.Endpoints[0], nil
}

// Group is an optional internal node. Nesting depth is format-dependent;
// every historical shape has at most one level of grouping, but the model
// does not assume it.
type Group struct {
	Name            string
	ExcludePatterns []string
	Groups          []*Group
	Entries         []*Entry
}

// Root is the top of the canonical tree. Root-level exclude patterns are
// inherited by all descendants.
type Root struct {
	Label           string
	ExcludePatterns []string
	Groups          []*Group
	Entries         []*Entry
}

// Flatten returns all leaf entries in the tree in document order.
func (r *Root) Flatten() []*Entry {
	var out []*Entry
	var walk func(groups []*Group, entries []*Entry)
	walk = func(groups []*Group, entries []*Entry) {
		out = append(out, entries...)
		for _, g := range groups {
			walk(g.Groups, g.Entries)
		}
	}
	walk(r.Groups, r.Entries)
	return out
}

// FindEntry locates a leaf entry by label, searching groups recursively.
// Labels are unique within a sibling set, not globally; the first match
// in document order wins.
func (r *Root) FindEntry(label string) *Entry {
	e, _ := r.Lookup(label)
	return e
}

// Lookup locates a leaf entry by label and returns it together with the
// exclude patterns inherited along its path (root patterns, then each
// enclosing group's, then the entry's own), unioned in that order. The
// fixed built-ins are not included; pipelines add them via
// EffectiveExcludes.
func (r *Root) Lookup(label string) (*Entry, []string) {
	var walk func(groups []*Group, entries []*Entry, inherited [][]string) (*Entry, []string)
	walk = func(groups []*Group, entries []*Entry, inherited [][]string) (*Entry, []string) {
		for _, e := range entries {
			if e.Label == label {
				sets := append(append([][]string{}, inherited...), e.ExcludePatterns)
				return e, EffectiveExcludesWithoutBuiltins(sets...)
			}
		}
		for _, g := range groups {
			if e, patterns := walk(g.Groups, g.Entries, append(inherited, g.ExcludePatterns)); e != nil {
				return e, patterns
			}
		}
		return nil, nil
	}
	return walk(r.Groups, r.Entries, [][]string{r.ExcludePatterns})
}

// BuiltinExcludes is the fixed list of cloud-document artifact patterns
// that later pipeline stages always exclude, regardless of what the
// manifest declares.
var BuiltinExcludes = []string{
	"*.gdoc",
	"*.gsheet",
	"*.gslides",
	"*.gdraw",
	"*.gform",
	"*.gtable",
}

// EffectiveExcludes unions the given pattern sets with BuiltinExcludes,
// preserving first-seen order and collapsing duplicates. Pipelines pass
// the root, group, and entry pattern lists for the target entry.
func EffectiveExcludes(sets ...[]string) []string {
	return union(append(sets, BuiltinExcludes))
}

// EffectiveExcludesWithoutBuiltins unions pattern sets without appending
// the built-in cloud-document patterns. Used when the union is an
// intermediate result that EffectiveExcludes will finish later.
func EffectiveExcludesWithoutBuiltins(sets ...[]string) []string {
	return union(sets)
}

func union(sets [][]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, patterns := range sets {
		for _, p := range patterns {
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Excluded reports whether relPath (slash-separated, relative to the
// archive or project root) matches any of the given glob patterns. A
// pattern is tried against the full relative path and against the base
// name, so "*.gdoc" excludes cloud docs anywhere in the tree. Malformed
// patterns never match.
func Excluded(relPath string, patterns []string) bool {
	base := path.Base(relPath)
	for _, p := range patterns {
		if ok, err := path.Match(p, relPath); err == nil && ok {
			return true
		}
		if ok, err := path.Match(p, base); err == nil && ok {
			return true
		}
	}
	return false
}

// SortSiblings orders groups and entries for presentation: groups first,
// each list sorted case-insensitively by name/label ascending. The parse
// order is preserved for equal keys.
func SortSiblings(groups []*Group, entries []*Entry) {
	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Label) < strings.ToLower(entries[j].Label)
	})
}
