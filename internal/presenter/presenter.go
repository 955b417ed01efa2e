// Package presenter exposes the canonical manifest tree to a pull-based
// list UI. Loading is lazy: the manifest is fetched and parsed the first
// time root children are requested, and Refresh discards everything and
// notifies the view that the whole tree changed. Invalidation is coarse
// because manifests are small and refreshes infrequent.
package presenter

import (
	"context"
	"time"

	snarferrors "github.com/coursekit/snarf/core/errors"
	"github.com/coursekit/snarf/core/manifest"
	"github.com/coursekit/snarf/internal/fetch"
	"github.com/coursekit/snarf/internal/logging"
)

// NodeKind discriminates presentable nodes.
type NodeKind int

const (
	// KindGroup is an internal group/category node.
	KindGroup NodeKind = iota
	// KindEntry is a leaf assignment node.
	KindEntry
	// KindError is the placeholder shown when the manifest could not be
	// fetched or parsed, so "couldn't read assignments" never looks
	// like "no assignments".
	KindError
)

// Node is one presentable tree node.
type Node struct {
	Kind  NodeKind
	Label string

	// Group is set for KindGroup nodes.
	Group *manifest.Group
	// Entry is set for KindEntry nodes.
	Entry *manifest.Entry
	// Err is set for KindError nodes.
	Err error
}

// View is the UI collaborator notified on refresh.
type View interface {
	// TreeChanged signals that all previously returned nodes are stale.
	TreeChanged()
}

// Presenter loads and shapes the manifest tree.
type Presenter struct {
	client     *fetch.Client
	view       View
	url        string
	formatHint string

	loaded bool
	root   *manifest.Root
	err    error
}

// New creates a Presenter for the manifest at url. formatHint may name a
// registered format or be empty for content sniffing. view may be nil.
func New(client *fetch.Client, view View, url, formatHint string) *Presenter {
	return &Presenter{client: client, view: view, url: url, formatHint: formatHint}
}

// Root returns the loaded manifest root, loading it on first use. The
// error placeholder behavior belongs to Children; callers needing the
// raw tree get the load error directly.
func (p *Presenter) Root(ctx context.Context) (*manifest.Root, error) {
	p.ensureLoaded(ctx)
	return p.root, p.err
}

// Children returns the ordered presentable children of node, or of the
// root when node is nil. Groups come first, then entries, each sorted
// case-insensitively by label. A load failure yields a single error
// placeholder node.
func (p *Presenter) Children(ctx context.Context, node *Node) []*Node {
	if node == nil {
		p.ensureLoaded(ctx)
		if p.err != nil {
			return []*Node{{Kind: KindError, Label: "Could not load assignments", Err: p.err}}
		}
		return shape(p.root.Groups, p.root.Entries)
	}

	switch node.Kind {
	case KindGroup:
		return shape(node.Group.Groups, node.Group.Entries)
	default:
		return nil
	}
}

// Refresh discards all previously fetched data, reloads the manifest,
// and notifies the view that the entire tree changed.
func (p *Presenter) Refresh(ctx context.Context) {
	p.loaded = false
	p.root = nil
	p.err = nil
	p.ensureLoaded(ctx)
	if p.view != nil {
		p.view.TreeChanged()
	}
}

func (p *Presenter) ensureLoaded(ctx context.Context) {
	if p.loaded {
		return
	}
	p.loaded = true

	start := time.Now()
	raw, err := p.client.Fetch(ctx, p.url)
	if err != nil {
		p.err = err
		logging.PipelineError("presenter", "fetch", err, "url", p.url)
		return
	}

	root, err := manifest.Parse(raw, p.formatHint)
	if err != nil {
		p.err = err
		if snarferrors.Is(err, snarferrors.ErrFormat) {
			logging.PipelineError("presenter", "parse", err, "url", p.url)
		}
		return
	}

	p.root = root
	logging.ManifestFetch(p.url, p.formatHint, len(root.Flatten()), time.Since(start))
}

// shape copies and orders one sibling level for presentation.
func shape(groups []*manifest.Group, entries []*manifest.Entry) []*Node {
	sortedGroups := make([]*manifest.Group, len(groups))
	copy(sortedGroups, groups)
	sortedEntries := make([]*manifest.Entry, len(entries))
	copy(sortedEntries, entries)
	manifest.SortSiblings(sortedGroups, sortedEntries)

	nodes := make([]*Node, 0, len(sortedGroups)+len(sortedEntries))
	for _, g := range sortedGroups {
		nodes = append(nodes, &Node{Kind: KindGroup, Label: g.Name, Group: g})
	}
	for _, e := range sortedEntries {
		nodes = append(nodes, &Node{Kind: KindEntry, Label: e.Label, Entry: e})
	}
	return nodes
}
