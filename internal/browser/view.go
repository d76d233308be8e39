// Package browser implements the file browser: a collapsible tree view
// over the host's file lists, with refresh and per-collection sections.
package browser

import (
	"github.com/codedeck/codedeck/internal/tree"
)

// defaultExpandDepth expands the first two nesting levels by default.
const defaultExpandDepth = 2

// Row is one visible line of the rendered tree.
type Row struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Kind     tree.Kind `json:"kind"`
	Depth    int       `json:"depth"`
	Expanded bool      `json:"expanded,omitempty"`
	Selected bool      `json:"selected,omitempty"`
}

// TreeView renders a forest with per-directory expand/collapse state.
// Expansion is keyed by path in a map owned by the view, so it survives
// tree rebuilds when the underlying list refreshes.
type TreeView struct {
	roots    []*tree.Node
	expanded map[string]bool // explicit toggles; absent means default
}

// NewTreeView returns an empty view.
func NewTreeView() *TreeView {
	return &TreeView{expanded: make(map[string]bool)}
}

// SetRecords rebuilds the forest from a fresh record list. Explicit
// expand/collapse choices are kept.
func (v *TreeView) SetRecords(records []tree.Record) {
	v.roots = tree.Build(records)
}

// Toggle flips one directory's expansion and reports the new state.
// Toggling a file or unknown path is a no-op.
func (v *TreeView) Toggle(path string) bool {
	node := tree.FindByPath(v.roots, path)
	if node == nil || !node.IsDir() {
		return false
	}

	depth := pathDepth(path)
	expanded := v.isExpanded(path, depth)
	v.expanded[path] = !expanded
	return !expanded
}

// Select resolves a file row to its record. Directories yield no record.
func (v *TreeView) Select(path string) (tree.Record, bool) {
	node := tree.FindByPath(v.roots, path)
	if node == nil || node.Kind != tree.KindFile {
		return nil, false
	}
	return node.Record, true
}

// Rows returns the visible rows in display order. Selection highlight is
// derived from the given path, never stored.
func (v *TreeView) Rows(selectedPath string) []Row {
	rows := make([]Row, 0, len(v.roots))
	for _, n := range v.roots {
		rows = v.appendRows(rows, n, 0, selectedPath)
	}
	return rows
}

func (v *TreeView) appendRows(rows []Row, n *tree.Node, depth int, selectedPath string) []Row {
	row := Row{
		Name:     n.Name,
		Path:     n.Path,
		Kind:     n.Kind,
		Depth:    depth,
		Selected: n.Kind == tree.KindFile && n.Path == selectedPath,
	}

	if n.IsDir() {
		row.Expanded = v.isExpanded(n.Path, depth)
		rows = append(rows, row)
		if row.Expanded {
			for _, child := range n.Children {
				rows = v.appendRows(rows, child, depth+1, selectedPath)
			}
		}
		return rows
	}

	return append(rows, row)
}

func (v *TreeView) isExpanded(path string, depth int) bool {
	if explicit, ok := v.expanded[path]; ok {
		return explicit
	}
	return depth < defaultExpandDepth
}

func pathDepth(path string) int {
	depth := 0
	for _, r := range path {
		if r == '/' {
			depth++
		}
	}
	return depth
}
