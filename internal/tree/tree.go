// Package tree builds an ordered directory/file forest from flat path lists.
package tree

import (
	"sort"
	"strings"
)

// Kind distinguishes directory nodes from file nodes.
type Kind string

// Node kinds.
const (
	KindDirectory Kind = "directory"
	KindFile      Kind = "file"
)

// Record is the minimal surface the builder needs from a host file handle.
type Record interface {
	Path() string
}

// Node represents a file or directory in the tree.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Kind     Kind    `json:"kind"`
	Children []*Node `json:"children,omitempty"`

	// Record is the host handle attached to file nodes; nil for directories.
	Record Record `json:"-"`
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Kind == KindDirectory
}

// Build converts a flat list of records into an ordered forest. Paths are
// split on "/"; empty segments are dropped, so leading, trailing and
// repeated separators are tolerated. Re-processing a path already present
// reuses the existing node. If a path occurs both as a file and as a
// directory prefix, the first-registered node's kind wins and later
// conflicting records are dropped. An empty input yields an empty forest.
func Build(records []Record) []*Node {
	var roots []*Node

	for _, rec := range records {
		segments := splitPath(rec.Path())
		if len(segments) == 0 {
			continue
		}
		roots = insert(roots, segments, rec)
	}

	sortForest(roots)
	return roots
}

func insert(siblings []*Node, segments []string, rec Record) []*Node {
	name := segments[0]
	last := len(segments) == 1

	node := childByName(siblings, name)
	if node == nil {
		node = &Node{Name: name}
		if last {
			node.Kind = KindFile
			node.Record = rec
		} else {
			node.Kind = KindDirectory
		}
		siblings = append(siblings, node)
	}

	if last {
		// Existing node reused; a directory here keeps its kind.
		return siblings
	}

	if node.Kind == KindFile {
		// Conflicting prefix over an existing file: drop the record.
		return siblings
	}

	node.Children = insert(node.Children, segments[1:], rec)
	return siblings
}

func childByName(siblings []*Node, name string) *Node {
	for _, n := range siblings {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// sortForest orders every sibling level: directories before files, then
// case-aware lexicographic by name (folded case first, raw name as the
// tie-break so the order is total). Paths are assigned here so they always
// reflect the cleaned segment chain.
func sortForest(roots []*Node) {
	sortLevel(roots)
	for _, n := range roots {
		n.Path = n.Name
		assignPaths(n)
	}
}

func sortLevel(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if (nodes[i].Kind == KindDirectory) != (nodes[j].Kind == KindDirectory) {
			return nodes[i].Kind == KindDirectory
		}
		li, lj := strings.ToLower(nodes[i].Name), strings.ToLower(nodes[j].Name)
		if li != lj {
			return li < lj
		}
		return nodes[i].Name < nodes[j].Name
	})
}

func assignPaths(parent *Node) {
	sortLevel(parent.Children)
	for _, child := range parent.Children {
		child.Path = parent.Path + "/" + child.Name
		assignPaths(child)
	}
}

func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	segments := parts[:0]
	for _, s := range parts {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// FindByPath resolves a path anywhere in the forest.
func FindByPath(roots []*Node, path string) *Node {
	for _, n := range roots {
		if found := findByPath(n, path); found != nil {
			return found
		}
	}
	return nil
}

func findByPath(n *Node, path string) *Node {
	if n.Path == path {
		return n
	}
	for _, child := range n.Children {
		if found := findByPath(child, path); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits every node in display order, parents before children.
func Walk(roots []*Node, fn func(n *Node, depth int)) {
	for _, n := range roots {
		walk(n, 0, fn)
	}
}

func walk(n *Node, depth int, fn func(n *Node, depth int)) {
	fn(n, depth)
	for _, child := range n.Children {
		walk(child, depth+1, fn)
	}
}

// Flatten returns all nodes keyed by path.
func Flatten(roots []*Node) map[string]*Node {
	result := make(map[string]*Node)
	Walk(roots, func(n *Node, _ int) {
		result[n.Path] = n
	})
	return result
}

// CountNodes counts all nodes in the forest.
func CountNodes(roots []*Node) int {
	count := 0
	Walk(roots, func(*Node, int) { count++ })
	return count
}
