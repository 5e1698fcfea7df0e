// internal/catalog/formatter.go
//
// Flatten turns the category forest into one Entry per node, in pre-order.
//
// Each level contributes two path segments: the node's slug and an id
// segment carrying a level prefix (`cat`, `sub`, `child`).  A subcategory
// of "doctors/cat5" therefore lands at "doctors/cat5/dentists/sub12".
// Child categories hanging straight off a category are emitted after that
// category's subcategories.

package catalog

import (
	"github.com/yanizio/bizdir/internal/routing"
)

// Level identifies a node's depth in the tree.
type Level int

const (
	LevelCategory Level = iota
	LevelSubcategory
	LevelChild
)

// Prefix is the id-segment prefix for l.
func (l Level) Prefix() string {
	switch l {
	case LevelSubcategory:
		return "sub"
	case LevelChild:
		return "child"
	}
	return "cat"
}

func (l Level) unknownName() string {
	switch l {
	case LevelSubcategory:
		return "Unknown Subcategory"
	case LevelChild:
		return "Unknown Child Category"
	}
	return "Unknown Category"
}

// Entry is a flattened node.  FullPath has no leading slash.
type Entry struct {
	FullPath string `json:"fullPath"`
	Name     string `json:"name"`
}

// Flatten walks roots in pre-order.
func Flatten(roots []Node) []Entry {
	out := make([]Entry, 0, Count(roots))
	for _, n := range roots {
		out = flattenNode(out, n, LevelCategory, "")
	}
	return out
}

func flattenNode(out []Entry, n Node, lvl Level, parent string) []Entry {
	name := n.Name
	if name == "" {
		name = lvl.unknownName()
	}
	slug := n.Slug
	if slug == "" {
		slug = routing.Slugify(name)
	}

	path := slug + "/" + lvl.Prefix() + n.ID
	if parent != "" {
		path = parent + "/" + path
	}
	out = append(out, Entry{FullPath: path, Name: name})

	if lvl == LevelChild {
		return out
	}
	if lvl == LevelCategory {
		for _, s := range n.Subcategories {
			out = flattenNode(out, s, LevelSubcategory, path)
		}
	}
	for _, c := range n.ChildCategories {
		out = flattenNode(out, c, LevelChild, path)
	}
	return out
}
