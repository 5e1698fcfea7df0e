// internal/catalog/tree.go
//
// Category tree model and tolerant decoding.
//
// Context
// -------
// main-search.php has shipped several shapes over time.  The outer envelope
// may be `{data:{categories:[…]}}`, `{categories:[…]}`, `{data:[…]}`, or a
// bare array.  Inside a node the display name and the child lists go by
// different keys per level and per deployment.  Decode accepts every variant
// we have seen and produces one strict Node tree.
//
// Notes
// -----
// • `null` entries inside child arrays are skipped.
// • ids arrive as numbers or strings; both become strings.
// • Oxford commas, two spaces after periods.

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Node is one category, subcategory, or child category.
type Node struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug,omitempty"`
	Subcategories   []Node `json:"subcategories,omitempty"`
	ChildCategories []Node `json:"childCategories,omitempty"`
}

var (
	nameKeys  = []string{"name", "category_name", "subcategory_name", "child_category_name", "childcategory_name"}
	subKeys   = []string{"subcategories", "sub_categories"}
	childKeys = []string{"child_categories", "childCategories", "children"}
)

// ErrShape is returned when the body holds no recognisable category list.
var ErrShape = errors.New("catalog: unrecognised category envelope")

// Decode extracts the top-level categories from a main-search.php body.
func Decode(body []byte) ([]Node, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	list, ok := categoryList(root)
	if !ok {
		return nil, ErrShape
	}
	return nodes(list, LevelCategory), nil
}

// categoryList walks the accepted envelopes in order.
func categoryList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case map[string]any:
		if data, ok := t["data"]; ok {
			if list, ok := categoryList(data); ok {
				return list, true
			}
		}
		if list, ok := t["categories"].([]any); ok {
			return list, true
		}
	}
	return nil, false
}

// nodes decodes one level.  The tree is at most three deep, so lists below
// that depth are not read.
func nodes(list []any, lvl Level) []Node {
	out := make([]Node, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, node(m, lvl))
	}
	return out
}

func node(m map[string]any, lvl Level) Node {
	n := Node{
		ID:   idString(m["id"]),
		Name: firstString(m, nameKeys),
		Slug: firstString(m, []string{"slug"}),
	}
	if lvl == LevelChild {
		return n
	}
	if lvl == LevelCategory {
		if list := firstList(m, subKeys); list != nil {
			n.Subcategories = nodes(list, LevelSubcategory)
		}
	}
	if list := firstList(m, childKeys); list != nil {
		n.ChildCategories = nodes(list, LevelChild)
	}
	return n
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstList(m map[string]any, keys []string) []any {
	for _, k := range keys {
		if l, ok := m[k].([]any); ok {
			return l
		}
	}
	return nil
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// Count returns the number of nodes in the forest rooted at ns.
func Count(ns []Node) int {
	total := 0
	for _, n := range ns {
		total += 1 + Count(n.Subcategories) + Count(n.ChildCategories)
	}
	return total
}
