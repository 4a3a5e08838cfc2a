package schema

import (
	"sort"
	"strings"
)

// DefaultGroup buckets attributes that declare no group.
const DefaultGroup = "master_data"

// Tree renders the inheritance hierarchy as an ASCII tree. Roots and
// children are sorted alphabetically; classes with several parents
// appear under each of them.
func (r *Resolved) Tree() string {
	var roots []string
	for _, name := range r.names {
		if len(r.parents[name]) == 0 {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)

	var b strings.Builder
	var walk func(node, prefix string, last bool)
	walk = func(node, prefix string, last bool) {
		connector := "├─"
		if last {
			connector = "└─"
		}
		b.WriteString(prefix + connector + " " + node + "\n")

		childPrefix := prefix + "│  "
		if last {
			childPrefix = prefix + "   "
		}
		kids := r.children[node]
		for i, child := range kids {
			walk(child, childPrefix, i == len(kids)-1)
		}
	}

	for i, root := range roots {
		walk(root, "", i == len(roots)-1)
	}
	return strings.TrimRight(b.String(), "\n")
}

// GroupedAttributes returns the class's attributes (inherited included)
// bucketed by group and sorted by order, then name, within each group.
func (r *Resolved) GroupedAttributes(class string) map[string][]AttributeDef {
	c, ok := r.classes[class]
	if !ok {
		return nil
	}

	groups := make(map[string][]AttributeDef)
	for _, ad := range c.Attributes {
		g := ad.Group
		if g == "" {
			g = DefaultGroup
		}
		groups[g] = append(groups[g], ad)
	}

	for _, list := range groups {
		sort.Slice(list, func(i, j int) bool {
			oi, oj := 0, 0
			if list[i].Order != nil {
				oi = *list[i].Order
			}
			if list[j].Order != nil {
				oj = *list[j].Order
			}
			if oi != oj {
				return oi < oj
			}
			return list[i].Name < list[j].Name
		})
	}
	return groups
}

// ClassSummary is one row of Summary.
type ClassSummary struct {
	Name       string   `json:"name" yaml:"name"`
	Parents    []string `json:"parents,omitempty" yaml:"parents,omitempty"`
	Abstract   bool     `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Attributes []string `json:"attributes" yaml:"attributes"`
	Relations  []string `json:"relations" yaml:"relations"`
}

// Summary returns a compact per-class overview of the resolved schema,
// sorted by class name.
func (r *Resolved) Summary() []ClassSummary {
	out := make([]ClassSummary, 0, len(r.names))
	for _, name := range r.names {
		c := r.classes[name]
		out = append(out, ClassSummary{
			Name:       name,
			Parents:    r.parents[name],
			Abstract:   c.Abstract,
			Attributes: c.AttributeNames(),
			Relations:  c.RelationNames(),
		})
	}
	return out
}
