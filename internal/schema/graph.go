package schema

import "sort"

// DependencyGraph maps a table to the tables it references through foreign keys.
// Self-references are kept; callers walking dependencies skip them.
// No cycle detection happens here: cycles are resolved while loading.
type DependencyGraph struct {
	deps map[TableKey][]TableKey
}

// NewDependencyGraph builds the graph from foreign-key pairs. Duplicate pairs
// (several constraints between the same tables) collapse to one edge.
func NewDependencyGraph(fks []ForeignKey) *DependencyGraph {
	sets := make(map[TableKey]map[TableKey]struct{})
	for _, fk := range fks {
		set, ok := sets[fk.Source]
		if !ok {
			set = make(map[TableKey]struct{})
			sets[fk.Source] = set
		}
		set[fk.Referenced] = struct{}{}
	}

	g := &DependencyGraph{deps: make(map[TableKey][]TableKey, len(sets))}
	for source, set := range sets {
		refs := make([]TableKey, 0, len(set))
		for ref := range set {
			refs = append(refs, ref)
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
		g.deps[source] = refs
	}
	return g
}

// DependenciesOf returns the tables key references, in sorted order.
// The returned slice must not be modified.
func (g *DependencyGraph) DependenciesOf(key TableKey) []TableKey {
	if g == nil {
		return nil
	}
	return g.deps[key]
}

// Len returns the number of tables with at least one outgoing foreign key.
func (g *DependencyGraph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.deps)
}
