// graph.go: plugin dependency graph and deterministic load ordering
//
// Nodes are plugin names, edges are declared "requires" relationships. The
// resolved order is used for init and, reversed, for stop and deinit, so it
// has to be deterministic: among plugins with no remaining unresolved
// dependency the one added first wins. That stability is what makes startup
// logs and lifecycle tests reproducible.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

// DependencyGraph accumulates plugin descriptors and resolves a safe
// initialization order. It is not safe for concurrent use; the harness
// populates and resolves it single-threaded during startup.
type DependencyGraph struct {
	order []string              // names in insertion order, the tie-break
	nodes map[string]PluginInfo // name -> descriptor metadata
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{nodes: make(map[string]PluginInfo)}
}

// Add records a plugin's descriptor. Adding a second plugin with the same
// name fails with a DuplicateName error.
func (g *DependencyGraph) Add(info PluginInfo) error {
	if info.Name == "" {
		return NewInvalidPluginNameError(info.Name)
	}
	if _, exists := g.nodes[info.Name]; exists {
		return NewDuplicatePluginError(info.Name)
	}
	g.nodes[info.Name] = info
	g.order = append(g.order, info.Name)
	return nil
}

// Names returns the plugin names in the order they were added.
func (g *DependencyGraph) Names() []string {
	names := make([]string, len(g.order))
	copy(names, g.order)
	return names
}

// ResolveOrder returns a sequence of plugin names in which every plugin
// appears after all of its declared requirements.
//
// Before ordering it verifies that no scheduled plugin declares another
// scheduled plugin as conflicting, and that every requirement names a loaded
// plugin. A requirement cycle fails with a CyclicDependency error naming the
// cycle. No partial order is ever returned.
func (g *DependencyGraph) ResolveOrder() ([]string, error) {
	if err := g.checkConflicts(); err != nil {
		return nil, err
	}

	// Unresolved requirement count per node, and the reverse adjacency
	// (who waits on whom).
	pending := make(map[string]int, len(g.order))
	dependents := make(map[string][]string, len(g.order))
	for _, name := range g.order {
		info := g.nodes[name]
		pending[name] = len(info.Requires)
		for _, required := range info.Requires {
			if _, exists := g.nodes[required]; !exists {
				return nil, NewMissingDependencyError(name, required)
			}
			dependents[required] = append(dependents[required], name)
		}
	}

	// Kahn's algorithm. The ready list is rebuilt from insertion order on
	// every step; plugin counts are small and the determinism is worth
	// more than the quadratic scan.
	resolved := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))
	for len(resolved) < len(g.order) {
		next := ""
		for _, name := range g.order {
			if !done[name] && pending[name] == 0 {
				next = name
				break
			}
		}
		if next == "" {
			return nil, NewCyclicDependencyError(g.findCycle(done))
		}

		done[next] = true
		resolved = append(resolved, next)
		for _, dependent := range dependents[next] {
			pending[dependent]--
		}
	}
	return resolved, nil
}

// checkConflicts verifies that no two scheduled plugins declare each other
// (or are declared) as conflicting.
func (g *DependencyGraph) checkConflicts() error {
	for _, name := range g.order {
		for _, conflict := range g.nodes[name].Conflicts {
			if _, loaded := g.nodes[conflict]; loaded {
				return NewConflictingPluginsError(name, conflict)
			}
		}
	}
	return nil
}

// findCycle walks the leftover nodes depth-first with a "visiting" marker
// and returns one requirement cycle among them, closed on its first member.
func (g *DependencyGraph) findCycle(done map[string]bool) []string {
	const (
		unvisited = 0
		visiting  = 1
		finished  = 2
	)
	marks := make(map[string]int, len(g.order))
	var stack []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		marks[name] = visiting
		stack = append(stack, name)
		for _, required := range g.nodes[name].Requires {
			switch marks[required] {
			case visiting:
				// Found it: slice the stack from the first occurrence.
				for i, member := range stack {
					if member == required {
						cycle = append(cycle, stack[i:]...)
						cycle = append(cycle, required)
						return true
					}
				}
			case unvisited:
				if visit(required) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		marks[name] = finished
		return false
	}

	for _, name := range g.order {
		if !done[name] && marks[name] == unvisited {
			if visit(name) {
				return cycle
			}
		}
	}
	return nil
}
