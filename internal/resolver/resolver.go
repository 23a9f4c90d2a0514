// Package resolver computes the install order for a formula and its
// dependency closure: a BFS transitive walk of the catalog followed by a
// Kahn topological sort.
package resolver

import (
	"sort"

	waxerrors "github.com/wax-pm/wax/internal/errors"
	"github.com/wax-pm/wax/internal/formula"
)

// Catalog is the minimal lookup surface the resolver needs, satisfied by
// the Index Cache's in-memory formula list or a tap's local formulae.
type Catalog interface {
	Lookup(name string) (*formula.Formula, bool)
}

type mapCatalog map[string]*formula.Formula

func (m mapCatalog) Lookup(name string) (*formula.Formula, bool) {
	f, ok := m[name]
	return f, ok
}

// NewCatalog builds a Catalog from a flat formula slice, keyed by name.
func NewCatalog(formulae []*formula.Formula) Catalog {
	m := make(mapCatalog, len(formulae))
	for _, f := range formulae {
		m[f.Name] = f
	}
	return m
}

// graph is an adjacency structure over formula names: node -> its direct
// dependency names (build-only and test-only dependencies already
// excluded by the caller via IncludeBuild).
type graph struct {
	deps map[string][]string
}

func newGraph() *graph {
	return &graph{deps: make(map[string][]string)}
}

func (g *graph) addNode(name string, deps []string) {
	g.deps[name] = deps
}

// topologicalSort runs Kahn's algorithm. Ties among equally-ready nodes are
// broken by lexicographic name order for deterministic output.
//
// Dependency names that appear only as an edge target, never as a node of
// their own (already-installed dependencies the BFS walk declined to
// expand), get a phantom zero in-degree entry so they unblock their
// dependents instead of starving the sort.
func (g *graph) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.deps))
	adjacency := make(map[string][]string, len(g.deps))

	for node, deps := range g.deps {
		if _, ok := inDegree[node]; !ok {
			inDegree[node] = 0
		}
		for _, dep := range deps {
			if _, ok := inDegree[dep]; !ok {
				inDegree[dep] = 0
			}
		}
	}

	for node, deps := range g.deps {
		inDegree[node] = len(deps)
		for _, dep := range deps {
			adjacency[dep] = append(adjacency[dep], node)
		}
	}

	var ready []string
	for node, count := range inDegree {
		if count == 0 {
			ready = append(ready, node)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		node := ready[0]
		ready = ready[1:]
		order = append(order, node)

		var freed []string
		for _, neighbor := range adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				freed = append(freed, neighbor)
			}
		}
		sort.Strings(freed)
		ready = append(ready, freed...)
	}

	if len(order) != len(inDegree) {
		var cycle []string
		for node, count := range inDegree {
			if count > 0 {
				cycle = append(cycle, node)
			}
		}
		sort.Strings(cycle)
		return nil, waxerrors.NewDependencyCycleError(cycle)
	}

	return order, nil
}

// Options controls which edges of a formula's dependency declarations the
// resolver walks.
type Options struct {
	IncludeBuild bool
	IncludeTest  bool
}

// Plan is the resolver's output: an install-ordered list of formulae still
// needing installation, with the root formula's own transitive closure
// already excluded of anything in Installed.
type Plan struct {
	Order []*formula.Formula
}

// Resolve computes the install plan for root, given the full catalog and
// the set of already-installed package names (S1: resolving an
// already-fully-installed graph yields an empty plan).
func Resolve(root *formula.Formula, catalog Catalog, installed map[string]bool, opts Options) (*Plan, error) {
	visited := make(map[string]bool)
	queue := []string{root.Name}
	byName := map[string]*formula.Formula{root.Name: root}
	g := newGraph()

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if visited[name] || installed[name] {
			continue
		}
		visited[name] = true

		f, ok := byName[name]
		if !ok {
			f, ok = catalog.Lookup(name)
			if !ok {
				return nil, waxerrors.NewFormulaNotFoundError(name)
			}
			byName[name] = f
		}

		deps := f.GetDependencies(opts.IncludeBuild)
		if opts.IncludeTest {
			deps = append(deps, f.TestDependencies...)
		}
		g.addNode(name, deps)

		for _, dep := range deps {
			if !visited[dep] && !installed[dep] {
				queue = append(queue, dep)
			}
		}
	}

	order, err := g.topologicalSort()
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for _, name := range order {
		if installed[name] {
			continue
		}
		plan.Order = append(plan.Order, byName[name])
	}
	return plan, nil
}
