package manifest

import (
	"encoding/json"

	"github.com/kodexhq/kodex/domain/unit"
)

// DependencyGraph holds forward and reverse adjacency keyed by identifier,
// plus a type index, round-trip serializable to JSON with identifier keys
// preserved as strings.
type DependencyGraph struct {
	forward    map[string][]unit.Dependency
	reverse    map[string][]unit.Dependency
	typeIndex  map[string][]string
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		forward:   make(map[string][]unit.Dependency),
		reverse:   make(map[string][]unit.Dependency),
		typeIndex: make(map[string][]string),
	}
}

// Register records a unit's forward edges and the corresponding reverse
// edges on each target, and indexes the unit by its type.
func (g *DependencyGraph) Register(u unit.ExtractedUnit) {
	id := u.Identifier()
	g.forward[id] = u.Dependencies()
	for _, dep := range u.Dependencies() {
		g.reverse[dep.Target] = append(g.reverse[dep.Target], unit.Dependency{
			Target: id,
			Type:   dep.Type,
			Via:    dep.Via,
		})
	}
	t := string(u.Type())
	g.typeIndex[t] = append(g.typeIndex[t], id)
}

// DependenciesOf returns the forward edges of id.
func (g *DependencyGraph) DependenciesOf(id string) []unit.Dependency {
	return append([]unit.Dependency(nil), g.forward[id]...)
}

// DependentsOf returns the reverse edges of id.
func (g *DependencyGraph) DependentsOf(id string) []unit.Dependency {
	return append([]unit.Dependency(nil), g.reverse[id]...)
}

// ByType returns identifiers registered with the given type tag.
func (g *DependencyGraph) ByType(t string) []string {
	return append([]string(nil), g.typeIndex[t]...)
}

// AffectedBy returns the set of identifiers whose file path is in paths,
// plus everything transitively dependent on them.
func (g *DependencyGraph) AffectedBy(paths []string, pathOf map[string]string) []string {
	pathSet := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		pathSet[p] = struct{}{}
	}
	seed := make(map[string]struct{})
	for id, p := range pathOf {
		if _, ok := pathSet[p]; ok {
			seed[id] = struct{}{}
		}
	}
	visited := make(map[string]struct{})
	queue := make([]string, 0, len(seed))
	for id := range seed {
		queue = append(queue, id)
		visited[id] = struct{}{}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range g.reverse[id] {
			if _, ok := visited[dep.Target]; !ok {
				visited[dep.Target] = struct{}{}
				queue = append(queue, dep.Target)
			}
		}
	}
	out := make([]string, 0, len(visited))
	for id := range visited {
		out = append(out, id)
	}
	return out
}

// PageRank computes PageRank over the forward adjacency with the given
// damping factor, iterating until convergence (epsilon fixed-point) or
// maxIterations, whichever comes first.
func (g *DependencyGraph) PageRank(damping float64, maxIterations int, epsilon float64) map[string]float64 {
	nodes := make(map[string]struct{})
	for id, deps := range g.forward {
		nodes[id] = struct{}{}
		for _, d := range deps {
			nodes[d.Target] = struct{}{}
		}
	}
	n := len(nodes)
	if n == 0 {
		return map[string]float64{}
	}
	scores := make(map[string]float64, n)
	for id := range nodes {
		scores[id] = 1.0 / float64(n)
	}
	outDegree := make(map[string]int, n)
	for id := range nodes {
		outDegree[id] = len(g.forward[id])
	}

	for iter := 0; iter < maxIterations; iter++ {
		next := make(map[string]float64, n)
		base := (1 - damping) / float64(n)
		for id := range nodes {
			next[id] = base
		}
		var dangling float64
		for id := range nodes {
			if outDegree[id] == 0 {
				dangling += scores[id]
			}
		}
		for id := range nodes {
			next[id] += damping * dangling / float64(n)
		}
		for id, deps := range g.forward {
			if len(deps) == 0 {
				continue
			}
			share := damping * scores[id] / float64(len(deps))
			for _, d := range deps {
				next[d.Target] += share
			}
		}
		var delta float64
		for id := range nodes {
			diff := next[id] - scores[id]
			if diff < 0 {
				diff = -diff
			}
			delta += diff
		}
		scores = next
		if delta < epsilon {
			break
		}
	}
	return scores
}

type graphJSON struct {
	Forward map[string][]unit.Dependency `json:"forward"`
	Reverse map[string][]unit.Dependency `json:"reverse"`
	Types   map[string][]string          `json:"types"`
}

// MarshalJSON serializes the graph with string-keyed forward/reverse maps.
func (g *DependencyGraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(graphJSON{Forward: g.forward, Reverse: g.reverse, Types: g.typeIndex})
}

// UnmarshalJSON restores the graph, normalizing all keys to strings so
// symbol-vs-string key equivalence from other representations round-trips.
func (g *DependencyGraph) UnmarshalJSON(data []byte) error {
	var raw graphJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.forward = raw.Forward
	g.reverse = raw.Reverse
	g.typeIndex = raw.Types
	if g.forward == nil {
		g.forward = make(map[string][]unit.Dependency)
	}
	if g.reverse == nil {
		g.reverse = make(map[string][]unit.Dependency)
	}
	if g.typeIndex == nil {
		g.typeIndex = make(map[string][]string)
	}
	return nil
}
