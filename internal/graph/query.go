package graph

import (
	"fmt"
	"sort"

	"github.com/banking/activity-graph-service/internal/domain"
)

// ConnectedWithin returns the set of entities reachable from id within
// maxDepth hops, following edges in either direction. The queried entity is
// not included in the result.
func (s *Store) ConnectedWithin(id string, maxDepth int) (map[string]struct{}, error) {
	if !s.HasEntity(id) {
		return nil, fmt.Errorf("entity %q: %w", id, domain.ErrNotFound)
	}
	connected := make(map[string]struct{})
	visited := map[string]struct{}{id: {}}
	frontier := []string{id}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, current := range frontier {
			neighbors, _ := s.Neighbors(current)
			for _, n := range neighbors {
				if _, seen := visited[n]; seen {
					continue
				}
				visited[n] = struct{}{}
				connected[n] = struct{}{}
				next = append(next, n)
			}
		}
		frontier = next
	}
	return connected, nil
}

// Subgraph extracts the bounded neighborhood around an entity for
// visualization: BFS up to depth hops collecting nodes, then every edge
// whose endpoints were both visited. Cross edges between already-visited
// nodes carry risk signal and are included, not just tree edges. Nodes have
// set semantics, edges list semantics (parallel transactions stay distinct).
func (s *Store) Subgraph(entityID string, depth int) (*domain.GraphView, error) {
	if depth < 0 {
		return nil, fmt.Errorf("depth %d: %w", depth, domain.ErrValidation)
	}
	connected, err := s.ConnectedWithin(entityID, depth)
	if err != nil {
		return nil, err
	}
	connected[entityID] = struct{}{}

	ids := make([]string, 0, len(connected))
	for id := range connected {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	view := &domain.GraphView{
		Nodes: make([]domain.EntitySummary, 0, len(ids)),
		Edges: []domain.Edge{},
	}
	for _, id := range ids {
		e, ok := s.entities[id]
		if !ok {
			// Write-time checks make a visited node without an entity
			// record impossible; treat it as corruption, not a 404.
			return nil, fmt.Errorf("dangling node %q in subgraph: %w", id, domain.ErrInternal)
		}
		view.Nodes = append(view.Nodes, e.ToSummary())
	}
	for _, src := range ids {
		for _, dst := range ids {
			for _, t := range s.out[src][dst] {
				view.Edges = append(view.Edges, t.ToEdge())
			}
		}
	}
	return view, nil
}
