package provenance

import (
	"context"
	"fmt"

	"glcm/internal/object"
	"glcm/internal/store"
)

// ancestry returns every revision reachable from start by parent links, each
// exactly once, ordered so that a revision always comes before all of its
// parents. limit > 0 bounds the number of revisions collected; collection is
// breadth-first so the nearest revisions are kept.
func ancestry(ctx context.Context, b store.RevisionStore, start object.RevisionID, limit int) ([]object.RevisionID, bool, error) {
	parents := make(map[object.RevisionID][]object.RevisionID)
	seen := map[object.RevisionID]bool{start: true}
	queue := []object.RevisionID{start}
	truncated := false

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		rev := queue[0]
		queue = queue[1:]

		ps, err := b.Parents(rev)
		if err != nil {
			return nil, false, store.Wrap("listing parents of "+rev.Short(), err)
		}
		parents[rev] = ps

		for _, p := range ps {
			if seen[p] {
				continue
			}
			if limit > 0 && len(seen) >= limit {
				truncated = true
				continue
			}
			seen[p] = true
			queue = append(queue, p)
		}
	}

	// pending counts collected children that have not been emitted yet.
	pending := make(map[object.RevisionID]int, len(parents))
	for _, ps := range parents {
		for _, p := range ps {
			if _, ok := parents[p]; ok {
				pending[p]++
			}
		}
	}

	order := make([]object.RevisionID, 0, len(parents))
	ready := []object.RevisionID{start}
	for len(ready) > 0 {
		rev := ready[0]
		ready = ready[1:]
		order = append(order, rev)

		for _, p := range parents[rev] {
			if _, ok := parents[p]; !ok {
				continue
			}
			pending[p]--
			if pending[p] == 0 {
				ready = append(ready, p)
			}
		}
	}

	if len(order) != len(parents) {
		return nil, false, fmt.Errorf("revision graph from %s is not acyclic: ordered %d of %d revisions",
			start.Short(), len(order), len(parents))
	}
	return order, truncated, nil
}
