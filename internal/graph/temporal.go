package graph

import (
	"sort"
	"time"

	"github.com/banking/activity-graph-service/internal/domain"
)

// temporalIndex keeps, per entity, the incident transactions ordered by
// timestamp. It is derived from the store's writes and never mutated
// independently. Inserts find their position with a binary search so an
// out-of-order arrival does not force a re-sort.
type temporalIndex map[string][]*domain.Transaction

func (idx temporalIndex) insert(entityID string, t *domain.Transaction) {
	list := idx[entityID]
	pos := sort.Search(len(list), func(i int) bool {
		return list[i].Timestamp.After(t.Timestamp)
	})
	list = append(list, nil)
	copy(list[pos+1:], list[pos:])
	list[pos] = t
	idx[entityID] = list
}

// between returns the transactions with from <= timestamp <= to. A zero
// bound leaves that side open. The returned slice aliases the index and
// must not be mutated by callers.
func (idx temporalIndex) between(entityID string, from, to time.Time) []*domain.Transaction {
	list := idx[entityID]
	lo := 0
	if !from.IsZero() {
		lo = sort.Search(len(list), func(i int) bool {
			return !list[i].Timestamp.Before(from)
		})
	}
	hi := len(list)
	if !to.IsZero() {
		hi = sort.Search(len(list), func(i int) bool {
			return list[i].Timestamp.After(to)
		})
	}
	if lo >= hi {
		return nil
	}
	return list[lo:hi]
}
