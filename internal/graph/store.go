package graph

import (
	"fmt"
	"sort"
	"time"

	"github.com/banking/activity-graph-service/internal/domain"
)

// Store owns the directed multigraph of entities and transactions plus the
// SAR registry. It is pure data with a mutation API and read API; it is NOT
// safe for concurrent use on its own. The service engine serializes access
// under a single reader/writer lock so that SAR ingestion can mutate the
// store and the narrative index as one atomic unit.
type Store struct {
	entities     map[string]*domain.Entity
	transactions map[string]*domain.Transaction
	sars         map[string]*domain.SAR

	// adjacency: sender -> receiver -> parallel edges, plus the reverse
	// direction as a set so Neighbors answers without scanning transactions
	out map[string]map[string][]*domain.Transaction
	in  map[string]map[string]struct{}

	// per-entity incident transactions, kept sorted by timestamp
	temporal temporalIndex

	sarsByEntity map[string][]*domain.SAR

	// count of distinct ordered (sender, receiver) pairs
	pairCount int
}

// NewStore creates an empty graph store
func NewStore() *Store {
	return &Store{
		entities:     make(map[string]*domain.Entity),
		transactions: make(map[string]*domain.Transaction),
		sars:         make(map[string]*domain.SAR),
		out:          make(map[string]map[string][]*domain.Transaction),
		in:           make(map[string]map[string]struct{}),
		temporal:     make(temporalIndex),
		sarsByEntity: make(map[string][]*domain.SAR),
	}
}

// AddEntity inserts a new entity. The registry is append-only; an existing
// id fails with ErrDuplicateID and leaves the stored entity unmodified.
func (s *Store) AddEntity(e *domain.Entity) error {
	if _, exists := s.entities[e.ID]; exists {
		return fmt.Errorf("entity %q: %w", e.ID, domain.ErrDuplicateID)
	}
	// The level is always derived from the score, never taken from the
	// caller.
	e.RiskLevel = domain.RiskLevelForScore(e.RiskScore)
	s.entities[e.ID] = e
	return nil
}

// AddTransaction inserts a directed edge sender->receiver. Both endpoints
// must already exist and the amount must be positive; on failure no state is
// mutated.
func (s *Store) AddTransaction(t *domain.Transaction) error {
	if t.Amount <= 0 {
		return fmt.Errorf("transaction %q amount %.2f: %w", t.ID, t.Amount, domain.ErrInvalidAmount)
	}
	if _, exists := s.transactions[t.ID]; exists {
		return fmt.Errorf("transaction %q: %w", t.ID, domain.ErrDuplicateID)
	}
	if _, ok := s.entities[t.SenderID]; !ok {
		return fmt.Errorf("sender %q: %w", t.SenderID, domain.ErrUnknownEntity)
	}
	if _, ok := s.entities[t.ReceiverID]; !ok {
		return fmt.Errorf("receiver %q: %w", t.ReceiverID, domain.ErrUnknownEntity)
	}

	s.transactions[t.ID] = t

	receivers, ok := s.out[t.SenderID]
	if !ok {
		receivers = make(map[string][]*domain.Transaction)
		s.out[t.SenderID] = receivers
	}
	if _, seen := receivers[t.ReceiverID]; !seen {
		s.pairCount++
	}
	receivers[t.ReceiverID] = append(receivers[t.ReceiverID], t)

	senders, ok := s.in[t.ReceiverID]
	if !ok {
		senders = make(map[string]struct{})
		s.in[t.ReceiverID] = senders
	}
	senders[t.SenderID] = struct{}{}

	s.temporal.insert(t.SenderID, t)
	if t.ReceiverID != t.SenderID {
		s.temporal.insert(t.ReceiverID, t)
	}
	return nil
}

// AddSAR files a SAR. Every referenced entity and transaction must resolve
// and the reported time period must be ordered; on failure no state is
// mutated.
func (s *Store) AddSAR(sar *domain.SAR) error {
	if _, exists := s.sars[sar.ID]; exists {
		return fmt.Errorf("sar %q: %w", sar.ID, domain.ErrDuplicateID)
	}
	if !sar.TimePeriodStart.IsZero() && !sar.TimePeriodEnd.IsZero() &&
		sar.TimePeriodEnd.Before(sar.TimePeriodStart) {
		return fmt.Errorf("sar %q: time period end precedes start: %w", sar.ID, domain.ErrValidation)
	}
	for _, entityID := range sar.EntitiesInvolved {
		if _, ok := s.entities[entityID]; !ok {
			return fmt.Errorf("sar %q entity %q: %w", sar.ID, entityID, domain.ErrUnknownEntity)
		}
	}
	for _, txID := range sar.TransactionsInvolved {
		if _, ok := s.transactions[txID]; !ok {
			return fmt.Errorf("sar %q transaction %q: %w", sar.ID, txID, domain.ErrUnknownTransaction)
		}
	}

	s.sars[sar.ID] = sar
	for _, entityID := range sar.EntitiesInvolved {
		s.sarsByEntity[entityID] = append(s.sarsByEntity[entityID], sar)
	}
	return nil
}

// GetEntity returns the entity or ErrNotFound
func (s *Store) GetEntity(id string) (*domain.Entity, error) {
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %q: %w", id, domain.ErrNotFound)
	}
	return e, nil
}

// GetTransaction returns the transaction or ErrNotFound
func (s *Store) GetTransaction(id string) (*domain.Transaction, error) {
	t, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %q: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

// GetSAR returns the SAR or ErrNotFound
func (s *Store) GetSAR(id string) (*domain.SAR, error) {
	sar, ok := s.sars[id]
	if !ok {
		return nil, fmt.Errorf("sar %q: %w", id, domain.ErrNotFound)
	}
	return sar, nil
}

// HasEntity reports whether the entity exists
func (s *Store) HasEntity(id string) bool {
	_, ok := s.entities[id]
	return ok
}

// Neighbors returns the ids of entities adjacent to id in either direction,
// sorted ascending for reproducible traversals.
func (s *Store) Neighbors(id string) ([]string, error) {
	if !s.HasEntity(id) {
		return nil, fmt.Errorf("entity %q: %w", id, domain.ErrNotFound)
	}
	seen := make(map[string]struct{})
	for receiver := range s.out[id] {
		seen[receiver] = struct{}{}
	}
	for sender := range s.in[id] {
		seen[sender] = struct{}{}
	}
	delete(seen, id) // self-loops do not make an entity its own neighbor
	neighbors := make([]string, 0, len(seen))
	for n := range seen {
		neighbors = append(neighbors, n)
	}
	sort.Strings(neighbors)
	return neighbors, nil
}

// OutgoingNeighbors returns the ids this entity has sent funds to, sorted
func (s *Store) OutgoingNeighbors(id string) []string {
	receivers := s.out[id]
	ids := make([]string, 0, len(receivers))
	for r := range receivers {
		ids = append(ids, r)
	}
	sort.Strings(ids)
	return ids
}

// TransactionsFromTo returns the parallel edges sender->receiver in
// insertion order (timestamps may interleave; callers filter as needed).
func (s *Store) TransactionsFromTo(sender, receiver string) []*domain.Transaction {
	return s.out[sender][receiver]
}

// TransactionsBetween returns all transactions connecting a and b in either
// direction, sorted by timestamp.
func (s *Store) TransactionsBetween(a, b string) ([]*domain.Transaction, error) {
	if !s.HasEntity(a) {
		return nil, fmt.Errorf("entity %q: %w", a, domain.ErrNotFound)
	}
	if !s.HasEntity(b) {
		return nil, fmt.Errorf("entity %q: %w", b, domain.ErrNotFound)
	}
	edges := make([]*domain.Transaction, 0, len(s.out[a][b])+len(s.out[b][a]))
	edges = append(edges, s.out[a][b]...)
	if a != b {
		edges = append(edges, s.out[b][a]...)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Timestamp.Equal(edges[j].Timestamp) {
			return edges[i].ID < edges[j].ID
		}
		return edges[i].Timestamp.Before(edges[j].Timestamp)
	})
	return edges, nil
}

// TransactionsByEntity returns the entity's incident transactions sorted by
// timestamp, optionally restricted to [from, to]. Zero bounds are open.
func (s *Store) TransactionsByEntity(id string, from, to time.Time) ([]*domain.Transaction, error) {
	if !s.HasEntity(id) {
		return nil, fmt.Errorf("entity %q: %w", id, domain.ErrNotFound)
	}
	return s.temporal.between(id, from, to), nil
}

// LatestTimestamp returns the timestamp of the entity's most recent
// transaction, or false if it has none.
func (s *Store) LatestTimestamp(id string) (time.Time, bool) {
	list := s.temporal[id]
	if len(list) == 0 {
		return time.Time{}, false
	}
	return list[len(list)-1].Timestamp, true
}

// SARsByEntity returns SARs directly naming the entity, in filing order
func (s *Store) SARsByEntity(id string) []*domain.SAR {
	return s.sarsByEntity[id]
}

// AllSARs returns every filed SAR (order unspecified)
func (s *Store) AllSARs() []*domain.SAR {
	all := make([]*domain.SAR, 0, len(s.sars))
	for _, sar := range s.sars {
		all = append(all, sar)
	}
	return all
}

// EntityIDs returns all entity ids sorted ascending
func (s *Store) EntityIDs() []string {
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats returns the system-wide counters. Graph edges count distinct
// ordered entity pairs; parallel transactions share one edge slot there.
func (s *Store) Stats() domain.Stats {
	highRisk := 0
	for _, e := range s.entities {
		if e.IsHighRisk() {
			highRisk++
		}
	}
	return domain.Stats{
		TotalEntities:     len(s.entities),
		TotalTransactions: len(s.transactions),
		TotalSARs:         len(s.sars),
		GraphNodes:        len(s.entities),
		GraphEdges:        s.pairCount,
		HighRiskEntities:  highRisk,
	}
}
