package domain

import "time"

// Transaction represents a directed transfer of funds between two entities.
// Immutable once recorded; each transaction forms one edge sender->receiver
// in the graph, and one entity pair may carry many parallel edges.
type Transaction struct {
	ID         string    `json:"transaction_id"`
	Timestamp  time.Time `json:"timestamp"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`

	Type        string   `json:"transaction_type"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Metadata    Metadata `json:"metadata,omitempty"`
}

// Involves returns true if the entity is sender or receiver
func (t *Transaction) Involves(entityID string) bool {
	return t.SenderID == entityID || t.ReceiverID == entityID
}

// Counterparty returns the other side of the transaction relative to entityID
func (t *Transaction) Counterparty(entityID string) string {
	if t.SenderID == entityID {
		return t.ReceiverID
	}
	return t.SenderID
}

// OutgoingFrom returns true if the entity sent the funds
func (t *Transaction) OutgoingFrom(entityID string) bool {
	return t.SenderID == entityID
}

// Edge is the wire shape of a transaction in graph visualization payloads
type Edge struct {
	Source        string  `json:"source"`
	Target        string  `json:"target"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transaction_id"`
}

// ToEdge converts a Transaction to its visualization Edge
func (t *Transaction) ToEdge() Edge {
	return Edge{
		Source:        t.SenderID,
		Target:        t.ReceiverID,
		Amount:        t.Amount,
		TransactionID: t.ID,
	}
}
