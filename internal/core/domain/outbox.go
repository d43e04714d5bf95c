package domain

import "time"

// Outbox event/aggregate identifiers. These names are part of the wire
// contract external subscribers depend on.
const (
	EventTypeJournalPosted   = "fis.journal.posted"
	AggregateTypeLedgerEntry = "JOURNAL_ENTRY"
)

// OutboxEvent is a durable staging record for reliable downstream event
// publication. It is written in the same transaction as the ledger entry it
// describes and relayed to the message transport by a separate loop.
type OutboxEvent struct {
	OutboxID      string     `json:"outboxID"`
	TenantID      string     `json:"tenantID"`
	EventType     string     `json:"eventType"`
	AggregateType string     `json:"aggregateType"`
	AggregateID   string     `json:"aggregateID"`
	Payload       string     `json:"payload"` // JSON
	Traceparent   string     `json:"traceparent,omitempty"`
	Published     bool       `json:"published"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
