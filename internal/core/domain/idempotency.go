package domain

import "time"

// IdempotencyStatus is the lifecycle of an idempotency record. A record is
// created as PROCESSING on first sight of a key and transitions once to a
// terminal status.
type IdempotencyStatus string

const (
	IdempotencyProcessing IdempotencyStatus = "PROCESSING"
	IdempotencyCompleted  IdempotencyStatus = "COMPLETED"
	IdempotencyFailed     IdempotencyStatus = "FAILED"
)

// ProcessingLease bounds how long a PROCESSING claim blocks identical
// retries. A worker that crashed or hit a transient fault leaves its record
// in PROCESSING; once the lease expires the next same-payload request
// reclaims the event and runs the operation again.
const ProcessingLease = 5 * time.Minute

// IdempotencyRecord is the durable authority for duplicate detection, keyed by
// (tenant, source event id). The cache is only a fast path in front of it.
type IdempotencyRecord struct {
	TenantID      string            `json:"tenantID"`
	SourceEventID string            `json:"sourceEventID"`
	PayloadHash   string            `json:"payloadHash"`
	Status        IdempotencyStatus `json:"status"`
	ResponseBody  string            `json:"responseBody"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// IdempotencyState is the outcome of gating a posting request.
type IdempotencyState string

const (
	IdempotencyNew                       IdempotencyState = "NEW"
	IdempotencyDuplicateSamePayload      IdempotencyState = "DUPLICATE_SAME_PAYLOAD"
	IdempotencyDuplicateDifferentPayload IdempotencyState = "DUPLICATE_DIFFERENT_PAYLOAD"
)

// IdempotencyCheckResult pairs the gate outcome with the cached response body
// for same-payload replays.
type IdempotencyCheckResult struct {
	State          IdempotencyState
	CachedResponse string
}
