package dto

// IngestionEnvelope is the queue consumer contract: one financial event plus
// the metadata the idempotency gate needs. The payload fingerprint is computed
// by the producer over the event body.
type IngestionEnvelope struct {
	TenantID    string              `json:"tenantId"`
	PayloadHash string              `json:"payloadHash"`
	Traceparent string              `json:"traceparent,omitempty"`
	Event       *CreateEntryRequest `json:"event"`
}
