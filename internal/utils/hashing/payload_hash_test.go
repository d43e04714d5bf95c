package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	EventID string `json:"eventId"`
	Amount  int64  `json:"amountCents"`
}

func TestPayloadFingerprint_Deterministic(t *testing.T) {
	payload := samplePayload{EventID: "evt-1", Amount: 12345}

	h1, err := PayloadFingerprint(payload)
	require.NoError(t, err)
	h2, err := PayloadFingerprint(payload)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "fingerprint should be hex-encoded SHA-256")
}

func TestPayloadFingerprint_FieldOrderIndependent(t *testing.T) {
	// The same logical payload arriving as a struct and as a map with a
	// different key order must fingerprint identically.
	structHash, err := PayloadFingerprint(samplePayload{EventID: "evt-1", Amount: 12345})
	require.NoError(t, err)

	mapHash, err := PayloadFingerprint(map[string]any{
		"amountCents": 12345,
		"eventId":     "evt-1",
	})
	require.NoError(t, err)

	assert.Equal(t, structHash, mapHash)
}

func TestPayloadFingerprint_DistinguishesPayloads(t *testing.T) {
	h1, err := PayloadFingerprint(samplePayload{EventID: "evt-1", Amount: 100})
	require.NoError(t, err)
	h2, err := PayloadFingerprint(samplePayload{EventID: "evt-1", Amount: 101})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestPayloadFingerprint_UnmarshalableInput(t *testing.T) {
	_, err := PayloadFingerprint(make(chan int))
	assert.Error(t, err)
}
