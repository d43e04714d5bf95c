package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeToken(t *testing.T) {
	createdAt := time.Date(2026, 5, 15, 14, 30, 45, 123456789, time.UTC)
	entryID := "0c9a7c1e-8e67-4a4f-9a0e-7a3d94f1c001"

	token := EncodeToken(createdAt, entryID)
	assert.NotEmpty(t, token, "Token should not be empty")

	decodedCreatedAt, decodedEntryID, err := DecodeToken(token)
	assert.NoError(t, err, "Decoding should not return an error")
	assert.True(t, createdAt.Equal(decodedCreatedAt), "Created at time should match after decode")
	assert.Equal(t, entryID, decodedEntryID, "Entry ID should match after decode")
}

func TestEncodeDecodeToken_EntryIDWithSeparator(t *testing.T) {
	// Only the first separator splits; the entry id may contain one.
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	entryID := "weird|id"

	decodedCreatedAt, decodedEntryID, err := DecodeToken(EncodeToken(createdAt, entryID))
	assert.NoError(t, err)
	assert.True(t, createdAt.Equal(decodedCreatedAt))
	assert.Equal(t, entryID, decodedEntryID)
}

func TestDecodeTokenError(t *testing.T) {
	_, _, err := DecodeToken("this is not base64!")
	assert.Error(t, err, "Should return an error for invalid base64")
	assert.Contains(t, err.Error(), "base64 decode")

	_, _, err = DecodeToken("bm8gc2VwYXJhdG9yIGhlcmU=") // "no separator here"
	assert.Error(t, err, "Should return an error when the separator is missing")

	_, _, err = DecodeToken(EncodeToken(time.Time{}, "x")[:4])
	assert.Error(t, err, "Should return an error for a truncated token")
}
