package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// GenesisHash is the fixed previous-hash value of the first entry in a
// tenant's chain. Not a real digest.
const GenesisHash = "0"

// ComputeEntryHash links an entry into the tamper-evident chain: a SHA-256
// digest over the concatenation of entry id, previous hash and creation
// timestamp. Recomputing the chain from genesis and comparing against stored
// hashes detects any retroactive edit or deletion, without re-running any
// business logic.
func ComputeEntryHash(entryID, previousHash string, createdAt time.Time) string {
	input := entryID + previousHash + createdAt.UTC().Format(time.RFC3339Nano)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
