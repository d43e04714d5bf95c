package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PayloadFingerprint computes the deterministic SHA-256 hex fingerprint of a
// payload over its canonical JSON form. Marshaling through an untyped value
// normalizes field order (Go sorts map keys), so logically identical payloads
// produce identical fingerprints regardless of source representation.
func PayloadFingerprint(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload for fingerprinting: %w", err)
	}

	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return "", fmt.Errorf("failed to normalize payload for fingerprinting: %w", err)
	}

	canonical, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize payload for fingerprinting: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
