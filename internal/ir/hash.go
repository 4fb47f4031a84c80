package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash domains. Bump the suffix if the canonical form changes.
const (
	DomainType   = "bridgepass/type/v1"
	DomainStream = "bridgepass/stream/v1"
)

// hashWithDomain returns hex(SHA-256(domain || 0x00 || data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical form of t. Equal fingerprints mean a
// pass left the type untouched.
func Fingerprint(t *CompiledType) (string, error) {
	canonical, err := MarshalCanonical(t)
	if err != nil {
		return "", fmt.Errorf("Fingerprint %s: %w", t.Name, err)
	}
	return hashWithDomain(DomainType, canonical), nil
}

// StreamFingerprint hashes an ordered stream of types.
func StreamFingerprint(types []*CompiledType) (string, error) {
	canonical, err := MarshalCanonical(types)
	if err != nil {
		return "", fmt.Errorf("StreamFingerprint: %w", err)
	}
	return hashWithDomain(DomainStream, canonical), nil
}

// MustFingerprint panics if t cannot be fingerprinted. For tests.
func MustFingerprint(t *CompiledType) string {
	fp, err := Fingerprint(t)
	if err != nil {
		panic(err)
	}
	return fp
}
