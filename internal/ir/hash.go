package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainQuery    = "normstore/query/v1"
	DomainSnapshot = "normstore/snapshot/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QueryHash computes the content hash of a query options object.
// Two option objects with identical key/value pairs hash identically no
// matter how they were built, because canonical JSON sorts keys.
// A nil options object hashes like the empty object.
func QueryHash(options IRObject) (string, error) {
	if options == nil {
		options = IRObject{}
	}
	canonical, err := MarshalCanonical(options)
	if err != nil {
		return "", fmt.Errorf("QueryHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// MustQueryHash is like QueryHash but panics on error.
// Use only in tests or when options are known to be valid.
func MustQueryHash(options IRObject) string {
	h, err := QueryHash(options)
	if err != nil {
		panic(err)
	}
	return h
}

// SnapshotHash hashes an arbitrary canonical dump. The CLI and harness use it
// to print a short fingerprint of a store state.
func SnapshotHash(dump []byte) string {
	return hashWithDomain(DomainSnapshot, dump)
}
