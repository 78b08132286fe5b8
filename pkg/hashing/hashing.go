package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ShortLen is how many hex chars of the full digest the compact form keeps.
const ShortLen = 12

// Sum returns the lowercase-hex SHA-256 of the canonical JSON encoding of v.
// Canonicalization: v is marshaled, decoded into plain maps/slices, then
// re-marshaled; encoding/json writes map keys in sorted order, so two
// logically equal payloads hash identically regardless of key insertion
// order. Slices keep their element order.
func Sum(v any) (string, error) {
	b, err := canonicalJSON(v)
	if err != nil {
		return "", fmt.Errorf("hashing: %w", err)
	}
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:]), nil
}

// Short returns the compact display form of a full digest. It is always a
// prefix of the digest, never computed independently.
func Short(digest string) string {
	if len(digest) <= ShortLen {
		return digest
	}
	return digest[:ShortLen]
}

// DecisionSum hashes an automated judgment. The payload shape
// {inputs, outputs, version, type:"decision"} is an audit contract:
// re-hashing a stored entry's own fields must reproduce its persisted hash.
func DecisionSum(inputs, outputs any, version string) (string, error) {
	in, err := normalize(inputs)
	if err != nil {
		return "", fmt.Errorf("hashing: decision inputs: %w", err)
	}
	out, err := normalize(outputs)
	if err != nil {
		return "", fmt.Errorf("hashing: decision outputs: %w", err)
	}
	return Sum(map[string]any{
		"inputs":  in,
		"outputs": out,
		"version": version,
		"type":    "decision",
	})
}

func canonicalJSON(v any) ([]byte, error) {
	n, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

// normalize round-trips v through JSON so structs become maps and numeric
// types collapse to their JSON representation.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
