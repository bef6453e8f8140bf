package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows future algorithm migration.
const (
	DomainPass     = "slotgraph/pass/v1"
	DomainNodeType = "slotgraph/nodetype/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PassID computes the content-addressed ID of a propagation pass.
// The ID is stable for identical (token, kind, trigger, source, seq) inputs,
// so a journal replayed into a fresh store keeps the same identities.
func PassID(token string, kind PassKind, trigger, source string, seq int64) (string, error) {
	obj := map[string]any{
		"token":   token,
		"kind":    string(kind),
		"trigger": trigger,
		"seq":     seq,
	}
	if source != "" {
		obj["source"] = source
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("PassID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPass, canonical), nil
}

// MustPassID is like PassID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPassID(token string, kind PassKind, trigger, source string, seq int64) string {
	id, err := PassID(token, kind, trigger, source, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// NodeTypesHash fingerprints a set of compiled node types. Declaration
// order is significant because it fixes slot order and therefore the
// order of dirtied notifications.
func NodeTypesHash(specs []NodeTypeSpec) (string, error) {
	data, err := json.Marshal(specs)
	if err != nil {
		return "", fmt.Errorf("NodeTypesHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainNodeType, data), nil
}
