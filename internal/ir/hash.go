package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainExchange = "embedsave/exchange/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ExchangeID computes the content-addressed id of a journaled save request.
// The same request document for the same record at the same seq always
// hashes to the same id, which makes journal writes idempotent.
func ExchangeID(model, token string, request *Document, seq int64) (string, error) {
	obj := map[string]any{
		"model":   model,
		"token":   token,
		"request": request,
		"seq":     seq,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ExchangeID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainExchange, canonical), nil
}
