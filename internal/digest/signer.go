// Package digest signs outward response payloads for tamper-evidence across
// the redirect/postback hops where the payload is round-tripped through a
// third party. The digest is an HMAC-SHA512 signature over the SHA-512 hash
// of the canonical response body minus the digest field, keyed by a per-site
// key selected through the session's publicKeyIndex.
package digest

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/cassiomorais/purchases/internal/domain/errors"
)

// FieldName is the JSON field carrying the signature on every response.
const FieldName = "digest"

// Signer holds the per-site signing keys indexed by publicKeyIndex.
type Signer struct {
	keys [][]byte
}

// NewSigner creates a signer from the ordered site key list.
func NewSigner(siteKeys []string) *Signer {
	keys := make([][]byte, len(siteKeys))
	for i, k := range siteKeys {
		keys[i] = []byte(k)
	}
	return &Signer{keys: keys}
}

// Sign marshals v, computes the digest over its canonical form and returns
// the body with the digest field injected.
func (s *Signer) Sign(v any, keyIndex int) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal response body: %w", err)
	}

	doc := map[string]any{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("response body must be a JSON object: %w", err)
	}
	delete(doc, FieldName)

	sig, err := s.signCanonical(doc, keyIndex)
	if err != nil {
		return nil, err
	}
	doc[FieldName] = sig
	return json.Marshal(doc)
}

// Verify recomputes the digest of a signed body and compares it against the
// embedded digest field. Verification with any other site's key fails with
// ErrDigestMismatch.
func (s *Signer) Verify(signed []byte, keyIndex int) error {
	doc := map[string]any{}
	if err := json.Unmarshal(signed, &doc); err != nil {
		return fmt.Errorf("parse signed body: %w", err)
	}
	claimed, _ := doc[FieldName].(string)
	if claimed == "" {
		return errors.ErrDigestMismatch
	}
	delete(doc, FieldName)

	expected, err := s.signCanonical(doc, keyIndex)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(claimed), []byte(expected)) {
		return errors.ErrDigestMismatch
	}
	return nil
}

// signCanonical hashes the canonical JSON of doc with SHA-512 and signs the
// hash with the site key. Go marshals maps with sorted keys, which gives a
// deterministic canonical form for both signing and verification.
func (s *Signer) signCanonical(doc map[string]any, keyIndex int) (string, error) {
	if keyIndex < 0 || keyIndex >= len(s.keys) {
		return "", fmt.Errorf("%w: index %d", errors.ErrUnknownKeyIndex, keyIndex)
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("canonicalize body: %w", err)
	}

	bodyHash := sha512.Sum512(canonical)
	mac := hmac.New(sha512.New, s.keys[keyIndex])
	mac.Write(bodyHash[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
