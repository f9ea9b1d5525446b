package dat

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"zkack/internal/domain"
	cryptoinfra "zkack/internal/infra/crypto"
)

// Envelope is a verified token: the decoded header and payload.
type Envelope struct {
	Header  domain.EnvelopeHeader
	Payload domain.DatPayload
}

// Build serializes header and payload to canonical JSON, encodes both as
// unpadded base64url and signs "header.payload" with key.
func Build(payload domain.DatPayload, kid string, key ed25519.PrivateKey) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("invalid ed25519 private key length %d", len(key))
	}
	header, err := cryptoinfra.CanonicalizeAny(domain.EnvelopeHeader{Alg: domain.EnvelopeAlgEdDSA, KID: kid})
	if err != nil {
		return "", fmt.Errorf("encode header: %w", err)
	}
	body, err := cryptoinfra.CanonicalizeAny(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	signingInput := cryptoinfra.EncodeB64(header) + "." + cryptoinfra.EncodeB64(body)
	sig := ed25519.Sign(key, []byte(signingInput))
	return signingInput + "." + cryptoinfra.EncodeB64(sig), nil
}

// ParseAndVerify checks a compact envelope against the keys in lookup. The
// signature is verified over the transmitted segments. Expiry is not checked.
func ParseAndVerify(compact string, lookup domain.KeyLookup) (Envelope, error) {
	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return Envelope{}, fmt.Errorf("%w: expected 3 segments, got %d", domain.ErrMalformedEnvelope, len(parts))
	}

	var header domain.EnvelopeHeader
	if err := decodeSegment(parts[0], &header); err != nil {
		return Envelope{}, fmt.Errorf("%w: header: %v", domain.ErrMalformedEnvelope, err)
	}
	if header.Alg != domain.EnvelopeAlgEdDSA {
		return Envelope{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedAlgorithm, header.Alg)
	}
	body, err := cryptoinfra.DecodeB64(parts[1])
	if err != nil || !utf8.Valid(body) {
		return Envelope{}, fmt.Errorf("%w: payload encoding", domain.ErrMalformedEnvelope)
	}

	var pub ed25519.PublicKey
	var ok bool
	if lookup != nil {
		pub, ok = lookup.Lookup(header.KID)
	}
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %q", domain.ErrUnknownKeyID, header.KID)
	}

	sig, err := cryptoinfra.DecodeB64(parts[2])
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: signature encoding", domain.ErrMalformedEnvelope)
	}
	signingInput := compact[:len(parts[0])+1+len(parts[1])]
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize ||
		!ed25519.Verify(pub, []byte(signingInput), sig) {
		return Envelope{}, domain.ErrSignatureInvalid
	}

	var payload domain.DatPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Envelope{}, fmt.Errorf("%w: payload: %v", domain.ErrMalformedEnvelope, err)
	}
	return Envelope{Header: header, Payload: payload}, nil
}

func decodeSegment(segment string, out any) error {
	raw, err := cryptoinfra.DecodeB64(segment)
	if err != nil {
		return err
	}
	if !utf8.Valid(raw) {
		return fmt.Errorf("not UTF-8")
	}
	return json.Unmarshal(raw, out)
}
