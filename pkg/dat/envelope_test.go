package dat

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"zkack/internal/domain"
	cryptoinfra "zkack/internal/infra/crypto"
)

type staticKeys map[string]ed25519.PublicKey

func (s staticKeys) Lookup(kid string) (ed25519.PublicKey, bool) {
	key, ok := s[kid]
	return key, ok
}

func newTestKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return pub, priv
}

func testPayload(t *testing.T) domain.DatPayload {
	t.Helper()
	payload, err := NewPayload(PayloadInput{
		Recipient:    "alice@example.com",
		DigestAlg:    domain.DigestAlgBlake3,
		MsgDigestB64: cryptoinfra.Blake3B64([]byte("hello")),
		AckBy:        15 * time.Minute,
		Now:          time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("new payload: %v", err)
	}
	return payload
}

func TestBuildParseAndVerify_RoundTrip(t *testing.T) {
	pub, priv := newTestKey(t)
	payload := testPayload(t)

	compact, err := Build(payload, "dev-1", priv)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Contains(compact, "=") || strings.Count(compact, ".") != 2 {
		t.Fatalf("unexpected compact form: %s", compact)
	}
	env, err := ParseAndVerify(compact, staticKeys{"dev-1": pub})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if env.Header.KID != "dev-1" || env.Header.Alg != domain.EnvelopeAlgEdDSA {
		t.Fatalf("unexpected header: %+v", env.Header)
	}
	if !reflect.DeepEqual(env.Payload, payload) {
		t.Fatalf("payload mismatch:\n got %+v\nwant %+v", env.Payload, payload)
	}
}

func TestBuild_HeaderIsCanonical(t *testing.T) {
	_, priv := newTestKey(t)
	compact, err := Build(testPayload(t), "k", priv)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	header, err := cryptoinfra.DecodeB64(strings.Split(compact, ".")[0])
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if string(header) != `{"alg":"EdDSA","kid":"k"}` {
		t.Fatalf("unexpected header json: %s", header)
	}
}

func TestParseAndVerify_SignatureTamper(t *testing.T) {
	pub, priv := newTestKey(t)
	compact, err := Build(testPayload(t), "dev-1", priv)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	parts := strings.Split(compact, ".")
	sig, err := cryptoinfra.DecodeB64(parts[2])
	if err != nil {
		t.Fatalf("decode sig: %v", err)
	}
	keys := staticKeys{"dev-1": pub}
	for i := range sig {
		flipped := append([]byte(nil), sig...)
		flipped[i] ^= 0x01
		tampered := parts[0] + "." + parts[1] + "." + cryptoinfra.EncodeB64(flipped)
		if _, err := ParseAndVerify(tampered, keys); !errors.Is(err, domain.ErrSignatureInvalid) {
			t.Fatalf("byte %d: expected signature invalid, got %v", i, err)
		}
	}
}

func TestParseAndVerify_PayloadTamper(t *testing.T) {
	pub, priv := newTestKey(t)
	compact, err := Build(testPayload(t), "dev-1", priv)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	parts := strings.Split(compact, ".")
	keys := staticKeys{"dev-1": pub}
	for i := 0; i < len(parts[1]); i++ {
		b := []byte(parts[1])
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		tampered := parts[0] + "." + string(b) + "." + parts[2]
		_, err := ParseAndVerify(tampered, keys)
		if !errors.Is(err, domain.ErrEnvelopeInvalid) {
			t.Fatalf("position %d: expected envelope failure, got %v", i, err)
		}
	}

	// A payload that still decodes must fail on the signature, not parsing.
	body, _ := cryptoinfra.DecodeB64(parts[1])
	body = []byte(strings.Replace(string(body), `"v":1`, `"v":2`, 1))
	resigned := parts[0] + "." + cryptoinfra.EncodeB64(body) + "." + parts[2]
	if _, err := ParseAndVerify(resigned, keys); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("expected signature invalid, got %v", err)
	}
}

func TestParseAndVerify_UnknownKeyDistinctFromSignature(t *testing.T) {
	pub, priv := newTestKey(t)
	otherPub, _ := newTestKey(t)
	compact, err := Build(testPayload(t), "dev-1", priv)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	_, err = ParseAndVerify(compact, staticKeys{"dev-2": pub})
	if !errors.Is(err, domain.ErrUnknownKeyID) {
		t.Fatalf("expected unknown kid, got %v", err)
	}
	if errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatal("unknown kid must not be reported as a signature failure")
	}

	_, err = ParseAndVerify(compact, staticKeys{"dev-1": otherPub})
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("expected signature invalid for wrong key, got %v", err)
	}
}

func TestParseAndVerify_UnsupportedAlgorithm(t *testing.T) {
	pub, priv := newTestKey(t)
	header, _ := cryptoinfra.CanonicalizeAny(domain.EnvelopeHeader{Alg: "RS256", KID: "dev-1"})
	body, _ := cryptoinfra.CanonicalizeAny(testPayload(t))
	input := cryptoinfra.EncodeB64(header) + "." + cryptoinfra.EncodeB64(body)
	compact := input + "." + cryptoinfra.EncodeB64(ed25519.Sign(priv, []byte(input)))

	_, err := ParseAndVerify(compact, staticKeys{"dev-1": pub})
	if !errors.Is(err, domain.ErrUnsupportedAlgorithm) {
		t.Fatalf("expected unsupported alg, got %v", err)
	}
}

func TestParseAndVerify_Malformed(t *testing.T) {
	pub, priv := newTestKey(t)
	compact, err := Build(testPayload(t), "dev-1", priv)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	parts := strings.Split(compact, ".")
	cases := map[string]string{
		"two segments":   parts[0] + "." + parts[1],
		"four segments":  compact + ".x",
		"empty":          "",
		"header base64":  "!!!." + parts[1] + "." + parts[2],
		"header json":    cryptoinfra.EncodeB64([]byte("not json")) + "." + parts[1] + "." + parts[2],
		"payload base64": parts[0] + ".***." + parts[2],
		"padded sig":     parts[0] + "." + parts[1] + "." + parts[2] + "==",
	}
	for name, token := range cases {
		_, err := ParseAndVerify(token, staticKeys{"dev-1": pub})
		if !errors.Is(err, domain.ErrMalformedEnvelope) {
			t.Fatalf("%s: expected malformed envelope, got %v", name, err)
		}
	}
}

func TestParseAndVerify_DoesNotCheckExpiry(t *testing.T) {
	pub, priv := newTestKey(t)
	payload := testPayload(t)
	payload.Exp = "2000-01-01T00:00:00Z"
	compact, err := Build(payload, "dev-1", priv)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := ParseAndVerify(compact, staticKeys{"dev-1": pub}); err != nil {
		t.Fatalf("expired token should still verify: %v", err)
	}
}
