package usecase

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"zkack/internal/domain"
	cryptoinfra "zkack/internal/infra/crypto"
	"zkack/internal/infra/ledgermem"
	"zkack/pkg/dat"
)

type staticKeys map[string]ed25519.PublicKey

func (s staticKeys) Lookup(kid string) (ed25519.PublicKey, bool) {
	key, ok := s[kid]
	return key, ok
}

type failingLedger struct {
	*ledgermem.Ledger
	err error
}

func (f failingLedger) Append(context.Context, domain.Receipt) (string, error) {
	return "", f.err
}

type staticPolicy struct {
	result domain.PolicyResult
	err    error
	inputs []domain.AckPolicyInput
}

func (p *staticPolicy) Evaluate(_ context.Context, input domain.AckPolicyInput) (domain.PolicyEvaluation, error) {
	p.inputs = append(p.inputs, input)
	if p.err != nil {
		return domain.PolicyEvaluation{}, p.err
	}
	return domain.PolicyEvaluation{BundleHash: "test", Result: p.result}, nil
}

type countingKeys struct {
	staticKeys
	calls int
}

func (c *countingKeys) Lookup(kid string) (ed25519.PublicKey, bool) {
	c.calls++
	return c.staticKeys.Lookup(kid)
}

var errDiskFull = errors.New("disk full")

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	keys    staticKeys
	priv    ed25519.PrivateKey
	payload domain.DatPayload
	compact string
}

func newFixture(t *testing.T, issued time.Time, ackBy time.Duration) fixture {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	payload, err := dat.NewPayload(dat.PayloadInput{
		Recipient:    "bob@example.org",
		DigestAlg:    domain.DigestAlgBlake3,
		MsgDigestB64: cryptoinfra.Blake3B64([]byte("From: a\r\n\r\nbody")),
		AckBy:        ackBy,
		Now:          issued,
	})
	if err != nil {
		t.Fatalf("new payload: %v", err)
	}
	compact, err := dat.Build(payload, "k1", priv)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return fixture{keys: staticKeys{"k1": pub}, priv: priv, payload: payload, compact: compact}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
