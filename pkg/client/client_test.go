package client

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zkack/internal/config"
	"zkack/internal/domain"
	cryptoinfra "zkack/internal/infra/crypto"
	httpinfra "zkack/internal/infra/http"
	"zkack/internal/infra/ledgermem"
	"zkack/internal/usecase"
	"zkack/pkg/dat"

	"github.com/gin-gonic/gin"
)

type staticKeys map[string]ed25519.PublicKey

func (s staticKeys) Lookup(kid string) (ed25519.PublicKey, bool) {
	key, ok := s[kid]
	return key, ok
}

func newVerifier(t *testing.T) (*httptest.Server, string, domain.DatPayload) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	payload, err := dat.NewPayload(dat.PayloadInput{
		Recipient:    "dave@example.com",
		DigestAlg:    domain.DigestAlgBlake3,
		MsgDigestB64: cryptoinfra.Blake3B64([]byte("msg")),
	})
	if err != nil {
		t.Fatalf("new payload: %v", err)
	}
	compact, err := dat.Build(payload, "k1", priv)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	keys := staticKeys{"k1": pub}
	ledger := ledgermem.New()
	server := httpinfra.NewServerWithDeps(config.Config{}, httpinfra.ServerDeps{
		Acknowledge: &usecase.AcknowledgeDelivery{Keys: keys, Ledger: ledger},
		Verify:      &usecase.VerifyToken{Keys: keys},
		Receipts:    &usecase.ReceiptQuery{Ledger: ledger},
	})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, compact, payload
}

func TestClient_AckVerifySearch(t *testing.T) {
	ts, compact, payload := newVerifier(t)
	c := NewClient(ts.URL + "/")
	ctx := context.Background()

	ack, err := c.Ack(ctx, AckRequest{
		DATJWS:     compact,
		Proof:      "mock-proof-ok",
		ReceivedTS: time.Now().UTC().Format(time.RFC3339),
		RecvDomain: "local.test",
	})
	if err != nil {
		t.Fatalf("ack: %v", err)
	}
	if ack.Status != domain.AckStatusDelivered || ack.AckID == "" {
		t.Fatalf("unexpected ack %+v", ack)
	}

	digest := payload.MsgDigestB64
	verified, err := c.Verify(ctx, VerifyRequest{DATJWS: compact, MsgDigestB64: &digest})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.OK || verified.KID != "k1" || verified.DigestMatch == nil || !*verified.DigestMatch {
		t.Fatalf("unexpected verify %+v", verified)
	}

	limit := 5
	receipts, err := c.Search(ctx, SearchQuery{KID: "k1", Limit: &limit})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(receipts) != 1 || receipts[0].AckID != ack.AckID {
		t.Fatalf("unexpected receipts %+v", receipts)
	}

	all, err := NewClient(ts.URL, WithPrefix("")).ListAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %v %+v", err, all)
	}

	health, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Status != "ok" || health.Receipts != 1 {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestClient_APIError(t *testing.T) {
	ts, compact, _ := newVerifier(t)
	c := NewClient(ts.URL, WithHTTPClient(ts.Client()))

	_, err := c.Ack(context.Background(), AckRequest{DATJWS: compact, Proof: " "})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != "EMPTY_PROOF" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient("").Health(context.Background()); err == nil {
		t.Fatal("expected error without base URL")
	}
}
