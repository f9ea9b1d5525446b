package proof

import (
	"errors"
	"fmt"
	"strings"

	"zkack/internal/domain"
)

const (
	// ModePresence only requires a non-empty proof artifact.
	ModePresence = "presence"
	ModeMock     = "mock"
	ModeAttest   = "attest"
)

type Config struct {
	Mode         string
	Environment  string
	AttestPubB64 string
}

// New selects the proof system for the verifier. Presence mode returns a nil
// system: the acknowledge flow then checks only that a proof was supplied.
func New(cfg Config) (domain.ProofSystem, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", ModePresence:
		return nil, nil
	case ModeMock:
		if isProduction(cfg.Environment) {
			return nil, errors.New("mock proof system is not allowed in production")
		}
		return Mock{}, nil
	case ModeAttest:
		if cfg.AttestPubB64 == "" {
			return nil, errors.New("PROOF_ATTEST_PUBKEY_B64 is required for attest mode")
		}
		verifier, err := NewAttestationVerifier(cfg.AttestPubB64)
		if err != nil {
			return nil, err
		}
		return verifier, nil
	default:
		return nil, fmt.Errorf("unsupported proof mode %q", cfg.Mode)
	}
}

func isProduction(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		return true
	}
	return false
}
