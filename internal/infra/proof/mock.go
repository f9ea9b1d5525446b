package proof

import (
	"crypto/subtle"

	"zkack/internal/domain"
)

// MockToken is the fixed artifact the mock system produces and accepts.
const MockToken = "mock-proof-ok"

// Mock accepts exactly MockToken for every statement. It proves nothing and
// is refused by New when the environment is production.
type Mock struct{}

func (Mock) Name() string { return ModeMock }

func (Mock) Produce(domain.ProofStatement) ([]byte, error) {
	return []byte(MockToken), nil
}

func (Mock) Check(_ domain.ProofStatement, proof []byte) (bool, error) {
	return subtle.ConstantTimeCompare(proof, []byte(MockToken)) == 1, nil
}

var _ domain.ProofSystem = Mock{}
