package proof

import (
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"zkack/internal/domain"
	cryptoinfra "zkack/internal/infra/crypto"
)

const attestDomain = "zkack-proof-attest-v1\n"

// Attestation binds a proof to the statement with a Dilithium3 signature
// from a trusted recipient agent. It is not zero knowledge; soundness rests
// on the agent key rather than on a circuit.
type Attestation struct {
	pub  *mode3.PublicKey
	priv *mode3.PrivateKey
}

func GenerateAttestationKey(rand io.Reader) (*Attestation, error) {
	pub, priv, err := mode3.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return &Attestation{pub: pub, priv: priv}, nil
}

// NewAttestationVerifier can only check proofs.
func NewAttestationVerifier(publicKeyB64 string) (*Attestation, error) {
	raw, err := cryptoinfra.DecodeB64(cryptoinfra.NormalizeB64(publicKeyB64))
	if err != nil {
		return nil, fmt.Errorf("attestation public key: %w", err)
	}
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("attestation public key: %w", err)
	}
	return &Attestation{pub: &pk}, nil
}

func NewAttestationSigner(privateKeyB64 string) (*Attestation, error) {
	raw, err := cryptoinfra.DecodeB64(cryptoinfra.NormalizeB64(privateKeyB64))
	if err != nil {
		return nil, fmt.Errorf("attestation private key: %w", err)
	}
	var sk mode3.PrivateKey
	if err := sk.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("attestation private key: %w", err)
	}
	pub, ok := sk.Public().(*mode3.PublicKey)
	if !ok {
		return nil, errors.New("attestation private key: unexpected public key type")
	}
	return &Attestation{pub: pub, priv: &sk}, nil
}

func (a *Attestation) Name() string { return ModeAttest }

func (a *Attestation) PublicKeyB64() (string, error) {
	raw, err := a.pub.MarshalBinary()
	if err != nil {
		return "", err
	}
	return cryptoinfra.EncodeB64(raw), nil
}

func (a *Attestation) PrivateKeyB64() (string, error) {
	if a.priv == nil {
		return "", errors.New("attestation private key not loaded")
	}
	raw, err := a.priv.MarshalBinary()
	if err != nil {
		return "", err
	}
	return cryptoinfra.EncodeB64(raw), nil
}

// Produce returns the base64url signature text as the proof artifact.
func (a *Attestation) Produce(st domain.ProofStatement) ([]byte, error) {
	if a.priv == nil {
		return nil, errors.New("attestation private key not loaded")
	}
	msg, err := statementMessage(st)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(a.priv, msg, sig)
	return []byte(cryptoinfra.EncodeB64(sig)), nil
}

func (a *Attestation) Check(st domain.ProofStatement, proof []byte) (bool, error) {
	sig, err := cryptoinfra.DecodeB64(string(proof))
	if err != nil || len(sig) != mode3.SignatureSize {
		return false, nil
	}
	msg, err := statementMessage(st)
	if err != nil {
		return false, err
	}
	return mode3.Verify(a.pub, msg, sig), nil
}

func statementMessage(st domain.ProofStatement) ([]byte, error) {
	canonical, err := cryptoinfra.CanonicalizeAny(map[string]any{
		"addr_hash_b64":  st.AddrHashB64,
		"msg_digest_b64": st.MsgDigestB64,
		"nonce_b64":      st.NonceB64,
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(attestDomain), canonical...), nil
}

var _ domain.ProofSystem = (*Attestation)(nil)
