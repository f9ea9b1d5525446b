package dat

import (
	"crypto/subtle"
	"fmt"
	"time"

	"zkack/internal/domain"
	cryptoinfra "zkack/internal/infra/crypto"
)

const (
	SaltSize  = 32
	NonceSize = 16

	DefaultAckBySecs = 900
)

var DefaultFallbacks = []string{"portal", "sms"}

type PayloadInput struct {
	Recipient    string
	DigestAlg    domain.DigestAlg
	MsgDigestB64 string
	AckBy        time.Duration
	Fallbacks    []string
	Now          time.Time
}

// NewPayload draws a fresh salt and nonce and binds the recipient address and
// message digest to an expiry of Now + AckBy.
func NewPayload(in PayloadInput) (domain.DatPayload, error) {
	if in.Recipient == "" {
		return domain.DatPayload{}, fmt.Errorf("recipient is required")
	}
	if in.MsgDigestB64 == "" || in.DigestAlg == "" {
		return domain.DatPayload{}, fmt.Errorf("message digest is required")
	}
	ackBy := in.AckBy
	if ackBy <= 0 {
		ackBy = DefaultAckBySecs * time.Second
	}
	fallbacks := in.Fallbacks
	if fallbacks == nil {
		fallbacks = append([]string(nil), DefaultFallbacks...)
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	salt, err := cryptoinfra.RandomBytes(SaltSize)
	if err != nil {
		return domain.DatPayload{}, fmt.Errorf("salt: %w", err)
	}
	nonce, err := cryptoinfra.RandomBytes(NonceSize)
	if err != nil {
		return domain.DatPayload{}, fmt.Errorf("nonce: %w", err)
	}

	return domain.DatPayload{
		V:            domain.DATVersion,
		SaltB64:      cryptoinfra.EncodeB64(salt),
		AddrHashB64:  cryptoinfra.AddrHashB64(salt, in.Recipient),
		MsgDigestB64: in.MsgDigestB64,
		DigestAlg:    in.DigestAlg,
		Exp:          now.UTC().Add(ackBy).Format(time.RFC3339),
		NonceB64:     cryptoinfra.EncodeB64(nonce),
		Policy: domain.Policy{
			AckBySecs: uint64(ackBy / time.Second),
			Fallbacks: fallbacks,
		},
	}, nil
}

// VerifyAddress reports whether addr is the recipient the payload was bound to.
func VerifyAddress(p domain.DatPayload, addr string) bool {
	salt, err := cryptoinfra.DecodeB64(p.SaltB64)
	if err != nil {
		return false
	}
	got := cryptoinfra.AddrHashB64(salt, addr)
	return subtle.ConstantTimeCompare([]byte(got), []byte(p.AddrHashB64)) == 1
}
