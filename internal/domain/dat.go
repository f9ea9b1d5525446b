package domain

import "time"

const (
	DATVersion = 1

	// EnvelopeAlgEdDSA is the only header algorithm accepted by the verifier.
	EnvelopeAlgEdDSA = "EdDSA"

	// DATHeaderName is the message header carrying the compact envelope.
	DATHeaderName = "X-ZK-DAT"
)

type DigestAlg string

const (
	DigestAlgDKIMBodyHash DigestAlg = "dkim-bh"
	DigestAlgBlake3       DigestAlg = "blake3"
)

type Policy struct {
	AckBySecs uint64   `json:"ack_by_secs"`
	Fallbacks []string `json:"fallbacks"`
}

// DatPayload is the signed content of a delivery acknowledgment token.
// AddrHashB64 is blake3(salt || recipient address); Exp is a policy deadline
// checked separately from the signature.
type DatPayload struct {
	V            uint8     `json:"v"`
	SaltB64      string    `json:"salt_b64"`
	AddrHashB64  string    `json:"addr_hash_b64"`
	MsgDigestB64 string    `json:"msg_digest_b64"`
	DigestAlg    DigestAlg `json:"digest_alg"`
	Exp          string    `json:"exp"`
	NonceB64     string    `json:"nonce_b64"`
	Policy       Policy    `json:"policy"`
}

func (p DatPayload) ExpiresAt() (time.Time, error) {
	return time.Parse(time.RFC3339, p.Exp)
}

type EnvelopeHeader struct {
	Alg string `json:"alg"`
	KID string `json:"kid"`
}
