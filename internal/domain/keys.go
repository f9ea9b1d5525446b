package domain

import "crypto/ed25519"

// KeyLookup resolves a kid to its Ed25519 verification key.
type KeyLookup interface {
	Lookup(kid string) (ed25519.PublicKey, bool)
}

type KeyLookupFunc func(kid string) (ed25519.PublicKey, bool)

func (f KeyLookupFunc) Lookup(kid string) (ed25519.PublicKey, bool) {
	return f(kid)
}

// KeyEntry is one keystore record: a kid and its base64url verification key.
type KeyEntry struct {
	KID   string `json:"kid"`
	VKB64 string `json:"vk_b64"`
}

// PrivateKeyFile is the sender-side key file written by keygen.
type PrivateKeyFile struct {
	KID   string `json:"kid"`
	SKB64 string `json:"sk_b64"`
	VKB64 string `json:"vk_b64"`
}
