package dat

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/tidwall/jsonc"

	"zkack/internal/domain"
	cryptoinfra "zkack/internal/infra/crypto"
)

const (
	PrivateKeyFileName = "dev-priv.json"
	PublicKeysFileName = "pubkeys.json"
)

// ParsePrivateKeyB64 accepts a base64url seed or a full 64-byte private key.
func ParsePrivateKeyB64(value string) (ed25519.PrivateKey, error) {
	raw, err := cryptoinfra.DecodeB64(cryptoinfra.NormalizeB64(value))
	if err != nil {
		return nil, err
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return append(ed25519.PrivateKey(nil), raw...), nil
	default:
		return nil, errors.New("invalid ed25519 private key length")
	}
}

func ParsePublicKeyB64(value string) (ed25519.PublicKey, error) {
	raw, err := cryptoinfra.DecodeB64(cryptoinfra.NormalizeB64(value))
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("invalid ed25519 public key length")
	}
	return append(ed25519.PublicKey(nil), raw...), nil
}

// GenerateKey creates a signing key with a "dev-<uuid>" kid.
func GenerateKey() (domain.PrivateKeyFile, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return domain.PrivateKeyFile{}, err
	}
	return domain.PrivateKeyFile{
		KID:   "dev-" + uuid.NewString(),
		SKB64: cryptoinfra.EncodeB64(priv.Seed()),
		VKB64: cryptoinfra.EncodeB64(pub),
	}, nil
}

// WriteKeyFiles stores the private key file and a one-entry keystore in dir.
func WriteKeyFiles(dir string, key domain.PrivateKeyFile) (string, string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", err
	}
	privPath := filepath.Join(dir, PrivateKeyFileName)
	pubPath := filepath.Join(dir, PublicKeysFileName)
	if err := writeJSON(privPath, key, 0o600); err != nil {
		return "", "", err
	}
	entries := []domain.KeyEntry{{KID: key.KID, VKB64: key.VKB64}}
	if err := writeJSON(pubPath, entries, 0o644); err != nil {
		return "", "", err
	}
	return privPath, pubPath, nil
}

// LoadPrivateKeyFile reads a key file written by WriteKeyFiles. Comments are
// allowed.
func LoadPrivateKeyFile(path string) (domain.PrivateKeyFile, ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.PrivateKeyFile{}, nil, err
	}
	var file domain.PrivateKeyFile
	if err := json.Unmarshal(jsonc.ToJSON(raw), &file); err != nil {
		return domain.PrivateKeyFile{}, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if file.KID == "" {
		return domain.PrivateKeyFile{}, nil, fmt.Errorf("%s: kid is required", path)
	}
	key, err := ParsePrivateKeyB64(file.SKB64)
	if err != nil {
		return domain.PrivateKeyFile{}, nil, fmt.Errorf("%s: sk_b64: %w", path, err)
	}
	return file, key, nil
}

func writeJSON(path string, v any, mode os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, mode)
}
