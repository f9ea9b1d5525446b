package keystore

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tidwall/jsonc"

	"zkack/internal/domain"
	cryptoinfra "zkack/internal/infra/crypto"
)

// Registry maps kids to Ed25519 verification keys. It is built once and never
// mutated, so it is safe for concurrent readers without locking.
type Registry struct {
	keys map[string]ed25519.PublicKey
}

// New validates entries and builds a registry. Any bad entry fails the whole
// load.
func New(entries []domain.KeyEntry) (*Registry, error) {
	keys := make(map[string]ed25519.PublicKey, len(entries))
	for i, entry := range entries {
		if entry.KID == "" {
			return nil, fmt.Errorf("keystore entry %d: kid is required", i)
		}
		if _, dup := keys[entry.KID]; dup {
			return nil, fmt.Errorf("keystore entry %d: duplicate kid %q", i, entry.KID)
		}
		raw, err := cryptoinfra.DecodeB64(cryptoinfra.NormalizeB64(entry.VKB64))
		if err != nil {
			return nil, fmt.Errorf("keystore entry %q: vk_b64: %w", entry.KID, err)
		}
		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("keystore entry %q: vk_b64 must decode to %d bytes, got %d", entry.KID, ed25519.PublicKeySize, len(raw))
		}
		keys[entry.KID] = ed25519.PublicKey(raw)
	}
	return &Registry{keys: keys}, nil
}

// LoadFile reads a JSON array of {kid, vk_b64}. Comments and trailing commas
// are tolerated.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	var entries []domain.KeyEntry
	if err := json.Unmarshal(jsonc.ToJSON(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode keystore %s: %w", path, err)
	}
	return New(entries)
}

func (r *Registry) Lookup(kid string) (ed25519.PublicKey, bool) {
	if r == nil {
		return nil, false
	}
	key, ok := r.keys[kid]
	return key, ok
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

func (r *Registry) KIDs() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.keys))
	for kid := range r.keys {
		out = append(out, kid)
	}
	sort.Strings(out)
	return out
}

var _ domain.KeyLookup = (*Registry)(nil)
