package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/zeebo/blake3"
)

// B64 is the token alphabet: URL-safe base64 without padding.
var B64 = base64.RawURLEncoding

// B64Strict rejects non-zero trailing bits so every byte string has exactly
// one accepted encoding.
var B64Strict = base64.RawURLEncoding.Strict()

func EncodeB64(in []byte) string {
	return B64.EncodeToString(in)
}

func DecodeB64(in string) ([]byte, error) {
	return B64Strict.DecodeString(in)
}

// NormalizeB64 rewrites standard or padded base64 text into the unpadded
// URL-safe alphabet without decoding it.
func NormalizeB64(in string) string {
	out := strings.NewReplacer("+", "-", "/", "_").Replace(strings.TrimSpace(in))
	return strings.TrimRight(out, "=")
}

func Blake3(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}

func Blake3B64(data []byte) string {
	return EncodeB64(Blake3(data))
}

// AddrHashB64 binds a recipient address to a salt: blake3(salt || addr).
func AddrHashB64(salt []byte, addr string) string {
	h := blake3.New()
	_, _ = h.Write(salt)
	_, _ = h.Write([]byte(addr))
	return EncodeB64(h.Sum(nil))
}

func RandomBytes(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}
