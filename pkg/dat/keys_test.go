package dat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zkack/internal/domain"
)

func TestGenerateKey_WriteAndLoad(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(key.KID, "dev-") {
		t.Fatalf("unexpected kid %s", key.KID)
	}
	dir := t.TempDir()
	privPath, pubPath, err := WriteKeyFiles(dir, key)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, priv, err := LoadPrivateKeyFile(privPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.KID != key.KID {
		t.Fatalf("kid mismatch %s != %s", loaded.KID, key.KID)
	}
	pub, err := ParsePublicKeyB64(key.VKB64)
	if err != nil {
		t.Fatalf("parse public: %v", err)
	}
	compact, err := Build(testPayload(t), key.KID, priv)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := ParseAndVerify(compact, staticKeys{key.KID: pub}); err != nil {
		t.Fatalf("verify with loaded key: %v", err)
	}

	raw, err := os.ReadFile(pubPath)
	if err != nil {
		t.Fatalf("read pubkeys: %v", err)
	}
	var entries []domain.KeyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("decode pubkeys: %v", err)
	}
	if len(entries) != 1 || entries[0].KID != key.KID || entries[0].VKB64 != key.VKB64 {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestLoadPrivateKeyFile_AllowsComments(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key.json")
	body := "{\n  // sender key\n  \"kid\": \"" + key.KID + "\",\n  \"sk_b64\": \"" + key.SKB64 + "\"\n}\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := LoadPrivateKeyFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestParsePrivateKeyB64_RejectsBadLength(t *testing.T) {
	if _, err := ParsePrivateKeyB64("YWJj"); err == nil {
		t.Fatal("expected length error")
	}
	if _, err := ParsePublicKeyB64("YWJj"); err == nil {
		t.Fatal("expected length error")
	}
}
