package main

import (
	"crypto/rand"
	"os"
	"strings"

	"zkack/internal/domain"
	"zkack/internal/infra/keys/keystore"
	"zkack/internal/infra/proof"
	"zkack/pkg/dat"
)

func (c *cli) runKeygen(args []string) int {
	fs := c.flagSet("keygen")
	var outDir string
	fs.StringVar(&outDir, "out-dir", "./keys", "directory for dev-priv.json and pubkeys.json")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	key, err := dat.GenerateKey()
	if err != nil {
		return c.fail("generate key: %v", err)
	}
	privPath, pubPath, err := dat.WriteKeyFiles(outDir, key)
	if err != nil {
		return c.fail("write keys: %v", err)
	}
	return c.printJSON(map[string]string{
		"kid":     key.KID,
		"privkey": privPath,
		"pubkeys": pubPath,
	})
}

type attestationKeyFile struct {
	PublicKeyB64  string `json:"public_key_b64"`
	PrivateKeyB64 string `json:"private_key_b64"`
}

func (c *cli) runProofKeygen(args []string) int {
	fs := c.flagSet("proof keygen")
	var outPath string
	fs.StringVar(&outPath, "out", "", "write the private key to this file (default: print both keys)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	attest, err := proof.GenerateAttestationKey(rand.Reader)
	if err != nil {
		return c.fail("generate attestation key: %v", err)
	}
	pub, err := attest.PublicKeyB64()
	if err != nil {
		return c.fail("encode public key: %v", err)
	}
	priv, err := attest.PrivateKeyB64()
	if err != nil {
		return c.fail("encode private key: %v", err)
	}
	if outPath == "" {
		return c.printJSON(attestationKeyFile{PublicKeyB64: pub, PrivateKeyB64: priv})
	}
	if err := os.WriteFile(outPath, []byte(priv+"\n"), 0o600); err != nil {
		return c.fail("write %s: %v", outPath, err)
	}
	return c.printJSON(map[string]string{"public_key_b64": pub, "private_key_file": outPath})
}

func (c *cli) runProofProduce(args []string) int {
	fs := c.flagSet("proof produce")
	var keyFile string
	var keystorePath string
	fs.StringVar(&keyFile, "key-file", "", "attestation private key file")
	fs.StringVar(&keystorePath, "keystore", "./keys/pubkeys.json", "keystore used to verify the token first")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if keyFile == "" || fs.NArg() != 1 {
		return c.fail("proof produce requires --key-file and one message path")
	}

	rawKey, err := os.ReadFile(keyFile)
	if err != nil {
		return c.fail("read key: %v", err)
	}
	attest, err := proof.NewAttestationSigner(strings.TrimSpace(string(rawKey)))
	if err != nil {
		return c.fail("%v", err)
	}
	registry, err := keystore.LoadFile(keystorePath)
	if err != nil {
		return c.fail("load keystore: %v", err)
	}
	env, err := c.envelopeFromMessage(fs.Arg(0), "", registry)
	if err != nil {
		return c.fail("%v", err)
	}
	produced, err := attest.Produce(domain.StatementFor(env.Payload))
	if err != nil {
		return c.fail("produce proof: %v", err)
	}
	_, err = c.stdout.Write(append(produced, '\n'))
	if err != nil {
		return 1
	}
	return 0
}
