package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"zkack/internal/domain"
	"zkack/internal/infra/keys/keystore"
	"zkack/pkg/dat"
)

func (c *cli) runDigest(args []string) int {
	fs := c.flagSet("digest")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		return c.fail("digest requires one message path")
	}
	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return c.fail("read message: %v", err)
	}
	alg, digest := dat.SelectDigest(raw)
	return c.printJSON(map[string]string{
		"digest_alg":     string(alg),
		"msg_digest_b64": digest,
	})
}

func (c *cli) runSign(args []string) int {
	fs := c.flagSet("sign")
	var privPath string
	var kid string
	var to string
	var ackBySecs uint64
	var outPath string
	fs.StringVar(&privPath, "privkey", "", "private key file (kid, sk_b64, vk_b64)")
	fs.StringVar(&kid, "kid", "", "key id; must match the private key file")
	fs.StringVar(&to, "to", "", "recipient address bound into the token")
	fs.Uint64Var(&ackBySecs, "ack-by-secs", dat.DefaultAckBySecs, "acknowledgment deadline in seconds")
	fs.StringVar(&outPath, "out", "", "output message path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if privPath == "" || to == "" || fs.NArg() != 1 {
		return c.fail("sign requires --privkey, --to and one message path")
	}
	if ackBySecs == 0 {
		return c.fail("--ack-by-secs must be positive")
	}

	keyFile, key, err := dat.LoadPrivateKeyFile(privPath)
	if err != nil {
		return c.fail("load private key: %v", err)
	}
	if kid == "" {
		kid = keyFile.KID
	} else if kid != keyFile.KID {
		return c.fail("kid mismatch between --kid and %s", privPath)
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return c.fail("read message: %v", err)
	}
	alg, digest := dat.SelectDigest(raw)
	payload, err := dat.NewPayload(dat.PayloadInput{
		Recipient:    to,
		DigestAlg:    alg,
		MsgDigestB64: digest,
		AckBy:        time.Duration(ackBySecs) * time.Second,
	})
	if err != nil {
		return c.fail("build payload: %v", err)
	}
	compact, err := dat.Build(payload, kid, key)
	if err != nil {
		return c.fail("sign token: %v", err)
	}
	signed := dat.InjectHeader(raw, compact)

	if outPath == "" {
		if _, err := c.stdout.Write(signed); err != nil {
			return 1
		}
		return 0
	}
	if err := os.WriteFile(outPath, signed, 0o644); err != nil {
		return c.fail("write %s: %v", outPath, err)
	}
	return 0
}

type offlineVerifyResult struct {
	KID         string            `json:"kid"`
	DAT         domain.DatPayload `json:"dat"`
	Expired     bool              `json:"expired"`
	AddrMatch   *bool             `json:"addr_match,omitempty"`
	DigestMatch *bool             `json:"digest_match,omitempty"`
}

func (c *cli) runVerify(args []string) int {
	fs := c.flagSet("verify")
	var keystorePath string
	var token string
	var to string
	var digestFrom string
	fs.StringVar(&keystorePath, "keystore", "./keys/pubkeys.json", "keystore file")
	fs.StringVar(&token, "token", "", "compact token instead of a message")
	fs.StringVar(&to, "to", "", "check the token is bound to this address")
	fs.StringVar(&digestFrom, "digest-from", "", "compare the token digest with this unsigned message")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if token == "" && fs.NArg() != 1 {
		return c.fail("verify requires --token or one message path")
	}

	registry, err := keystore.LoadFile(keystorePath)
	if err != nil {
		return c.fail("load keystore: %v", err)
	}
	path := ""
	if token == "" {
		path = fs.Arg(0)
	}
	env, err := c.envelopeFromMessage(path, token, registry)
	if err != nil {
		return c.fail("%v", err)
	}

	result := offlineVerifyResult{KID: env.Header.KID, DAT: env.Payload}
	exp, err := env.Payload.ExpiresAt()
	result.Expired = err != nil || time.Now().After(exp)
	if to != "" {
		match := dat.VerifyAddress(env.Payload, to)
		result.AddrMatch = &match
	}
	if digestFrom != "" {
		raw, err := os.ReadFile(digestFrom)
		if err != nil {
			return c.fail("read message: %v", err)
		}
		alg, digest := dat.SelectDigest(raw)
		match := alg == env.Payload.DigestAlg && digest == env.Payload.MsgDigestB64
		result.DigestMatch = &match
	}
	return c.printJSON(result)
}

// envelopeFromMessage verifies token, or the X-ZK-DAT header of the message
// at path when token is empty.
func (c *cli) envelopeFromMessage(path, token string, keys domain.KeyLookup) (dat.Envelope, error) {
	if token == "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return dat.Envelope{}, fmt.Errorf("read message: %w", err)
		}
		var ok bool
		token, ok = dat.ExtractHeader(raw)
		if !ok {
			return dat.Envelope{}, errors.New(domain.DATHeaderName + " not found")
		}
	}
	env, err := dat.ParseAndVerify(strings.TrimSpace(token), keys)
	if err != nil {
		return dat.Envelope{}, fmt.Errorf("verify token: %w", err)
	}
	return env, nil
}
