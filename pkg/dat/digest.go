package dat

import (
	"bytes"
	"strings"

	"zkack/internal/domain"
	cryptoinfra "zkack/internal/infra/crypto"
)

// SelectDigest picks the message-binding digest. A DKIM-Signature body hash
// wins; otherwise the whole raw message is hashed with blake3.
func SelectDigest(raw []byte) (domain.DigestAlg, string) {
	if bh, ok := DKIMBodyHash(raw); ok {
		return domain.DigestAlgDKIMBodyHash, bh
	}
	return domain.DigestAlgBlake3, cryptoinfra.Blake3B64(raw)
}

// DKIMBodyHash returns the normalized bh= tag of the first DKIM-Signature
// header, unfolding continuation lines. A message without a blank line after
// its headers has no body hash.
func DKIMBodyHash(raw []byte) (string, bool) {
	end := headerEnd(raw)
	if end < 0 {
		return "", false
	}
	value, ok := headerValue(raw[:end], "DKIM-Signature")
	if !ok {
		return "", false
	}
	for _, tag := range strings.Split(value, ";") {
		name, val, found := strings.Cut(tag, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "bh") {
			continue
		}
		bh := cryptoinfra.NormalizeB64(stripFoldingSpace(val))
		if bh == "" {
			return "", false
		}
		return bh, true
	}
	return "", false
}

// HeaderBlock returns the bytes before the first blank line, or the whole
// message when there is none.
func HeaderBlock(raw []byte) []byte {
	if i := headerEnd(raw); i >= 0 {
		return raw[:i]
	}
	return raw
}

func headerEnd(raw []byte) int {
	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))
	switch {
	case crlf < 0:
		return lf
	case lf < 0:
		return crlf
	case lf < crlf:
		return lf
	default:
		return crlf
	}
}

// headerValue unfolds the first header called name. Collection stops at the
// first line that does not start with a space or tab.
func headerValue(block []byte, name string) (string, bool) {
	prefix := strings.ToLower(name) + ":"
	lines := strings.Split(strings.ReplaceAll(string(block), "\r\n", "\n"), "\n")
	for i, line := range lines {
		if !strings.HasPrefix(strings.ToLower(line), prefix) {
			continue
		}
		var sb strings.Builder
		sb.WriteString(line[len(prefix):])
		for _, next := range lines[i+1:] {
			if next == "" || (next[0] != ' ' && next[0] != '\t') {
				break
			}
			sb.WriteString(next)
		}
		return strings.TrimSpace(sb.String()), true
	}
	return "", false
}

func stripFoldingSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
