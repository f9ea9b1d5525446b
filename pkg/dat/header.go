package dat

import (
	"bytes"
	"strings"

	"zkack/internal/domain"
)

// InjectHeader inserts "X-ZK-DAT: <compact>" as the last header line. A
// message without a header/body separator gets the line prepended.
func InjectHeader(raw []byte, compact string) []byte {
	line := domain.DATHeaderName + ": " + compact
	end := headerEnd(raw)
	if end < 0 {
		return append([]byte(line+"\r\n"), raw...)
	}
	// end points at the line break closing the last header.
	eol := "\r\n"
	if bytes.HasPrefix(raw[end:], []byte("\n\n")) {
		eol = "\n"
	}
	line += eol
	cut := end + len(eol)
	out := make([]byte, 0, len(raw)+len(line))
	out = append(out, raw[:cut]...)
	out = append(out, line...)
	out = append(out, raw[cut:]...)
	return out
}

// ExtractHeader returns the compact envelope carried in X-ZK-DAT, with any
// folding whitespace removed.
func ExtractHeader(raw []byte) (string, bool) {
	value, ok := headerValue(HeaderBlock(raw), domain.DATHeaderName)
	if !ok {
		return "", false
	}
	value = stripFoldingSpace(value)
	if value == "" || strings.Count(value, ".") != 2 {
		return "", false
	}
	return value, true
}
