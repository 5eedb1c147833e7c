package summary

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DigestDomain separates report digests from any other hash of the same
// bytes. The version suffix allows the encoding to change.
const DigestDomain = "ducktest/report/v1"

// Digest returns the content address of a report:
// SHA256(DigestDomain + 0x00 + lines joined by "\n"), hex encoded.
// Trailing carriage returns are ignored so CRLF copies digest the same.
func Digest(lines []string) string {
	h := sha256.New()
	h.Write([]byte(DigestDomain))
	h.Write([]byte{0x00})
	for i, line := range lines {
		if i > 0 {
			h.Write([]byte{'\n'})
		}
		h.Write([]byte(strings.TrimRight(line, "\r")))
	}
	return hex.EncodeToString(h.Sum(nil))
}
