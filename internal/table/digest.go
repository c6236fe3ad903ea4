package table

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ParseDigest parses a hex-encoded MD5 digest. Shorter strings are treated
// as a 128-bit number and left-padded with zeros, so "ff" is the digest
// 000000000000000000000000000000ff.
func ParseDigest(s string) ([md5.Size]byte, error) {
	var d [md5.Size]byte
	if s == "" {
		return d, errors.New("empty digest")
	}
	if len(s) > 2*md5.Size {
		return d, fmt.Errorf("digest %q longer than %d hex digits", s, 2*md5.Size)
	}
	padded := strings.Repeat("0", 2*md5.Size-len(s)) + s
	if _, err := hex.Decode(d[:], []byte(padded)); err != nil {
		return d, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	return d, nil
}
