// Package revision produces and compares document revision tokens of the
// form "<generation>-<hash>". Generations are linear: each write bumps the
// generation by one, the hash makes tokens unique across writers.
package revision

import (
	"crypto/rand"
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var revPattern = regexp.MustCompile(`^\d+-[a-z0-9]+$`)

// Generate returns the next revision token after prev. An empty prev starts
// at generation 1.
func Generate(prev string) string {
	gen := int64(1)
	if prev != "" {
		gen = Generation(prev) + 1
	}
	return strconv.FormatInt(gen, 10) + "-" + newHash()
}

// Generation parses the decimal generation before the first "-".
// Returns 0 for malformed tokens.
func Generation(rev string) int64 {
	head, _, ok := strings.Cut(rev, "-")
	if !ok {
		return 0
	}
	gen, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0
	}
	return gen
}

// IsNewer reports whether a has a higher generation than b.
func IsNewer(a, b string) bool {
	return Generation(a) > Generation(b)
}

// IsValid reports whether rev matches the "<generation>-<hash>" format.
func IsValid(rev string) bool {
	return revPattern.MatchString(rev)
}

// newHash builds the hash portion: base36 millis plus base36 random.
func newHash() string {
	var b [8]byte
	rand.Read(b[:])
	r := int64(binary.BigEndian.Uint64(b[:]) >> 1)

	return strconv.FormatInt(time.Now().UnixMilli(), 36) + strconv.FormatInt(r, 36)
}
