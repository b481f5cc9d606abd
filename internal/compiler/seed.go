package compiler

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// seed returns the request's seed, or derives one from the request, the
// clock and a random nonce. A derived seed differs on every call; callers
// that need reproducible output pass a seed.
func (c *Compiler) seed(req Request) string {
	if s := strings.TrimSpace(req.Seed); s != "" {
		return s
	}

	keys := make([]string, 0, len(req.Filters))
	for k := range req.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(req.ProfileID)
	b.WriteByte('|')
	b.WriteString(req.BlueprintID)
	b.WriteByte('|')
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(req.Filters[k])
		b.WriteByte(';')
	}
	b.WriteByte('|')
	b.WriteString(req.Subject)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(c.now().UnixNano(), 10))
	b.WriteByte('|')
	b.WriteString(c.nonce())

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:8]
}

func randomNonce() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
