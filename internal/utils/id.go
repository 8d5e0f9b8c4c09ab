package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// NewID returns a short random identifier with the given prefix, e.g.
// "s-3f9a0c1d2e4b5a6978c0d1e2".
func NewID(prefix string) string {
	const size = 12

	buf := make([]byte, size)
	var id string
	if _, err := rand.Read(buf); err == nil {
		id = hex.EncodeToString(buf)
	} else {
		id = strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
