// Package entropy supplies run seeds. A configured seed makes a run
// reproducible; without one the seed comes from crypto/rand.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	"time"
)

// Seed returns configured when it is non-zero, otherwise a fresh positive seed.
func Seed(configured int64) int64 {
	if configured != 0 {
		return configured
	}
	s := CryptoSeed()
	slog.Debug("drew random seed", "seed", s)
	return s
}

// CryptoSeed returns a positive int64 from crypto/rand. If the system source
// fails it falls back to the clock.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		slog.Warn("crypto/rand unavailable, seeding from clock", "error", err)
		return time.Now().UnixNano()&(1<<62-1) | 1
	}
	// 62 bits leaves headroom for the per-economy seed offsets.
	n := int64(binary.LittleEndian.Uint64(buf[:]) >> 2)
	if n == 0 {
		n = 1
	}
	return n
}
