package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// randomSuffix draws n characters from an unambiguous alphabet.
func randomSuffix(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// fall back to a time-derived index rather than panicking.
			out[i] = codeAlphabet[int(time.Now().UnixNano())%len(codeAlphabet)]
			continue
		}
		out[i] = codeAlphabet[idx.Int64()]
	}
	return string(out)
}

// newOrderCode builds a human-readable order code: timestamp plus a random
// suffix. Collisions are vanishingly unlikely; the unique index on the column
// is the real guarantee, and the caller retries on a violation.
func newOrderCode(at time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), randomSuffix(6))
}

// newTrackingNumber builds a carrier-style tracking reference.
func newTrackingNumber(at time.Time) string {
	return fmt.Sprintf("TRK-%d-%s", at.UTC().Unix(), randomSuffix(8))
}
