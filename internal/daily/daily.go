package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"time"
)

// DefaultDigits is the code length used by the daily challenge.
const DefaultDigits = 4

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CodeFor returns the deterministic code for a date: digit i is byte i of
// HMAC(salt, YYYY-MM-DD) mod 10. numDigits is capped at the digest size.
func CodeFor(date time.Time, salt string, numDigits int) []int {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	numDigits = min(max(numDigits, 0), len(sum))
	out := make([]int, numDigits)
	for i := range out {
		out[i] = int(sum[i] % 10)
	}
	return out
}
