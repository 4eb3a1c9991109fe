// internal/code/score.go
//
// Scoring and validation for digit codes.
// Responsibilities:
//   - Score a guess against a secret using the two-pass exact/partial algorithm.
//   - Validate player-supplied codes (length, digit range).
//   - Generate random codes for solo and daily play.
//
// Convention:
//   - Exact   = right digit, right position.
//   - Partial = right digit, any position. Partial INCLUDES exact matches, so a
//     fully correct guess reports Exact == Partial == len(secret).

package code

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// consumed marks a slot that already took part in a match.
// Secret and guess use different sentinels so two consumed slots never pair up.
const (
	consumedSecret = -1
	consumedGuess  = -2
)

var (
	ErrLength = errors.New("code has the wrong number of digits")
	ErrDigit  = errors.New("code digits must be between 0 and 9")
)

// Result is the outcome of scoring one guess.
type Result struct {
	Exact   int `json:"exactMatches"`
	Partial int `json:"partialMatches"`
}

// Score compares guess against secret.
//
// Pass 1:
//   - Positions with equal digits count as exact; both slots are consumed.
//
// Pass 2:
//   - Each unconsumed guess digit is looked up among the unconsumed secret
//     digits; the first one found is consumed and counted as partial.
//
// Mismatched lengths are scored over the shorter prefix. Inputs are not mutated.
func Score(secret, guess []int) Result {
	n := len(secret)
	if len(guess) < n {
		n = len(guess)
	}
	s := append([]int(nil), secret[:n]...)
	g := append([]int(nil), guess[:n]...)

	exact := 0
	for i := 0; i < n; i++ {
		if g[i] == s[i] {
			exact++
			s[i] = consumedSecret
			g[i] = consumedGuess
		}
	}

	partial := 0
	for i := 0; i < n; i++ {
		if g[i] == consumedGuess {
			continue
		}
		for j := 0; j < n; j++ {
			if s[j] == g[i] {
				partial++
				s[j] = consumedSecret
				break
			}
		}
	}
	return Result{Exact: exact, Partial: partial + exact}
}

// Solved reports whether r is a full match for a code of numDigits digits.
func (r Result) Solved(numDigits int) bool { return r.Exact == numDigits }

// Validate checks that c has exactly numDigits digits in 0..9.
func Validate(c []int, numDigits int) error {
	if len(c) != numDigits {
		return fmt.Errorf("%w: got %d, want %d", ErrLength, len(c), numDigits)
	}
	for _, d := range c {
		if d < 0 || d > 9 {
			return ErrDigit
		}
	}
	return nil
}

// randReader is the entropy source for Random.
var randReader io.Reader = rand.Reader

// Random returns a crypto-random code of n digits (repeats allowed).
func Random(n int) ([]int, error) {
	out := make([]int, n)
	for i := range out {
		v, err := rand.Int(randReader, big.NewInt(10))
		if err != nil {
			return nil, fmt.Errorf("random digit: %w", err)
		}
		out[i] = int(v.Int64())
	}
	return out, nil
}
