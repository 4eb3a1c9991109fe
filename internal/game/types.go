// internal/game/types.go
//
// Core type definitions for the Codebreaker rules.
// Defines:
//   - Settings: per-room configuration shared by every match in the room.
//   - Attempt:  one scored guess (or a timed-out turn).
//   - Game:     state for a single solo game.

package game

import (
	"errors"
	"fmt"
)

// Bounds for room settings.
const (
	MinDigits      = 3
	MaxDigits      = 10
	MinMaxAttempts = 5
	MaxMaxAttempts = 50
)

var ErrSettings = errors.New("invalid settings")

// Settings holds the room-wide game configuration.
type Settings struct {
	NumDigits    int  `json:"numDigits"`
	MaxAttempts  int  `json:"maxAttempts"`
	CardsEnabled bool `json:"cardsEnabled"`
}

// DefaultSettings returns the configuration a new room starts with.
func DefaultSettings() Settings {
	return Settings{NumDigits: 4, MaxAttempts: 20}
}

// Validate reports whether s is within the allowed bounds.
func (s Settings) Validate() error {
	if s.NumDigits < MinDigits || s.NumDigits > MaxDigits {
		return fmt.Errorf("%w: numDigits must be %d-%d", ErrSettings, MinDigits, MaxDigits)
	}
	if s.MaxAttempts < MinMaxAttempts || s.MaxAttempts > MaxMaxAttempts {
		return fmt.Errorf("%w: maxAttempts must be %d-%d", ErrSettings, MinMaxAttempts, MaxMaxAttempts)
	}
	return nil
}

// Attempt is one recorded guess. Attempts are values and are never mutated
// after being appended to a player's history.
type Attempt struct {
	Guess          []int `json:"guess"`
	ExactMatches   int   `json:"exactMatches"`
	PartialMatches int   `json:"partialMatches"`
	TimedOut       bool  `json:"timedOut,omitempty"`
}

// Game holds the state of a single solo session.
type Game struct {
	ID       string    // Unique game identifier (uuid).
	Secret   []int     // The code to break.
	Settings Settings  // Digits and attempt limit.
	Attempts []Attempt // Guesses made so far.
	Finished bool      // True once the game is over (won or lost).
	Won      bool      // True if the game was finished with a win.
}
