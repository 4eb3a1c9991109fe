// internal/game/engine.go
//
// Solo game engine.
// Responsibilities:
//   - Create new games with a random (or fixed, for tests) secret code.
//   - Validate and apply guesses (length, digit range).
//   - Score guesses with the shared exact/partial scorer.
//   - Track state transitions: playing → won/lost.

package game

import (
	"errors"

	"github.com/google/uuid"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/code"
)

var ErrFinished = errors.New("game finished")

// New constructs a new solo game.
// If secret is empty, a random code of s.NumDigits digits is chosen.
func New(s Settings, secret []int) (*Game, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		var err error
		if secret, err = code.Random(s.NumDigits); err != nil {
			return nil, err
		}
	}
	if err := code.Validate(secret, s.NumDigits); err != nil {
		return nil, err
	}
	return &Game{
		ID:       uuid.NewString(),
		Secret:   append([]int(nil), secret...),
		Settings: s,
		Attempts: []Attempt{},
	}, nil
}

// ApplyGuess validates and scores a guess, mutating the game state.
// Returns the recorded attempt, the new state string ("playing"/"won"/"lost"),
// or an error.
//
// State transitions:
//   - Exact == NumDigits → Finished = true, Won = true.
//   - Else if the attempt count reaches MaxAttempts → Finished = true (loss).
func (g *Game) ApplyGuess(guess []int) (Attempt, string, error) {
	if g.Finished {
		return Attempt{}, g.State(), ErrFinished
	}
	if err := code.Validate(guess, g.Settings.NumDigits); err != nil {
		return Attempt{}, g.State(), err
	}

	r := code.Score(g.Secret, guess)
	a := Attempt{
		Guess:          append([]int(nil), guess...),
		ExactMatches:   r.Exact,
		PartialMatches: r.Partial,
	}
	g.Attempts = append(g.Attempts, a)

	if r.Solved(g.Settings.NumDigits) {
		g.Finished, g.Won = true, true
	} else if len(g.Attempts) >= g.Settings.MaxAttempts {
		g.Finished = true
	}
	return a, g.State(), nil
}

// State reports a coarse string representation of the current game state.
func (g *Game) State() string {
	if g.Finished {
		if g.Won {
			return "won"
		}
		return "lost"
	}
	return "playing"
}
