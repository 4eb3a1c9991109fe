package lobby

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/game"
)

// Timer is a cancellable pending turn timeout.
type Timer interface {
	Stop() bool
}

// MatchKey identifies the unordered pair (a, b); MatchKey(a, b) == MatchKey(b, a).
func MatchKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// Match is one head-to-head contest between two players of a room.
// It is created lazily on the first secret code and becomes active once
// both codes are in.
type Match struct {
	ID            string
	Key           string
	A, B          *Player
	SecretCodes   map[string][]int
	Attempts      map[string][]game.Attempt
	CurrentTurn   string
	TurnStartedAt time.Time
	StartedAt     time.Time

	// TurnGen increases on every turn change; a timeout carrying an older
	// generation is stale and must be ignored.
	TurnGen uint64
	timer   Timer

	FirstWinnerID       string
	FirstWinnerAttempts int
}

func newMatch(a, b *Player) *Match {
	return &Match{
		ID:          uuid.NewString(),
		Key:         MatchKey(a.ID, b.ID),
		A:           a,
		B:           b,
		SecretCodes: make(map[string][]int, 2),
		Attempts:    make(map[string][]game.Attempt, 2),
	}
}

// Active reports whether both secret codes have been submitted.
func (m *Match) Active() bool { return len(m.SecretCodes) == 2 }

// Has reports whether id is one of the two match players.
func (m *Match) Has(id string) bool { return m.A.ID == id || m.B.ID == id }

// Opponent returns the other player of the match.
func (m *Match) Opponent(id string) *Player {
	if m.A.ID == id {
		return m.B
	}
	return m.A
}

// Player returns the match player with the given id.
func (m *Match) Player(id string) *Player {
	if m.A.ID == id {
		return m.A
	}
	return m.B
}

// Count returns the number of attempts recorded for id.
func (m *Match) Count(id string) int { return len(m.Attempts[id]) }

// Record appends an attempt for id.
func (m *Match) Record(id string, a game.Attempt) {
	m.Attempts[id] = append(m.Attempts[id], a)
}

// Arm replaces the pending timer. Any previous timer is stopped first so at
// most one is ever pending.
func (m *Match) Arm(t Timer) {
	m.StopTimer()
	m.timer = t
}

// StopTimer cancels the pending timeout, if any.
func (m *Match) StopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Pending reports whether a timeout is armed.
func (m *Match) Pending() bool { return m.timer != nil }

// Reset drops codes, attempts and first-winner state, returning the match to
// the code collection phase.
func (m *Match) Reset() {
	m.StopTimer()
	m.SecretCodes = make(map[string][]int, 2)
	m.Attempts = make(map[string][]game.Attempt, 2)
	m.CurrentTurn = ""
	m.FirstWinnerID = ""
	m.FirstWinnerAttempts = 0
	m.TurnGen++
}
