package lobby

import (
	"github.com/robalobadob/codebreaker/apps/go-server/internal/game"
)

// Room is a lobby of players who can challenge each other.
type Room struct {
	ID       string
	Players  []*Player // join order
	Settings game.Settings
	Matches  map[string]*Match
}

func newRoom(id string, s game.Settings) *Room {
	return &Room{
		ID:       id,
		Settings: s,
		Matches:  make(map[string]*Match),
	}
}

// Member returns the room member with the given id, or nil.
func (r *Room) Member(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) remove(id string) {
	for i, p := range r.Players {
		if p.ID == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return
		}
	}
}

// Summaries lists the members in join order.
func (r *Room) Summaries() []Summary {
	out := make([]Summary, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p.Summary())
	}
	return out
}

// Broadcast sends msg to every member except the player with id except.
func (r *Room) Broadcast(msg any, except string) {
	for _, p := range r.Players {
		if p.ID == except {
			continue
		}
		p.Send(msg)
	}
}

// Match returns the match for the pair (a, b), if one exists.
func (r *Room) Match(a, b string) (*Match, bool) {
	m, ok := r.Matches[MatchKey(a, b)]
	return m, ok
}

// MatchFor returns the match for the pair, creating it on first use.
func (r *Room) MatchFor(a, b *Player) *Match {
	key := MatchKey(a.ID, b.ID)
	if m, ok := r.Matches[key]; ok {
		return m
	}
	m := newMatch(a, b)
	r.Matches[key] = m
	return m
}

// EndMatch stops the match timer and drops it from the room.
func (r *Room) EndMatch(m *Match) {
	m.StopTimer()
	delete(r.Matches, m.Key)
}

// MatchesOf returns every match the player takes part in.
func (r *Room) MatchesOf(id string) []*Match {
	var out []*Match
	for _, m := range r.Matches {
		if m.Has(id) {
			out = append(out, m)
		}
	}
	return out
}
