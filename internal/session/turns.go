// internal/session/turns.go
//
// Match setup, turn/timeout coordination and outcome resolution.
//
// A match has two states: awaiting a guess from CurrentTurn, and resolved
// (deleted from the room). Entering a turn always stops the previous timer
// and arms a new one; the timer's generation guards against stale fires.

package session

import (
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/code"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/game"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/lobby"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/store"
)

func (c *Coordinator) handleSetSecretCode(p *lobby.Player, msg inbound) {
	room, opp := c.roomOpponent(p, msg.OpponentID)
	if opp == nil {
		return
	}
	if err := code.Validate(msg.Code, room.Settings.NumDigits); err != nil {
		p.Send(errorOut(err.Error()))
		return
	}
	m := room.MatchFor(p, opp)
	if m.Active() {
		p.Send(errorOut("match already in progress"))
		return
	}
	m.SecretCodes[p.ID] = append([]int(nil), msg.Code...)
	p.OpponentID = opp.ID

	if !m.Active() {
		opp.Send(opponentStatusMsg{Type: OutOpponentStatus, PlayerID: p.ID, Status: StatusCodeReady})
		return
	}
	c.startMatch(room, m)
}

// startMatch picks the first player at random, tells both players and the
// room, and arms the first turn.
func (c *Coordinator) startMatch(room *lobby.Room, m *lobby.Match) {
	first := m.A
	if c.intn(2) == 1 {
		first = m.B
	}
	m.StartedAt = c.now()
	m.Attempts[m.A.ID] = nil
	m.Attempts[m.B.ID] = nil

	for _, pl := range []*lobby.Player{m.A, m.B} {
		opp := m.Opponent(pl.ID)
		pl.Send(gameStartedMsg{
			Type:          OutGameStarted,
			MatchID:       m.ID,
			OpponentID:    opp.ID,
			OpponentName:  opp.Name,
			FirstTurn:     first.ID,
			YourTurn:      first.ID == pl.ID,
			Settings:      room.Settings,
			TurnTimeoutMs: c.turnTimeout.Milliseconds(),
		})
	}
	room.Broadcast(playersGamingMsg{
		Type:      OutPlayersGaming,
		PlayerIDs: []string{m.A.ID, m.B.ID},
		Names:     []string{m.A.Name, m.B.Name},
	}, "")
	log.Info().Str("room", room.ID).Str("match", m.ID).Str("first", first.ID).Msg("match started")

	c.passTurn(room, m, first.ID)
}

// passTurn hands the turn to id and arms a fresh timeout for it.
func (c *Coordinator) passTurn(room *lobby.Room, m *lobby.Match, id string) {
	m.CurrentTurn = id
	m.TurnStartedAt = c.now()
	m.TurnGen++
	roomID, key, gen := room.ID, m.Key, m.TurnGen
	m.Arm(c.sched.AfterFunc(c.turnTimeout, func() {
		c.post(func() { c.onTimeout(roomID, key, gen) })
	}))
}

func (c *Coordinator) handleSubmitGuess(p *lobby.Player, msg inbound) {
	room, opp := c.roomOpponent(p, msg.OpponentID)
	if opp == nil {
		return
	}
	m, ok := room.Match(p.ID, opp.ID)
	if !ok || !m.Active() {
		p.Send(errorOut("match has not started"))
		return
	}
	if m.CurrentTurn != p.ID {
		p.Send(errorOut("not your turn"))
		return
	}
	if err := code.Validate(msg.Guess, room.Settings.NumDigits); err != nil {
		p.Send(errorOut(err.Error()))
		return
	}
	m.StopTimer()

	r := code.Score(m.SecretCodes[opp.ID], msg.Guess)
	c.applyAttempt(room, m, p, game.Attempt{
		Guess:          append([]int(nil), msg.Guess...),
		ExactMatches:   r.Exact,
		PartialMatches: r.Partial,
	})
}

// onTimeout runs on the loop when a turn timer fires. Fires for a match that
// is gone, reset, or already past that turn are ignored.
func (c *Coordinator) onTimeout(roomID, key string, gen uint64) {
	room, ok := c.reg.Room(roomID)
	if !ok {
		return
	}
	m, ok := room.Matches[key]
	if !ok || !m.Active() || m.TurnGen != gen {
		log.Debug().Str("room", roomID).Str("match", key).Msg("stale turn timeout ignored")
		return
	}
	m.StopTimer()
	p := m.Player(m.CurrentTurn)
	log.Info().Str("room", roomID).Str("match", m.ID).Str("player", p.ID).Msg("turn timed out")
	c.applyAttempt(room, m, p, game.Attempt{Guess: []int{}, TimedOut: true})
}

// applyAttempt records a for p, reports it to both players and applies the
// outcome rules. Timed-out turns take the same path as a missed guess.
func (c *Coordinator) applyAttempt(room *lobby.Room, m *lobby.Match, p *lobby.Player, a game.Attempt) {
	o := m.Opponent(p.ID)
	m.Record(p.ID, a)
	won := a.ExactMatches == room.Settings.NumDigits

	next := o.ID
	if m.FirstWinnerID != "" && m.FirstWinnerID != p.ID && !won &&
		game.CompareOutcome(m.FirstWinnerAttempts, m.Count(p.ID), false) == game.Pending {
		next = p.ID
	}

	res := guessResultMsg{
		Type:           OutGuessResult,
		PlayerID:       p.ID,
		Guess:          a.Guess,
		ExactMatches:   a.ExactMatches,
		PartialMatches: a.PartialMatches,
		Won:            won,
		TimedOut:       a.TimedOut,
		AttemptNumber:  m.Count(p.ID),
		NextTurn:       next,
	}
	toP, toO := res, res
	if won {
		toP.OpponentSecret = m.SecretCodes[o.ID]
		toO.OpponentSecret = m.SecretCodes[p.ID]
	}
	p.Send(toP)
	o.Send(toO)

	c.decide(room, m, p, o, won)
}

// decide applies, in order:
//
//	a. first full solve: p becomes the first winner, o gets to race
//	b. o solves after the first winner: tie on equal attempts
//	c. o misses after the first winner: loses once out of turns
//	d. nobody solved yet: plain turn pass
func (c *Coordinator) decide(room *lobby.Room, m *lobby.Match, p, o *lobby.Player, won bool) {
	switch {
	case won && m.FirstWinnerID == "":
		m.FirstWinnerID = p.ID
		m.FirstWinnerAttempts = m.Count(p.ID)
		turnsLeft := m.FirstWinnerAttempts - m.Count(o.ID)
		if turnsLeft <= 0 {
			c.resolve(room, m, resolution{winnerID: p.ID, reason: ReasonSolved})
			return
		}
		p.Send(firstWinnerMsg{Type: OutFirstWinner, Attempts: m.FirstWinnerAttempts, OpponentTurnsLeft: turnsLeft})
		o.Send(opponentWonFirstMsg{Type: OutOpponentWonFirst, OpponentAttempts: m.FirstWinnerAttempts, TurnsLeft: turnsLeft})
		c.passTurn(room, m, o.ID)

	case m.FirstWinnerID != "" && m.FirstWinnerID != p.ID:
		switch game.CompareOutcome(m.FirstWinnerAttempts, m.Count(p.ID), won) {
		case game.Tie:
			c.resolve(room, m, resolution{tie: true, reason: ReasonSolved})
		case game.FirstWinnerWins:
			c.resolve(room, m, resolution{winnerID: m.FirstWinnerID, reason: ReasonSolved})
		case game.ChallengerWins:
			c.resolve(room, m, resolution{winnerID: p.ID, reason: ReasonSolved})
		case game.Pending:
			// the racer still has turns left; the first winner is done guessing
			c.passTurn(room, m, p.ID)
		}

	default:
		limit := room.Settings.MaxAttempts
		if m.Count(p.ID) >= limit && m.Count(o.ID) >= limit {
			c.resolve(room, m, resolution{tie: true, reason: ReasonMaxAttempts})
			return
		}
		for _, pl := range []*lobby.Player{p, o} {
			pl.Send(opponentStatusMsg{
				Type:             OutOpponentStatus,
				PlayerID:         p.ID,
				Status:           StatusNotFinished,
				OpponentAttempts: m.Count(m.Opponent(pl.ID).ID),
				NextTurn:         o.ID,
			})
		}
		c.passTurn(room, m, o.ID)
	}
}

type resolution struct {
	winnerID  string
	tie       bool
	reason    string
	penalized string // player who left; reported with LeaverPenalty attempts
}

// resolve ends the match: timer cancelled, match removed, both players told
// the result, and the record handed to the recorder.
func (c *Coordinator) resolve(room *lobby.Room, m *lobby.Match, res resolution) {
	room.EndMatch(m)

	attempts := func(id string) int {
		if id == res.penalized {
			return LeaverPenalty
		}
		return m.Count(id)
	}
	for _, pl := range []*lobby.Player{m.A, m.B} {
		if pl.ID == res.penalized {
			continue
		}
		opp := m.Opponent(pl.ID)
		result := ResultLost
		switch {
		case res.tie:
			result = ResultTie
		case pl.ID == res.winnerID:
			result = ResultWon
		}
		pl.Send(gameResultMsg{
			Type:             OutGameResult,
			Result:           result,
			Reason:           res.reason,
			OpponentSecret:   m.SecretCodes[opp.ID],
			YourAttempts:     attempts(pl.ID),
			OpponentAttempts: attempts(opp.ID),
		})
	}

	rec := store.MatchRecord{
		ID:         m.ID,
		RoomID:     room.ID,
		PlayerA:    store.Participant{Name: m.A.Name, AccountID: m.A.AccountID, Attempts: attempts(m.A.ID)},
		PlayerB:    store.Participant{Name: m.B.Name, AccountID: m.B.AccountID, Attempts: attempts(m.B.ID)},
		Tie:        res.tie,
		Reason:     res.reason,
		NumDigits:  room.Settings.NumDigits,
		StartedAt:  m.StartedAt,
		FinishedAt: c.now(),
	}
	if !res.tie {
		rec.Winner = m.Player(res.winnerID).Name
	}
	log.Info().Str("room", room.ID).Str("match", m.ID).Str("winner", rec.Winner).Bool("tie", res.tie).
		Str("reason", res.reason).Msg("match resolved")
	c.record(rec)
}
