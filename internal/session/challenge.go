package session

import (
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/lobby"
)

// roomOpponent resolves id to another member of p's room. Lookups that fail
// return nil and the caller drops the message.
func (c *Coordinator) roomOpponent(p *lobby.Player, id string) (*lobby.Room, *lobby.Player) {
	room, ok := c.reg.Room(p.RoomID)
	if !ok || id == "" || id == p.ID {
		return nil, nil
	}
	opp := room.Member(id)
	if opp == nil {
		return nil, nil
	}
	return room, opp
}

func (c *Coordinator) handleChallenge(p *lobby.Player, msg inbound) {
	_, opp := c.roomOpponent(p, msg.OpponentID)
	if opp == nil {
		return
	}
	opp.Send(opponentMsg{Type: OutChallengeReceived, OpponentID: p.ID, OpponentName: p.Name})
}

// handleAcceptChallenge confirms the pairing p ↔ challenger. No match exists
// until both secret codes arrive.
func (c *Coordinator) handleAcceptChallenge(p *lobby.Player, msg inbound) {
	room, challenger := c.roomOpponent(p, msg.OpponentID)
	if challenger == nil {
		return
	}
	p.OpponentID = challenger.ID
	challenger.OpponentID = p.ID
	s := room.Settings
	challenger.Send(opponentMsg{Type: OutChallengeAccepted, OpponentID: p.ID, OpponentName: p.Name, Settings: &s})
	p.Send(opponentMsg{Type: OutChallengeAccepted, OpponentID: challenger.ID, OpponentName: challenger.Name, Settings: &s})
	log.Info().Str("room", room.ID).Str("a", challenger.ID).Str("b", p.ID).Msg("challenge accepted")
}

func (c *Coordinator) handleRejectChallenge(p *lobby.Player, msg inbound) {
	_, challenger := c.roomOpponent(p, msg.OpponentID)
	if challenger == nil {
		return
	}
	challenger.Send(opponentMsg{Type: OutChallengeRejected, OpponentID: p.ID, OpponentName: p.Name})
	p.Send(opponentMsg{Type: OutChallengeCleared, OpponentID: challenger.ID})
}

func (c *Coordinator) handleRequestRematch(p *lobby.Player, _ inbound) {
	_, opp := c.roomOpponent(p, p.OpponentID)
	if opp == nil {
		return
	}
	opp.Send(opponentMsg{Type: OutRematchRequested, OpponentID: p.ID, OpponentName: p.Name})
}

// handleAcceptRematch drops the old match for the pair so the next
// set_secret_code starts a fresh one. Room settings are untouched.
func (c *Coordinator) handleAcceptRematch(p *lobby.Player, _ inbound) {
	room, opp := c.roomOpponent(p, p.OpponentID)
	if opp == nil {
		return
	}
	if m, ok := room.Match(p.ID, opp.ID); ok {
		room.EndMatch(m)
	}
	opp.OpponentID = p.ID
	opp.Send(opponentMsg{Type: OutRematchAccepted, OpponentID: p.ID, OpponentName: p.Name})
	p.Send(opponentMsg{Type: OutRematchAccepted, OpponentID: opp.ID, OpponentName: opp.Name})
}

// handleOpponentQuit ends the pair's match without a result and tells the
// opponent.
func (c *Coordinator) handleOpponentQuit(p *lobby.Player, _ inbound) {
	room, opp := c.roomOpponent(p, p.OpponentID)
	if opp == nil {
		return
	}
	if m, ok := room.Match(p.ID, opp.ID); ok {
		room.EndMatch(m)
	}
	opp.Send(opponentMsg{Type: OutOpponentQuit, OpponentID: p.ID, OpponentName: p.Name})
}
