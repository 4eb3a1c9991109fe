package session

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/game"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/lobby"
)

const maxNameLength = 32

func cleanName(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxNameLength {
		s = string(r[:maxNameLength])
	}
	return s
}

func (c *Coordinator) handleCreateRoom(connID string, msg inbound) {
	cs, ok := c.conns[connID]
	if !ok {
		return
	}
	name := cleanName(msg.PlayerName)
	if name == "" {
		cs.conn.Send(errorOut("player name is required"))
		return
	}
	// a player belongs to exactly one room
	if p, ok := c.reg.PlayerByConn(connID); ok {
		c.leave(p)
	}

	room, p, err := c.reg.CreateRoom(name, connID, cs.conn, game.DefaultSettings())
	if err != nil {
		log.Error().Err(err).Msg("create room")
		cs.conn.Send(errorOut("could not create room"))
		return
	}
	p.AccountID = cs.accountID
	log.Info().Str("room", room.ID).Str("player", p.ID).Msg("room created")

	p.Send(roomMsg{
		Type:     OutRoomCreated,
		RoomID:   room.ID,
		PlayerID: p.ID,
		Players:  room.Summaries(),
		Settings: room.Settings,
	})
}

func (c *Coordinator) handleJoinRoom(connID string, msg inbound) {
	cs, ok := c.conns[connID]
	if !ok {
		return
	}
	name := cleanName(msg.PlayerName)
	if name == "" {
		cs.conn.Send(errorOut("player name is required"))
		return
	}
	roomID := strings.ToUpper(strings.TrimSpace(msg.RoomID))
	if p, ok := c.reg.PlayerByConn(connID); ok {
		if p.RoomID == roomID {
			return
		}
		c.leave(p)
	}

	room, p, err := c.reg.JoinRoom(roomID, name, connID, cs.conn)
	if err != nil {
		if errors.Is(err, lobby.ErrRoomNotFound) || errors.Is(err, lobby.ErrRoomFull) {
			cs.conn.Send(errorOut("Room not found or full"))
			return
		}
		log.Error().Err(err).Str("room", roomID).Msg("join room")
		cs.conn.Send(errorOut("could not join room"))
		return
	}
	p.AccountID = cs.accountID
	log.Info().Str("room", room.ID).Str("player", p.ID).Int("size", len(room.Players)).Msg("player joined")

	players := room.Summaries()
	p.Send(roomMsg{
		Type:     OutRoomJoined,
		RoomID:   room.ID,
		PlayerID: p.ID,
		Players:  players,
		Settings: room.Settings,
	})
	room.Broadcast(playersUpdatedMsg{Type: OutPlayersUpdated, Players: players}, p.ID)
}

func (c *Coordinator) handleLeaveRoom(p *lobby.Player, _ inbound) {
	c.leave(p)
}

// leave removes p from its room. Every active match p is part of resolves
// as a win for the opponent; matches still collecting codes are dropped.
func (c *Coordinator) leave(p *lobby.Player) {
	room, ok := c.reg.Room(p.RoomID)
	if ok {
		for _, m := range room.MatchesOf(p.ID) {
			opp := m.Opponent(p.ID)
			if m.Active() {
				c.resolve(room, m, resolution{
					winnerID:  opp.ID,
					reason:    ReasonOpponentLeft,
					penalized: p.ID,
				})
				continue
			}
			room.EndMatch(m)
			opp.Send(opponentMsg{Type: OutOpponentQuit, OpponentID: p.ID, OpponentName: p.Name})
		}
	}

	room, emptied := c.reg.Remove(p.ID)
	if room == nil {
		return
	}
	if emptied {
		log.Info().Str("room", room.ID).Msg("room deleted (empty)")
		return
	}
	log.Info().Str("room", room.ID).Str("player", p.ID).Msg("player left")
	room.Broadcast(playersUpdatedMsg{Type: OutPlayersUpdated, Players: room.Summaries()}, "")
}

// handleUpdateSettings replaces the room settings. Every match in the room
// goes back to code collection, since the digit count may have changed.
func (c *Coordinator) handleUpdateSettings(p *lobby.Player, msg inbound) {
	room, ok := c.reg.Room(p.RoomID)
	if !ok {
		return
	}
	if msg.Settings == nil {
		p.Send(errorOut("settings are required"))
		return
	}
	s := *msg.Settings
	if err := s.Validate(); err != nil {
		p.Send(errorOut(err.Error()))
		return
	}
	room.Settings = s
	for _, m := range room.Matches {
		m.Reset()
	}
	log.Info().Str("room", room.ID).Int("numDigits", s.NumDigits).Int("maxAttempts", s.MaxAttempts).Msg("settings updated")
	room.Broadcast(settingsUpdatedMsg{Type: OutSettingsUpdated, Settings: s}, "")
}
