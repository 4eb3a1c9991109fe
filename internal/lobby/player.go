// internal/lobby/player.go
//
// Player records and the outbound connection handle.
//
// A Player is keyed by an opaque uuid assigned on create/join and is bound to
// the connection id handed out by the transport at accept time. The raw
// connection lives only inside the record, for sending.

package lobby

// Conn is the fire-and-forget outbound side of a player's connection.
// Send must never block the caller on network I/O.
type Conn interface {
	Send(msg any)
}

// Player is a member of exactly one room.
type Player struct {
	ID         string
	Name       string
	ConnID     string
	RoomID     string
	AccountID  string // optional, from a verified account token
	OpponentID string // last confirmed opponent; used by rematch/quit
	Conn       Conn
}

// Send forwards msg to the player's connection, if any.
func (p *Player) Send(msg any) {
	if p == nil || p.Conn == nil {
		return
	}
	p.Conn.Send(msg)
}

// Summary is the public view of a player in room listings.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p *Player) Summary() Summary { return Summary{ID: p.ID, Name: p.Name} }
