// internal/lobby/registry.go
//
// Room registry: room id → room, player id → player, connection id → player.
//
// Characteristics:
//   - Not safe for concurrent use. The registry is owned by the session
//     coordinator's event loop, which is the only goroutine touching it.
//   - Rooms are deleted as soon as their last player leaves.
//   - Room ids are re-rolled on collision.

package lobby

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/google/uuid"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/game"
)

const (
	DefaultCapacity = 10
	roomIDLength    = 6
	roomIDAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	roomIDRetries   = 16
)

var (
	ErrRoomNotFound = errors.New("room not found or full")
	ErrRoomFull     = errors.New("room not found or full")
	ErrNoRoomID     = errors.New("could not allocate a room id")
)

// Registry tracks every live room and player.
type Registry struct {
	rooms    map[string]*Room
	players  map[string]*Player
	byConn   map[string]*Player
	capacity int
	newID    func() string
}

// NewRegistry constructs an empty registry. capacity <= 0 uses DefaultCapacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		players:  make(map[string]*Player),
		byConn:   make(map[string]*Player),
		capacity: capacity,
		newID:    NewRoomID,
	}
}

// SetRoomIDFunc overrides room id generation (tests use fixed ids).
func (r *Registry) SetRoomIDFunc(f func() string) { r.newID = f }

// NewRoomID returns a random 6-character upper-case base-36 id.
func NewRoomID() string {
	b := make([]byte, roomIDLength)
	max := big.NewInt(int64(len(roomIDAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			n = big.NewInt(0)
		}
		b[i] = roomIDAlphabet[n.Int64()]
	}
	return string(b)
}

// CreateRoom creates a room with the given settings and adds the creator as
// its sole player.
func (r *Registry) CreateRoom(name, connID string, conn Conn, s game.Settings) (*Room, *Player, error) {
	var id string
	for i := 0; i < roomIDRetries; i++ {
		candidate := r.newID()
		if _, taken := r.rooms[candidate]; !taken {
			id = candidate
			break
		}
	}
	if id == "" {
		return nil, nil, ErrNoRoomID
	}
	room := newRoom(id, s)
	r.rooms[id] = room
	p := r.addPlayer(room, name, connID, conn)
	return room, p, nil
}

// JoinRoom appends a new player to an existing room.
func (r *Registry) JoinRoom(roomID, name, connID string, conn Conn) (*Room, *Player, error) {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	if len(room.Players) >= r.capacity {
		return nil, nil, ErrRoomFull
	}
	p := r.addPlayer(room, name, connID, conn)
	return room, p, nil
}

func (r *Registry) addPlayer(room *Room, name, connID string, conn Conn) *Player {
	p := &Player{
		ID:     uuid.NewString(),
		Name:   name,
		ConnID: connID,
		RoomID: room.ID,
		Conn:   conn,
	}
	room.Players = append(room.Players, p)
	r.players[p.ID] = p
	if connID != "" {
		r.byConn[connID] = p
	}
	return p
}

// Remove drops the player from its room. The room is returned with
// emptied == true if it was deleted because nobody is left.
func (r *Registry) Remove(playerID string) (room *Room, emptied bool) {
	p, ok := r.players[playerID]
	if !ok {
		return nil, false
	}
	delete(r.players, playerID)
	if cur, ok := r.byConn[p.ConnID]; ok && cur == p {
		delete(r.byConn, p.ConnID)
	}
	room, ok = r.rooms[p.RoomID]
	if !ok {
		return nil, false
	}
	room.remove(playerID)
	if len(room.Players) == 0 {
		for _, m := range room.Matches {
			m.StopTimer()
		}
		delete(r.rooms, room.ID)
		return room, true
	}
	return room, false
}

// Room looks up a room by id.
func (r *Registry) Room(id string) (*Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

// PlayerByConn looks up the player bound to a connection.
func (r *Registry) PlayerByConn(connID string) (*Player, bool) {
	p, ok := r.byConn[connID]
	return p, ok
}

// Counts returns the number of rooms, players and matches, and how many of
// those matches have a turn timeout armed.
func (r *Registry) Counts() (rooms, players, matches, pending int) {
	for _, room := range r.rooms {
		matches += len(room.Matches)
		for _, m := range room.Matches {
			if m.Pending() {
				pending++
			}
		}
	}
	return len(r.rooms), len(r.players), matches, pending
}
