// internal/session/coordinator.go
//
// Match coordination for multiplayer play.
// Responsibilities:
//   - Own the room/match registry (no package-level state).
//   - Serialize every state change through one event loop: inbound messages,
//     connects, disconnects, turn timeouts and snapshot reads.
//   - Route inbound messages by type to their handlers.
//
// Notes:
//   - Outbound sends go through lobby.Conn, which never blocks on the network.
//   - Timer callbacks do not touch state; they enqueue a timeout event that
//     carries the turn generation it was armed for.

package session

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/lobby"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/store"
)

const (
	DefaultTurnTimeout = 60 * time.Second

	// LeaverPenalty is the attempt count reported for a player who abandoned
	// a match, so they always rank as having taken more attempts.
	LeaverPenalty = 999

	recordTimeout = 5 * time.Second
)

// Recorder persists finished matches.
type Recorder interface {
	Record(ctx context.Context, r store.MatchRecord) error
}

// Options configures a Coordinator. Zero values select defaults.
type Options struct {
	TurnTimeout  time.Duration
	RoomCapacity int
	Scheduler    Scheduler
	Recorder     Recorder
	// Intn picks the first player; defaults to math/rand/v2.
	Intn func(n int) int
	Now  func() time.Time
}

// Snapshot is a point-in-time count of live state.
type Snapshot struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Players     int `json:"players"`
	Matches     int `json:"matches"`
	TurnTimers  int `json:"turnTimers"`
}

type connState struct {
	conn      lobby.Conn
	accountID string
}

// Coordinator is the single owner of rooms, players and matches.
type Coordinator struct {
	reg    *lobby.Registry
	conns  map[string]*connState
	events chan func()
	done   chan struct{}

	turnTimeout time.Duration
	sched       Scheduler
	recorder    Recorder
	intn        func(n int) int
	now         func() time.Time
}

// New constructs a Coordinator. Call Run to start processing events.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		reg:         lobby.NewRegistry(opts.RoomCapacity),
		conns:       make(map[string]*connState),
		events:      make(chan func(), 256),
		done:        make(chan struct{}),
		turnTimeout: opts.TurnTimeout,
		sched:       opts.Scheduler,
		recorder:    opts.Recorder,
		intn:        opts.Intn,
		now:         opts.Now,
	}
	if c.turnTimeout <= 0 {
		c.turnTimeout = DefaultTurnTimeout
	}
	if c.sched == nil {
		c.sched = clockScheduler{}
	}
	if c.intn == nil {
		c.intn = rand.IntN
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Registry exposes the underlying registry. Only safe to use from inside the
// event loop or before Run starts.
func (c *Coordinator) Registry() *lobby.Registry { return c.reg }

// Run processes events until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case ev := <-c.events:
			ev()
		case <-ctx.Done():
			return
		}
	}
}

// post enqueues f on the loop. It reports false once the loop has stopped.
func (c *Coordinator) post(f func()) bool {
	select {
	case c.events <- f:
		return true
	case <-c.done:
		return false
	}
}

// Connect registers a new connection and returns its opaque id.
// accountID is optional and comes from a verified account token.
func (c *Coordinator) Connect(conn lobby.Conn, accountID string) string {
	id := uuid.NewString()
	c.post(func() { c.conns[id] = &connState{conn: conn, accountID: accountID} })
	return id
}

// Deliver enqueues one raw inbound frame from connID.
func (c *Coordinator) Deliver(connID string, raw []byte) {
	c.post(func() { c.handle(connID, raw) })
}

// Disconnect treats a closed socket as an implicit leave_room.
func (c *Coordinator) Disconnect(connID string) {
	c.post(func() {
		if p, ok := c.reg.PlayerByConn(connID); ok {
			log.Info().Str("conn", connID).Str("player", p.ID).Msg("connection closed, leaving room")
			c.leave(p)
		}
		delete(c.conns, connID)
	})
}

// Snapshot reads live counts through the loop.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	ok := c.post(func() {
		rooms, players, matches, timers := c.reg.Counts()
		reply <- Snapshot{Connections: len(c.conns), Rooms: rooms, Players: players, Matches: matches, TurnTimers: timers}
	})
	if !ok {
		return Snapshot{}, context.Canceled
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

type handlerFunc func(c *Coordinator, connID string, msg inbound)

// playerHandlerFunc handles a message from a connection that already
// belongs to a room.
type playerHandlerFunc func(c *Coordinator, p *lobby.Player, msg inbound)

var handlers = map[string]handlerFunc{
	MsgCreateRoom:      (*Coordinator).handleCreateRoom,
	MsgJoinRoom:        (*Coordinator).handleJoinRoom,
	MsgChallenge:       withPlayer((*Coordinator).handleChallenge),
	MsgAcceptChallenge: withPlayer((*Coordinator).handleAcceptChallenge),
	MsgRejectChallenge: withPlayer((*Coordinator).handleRejectChallenge),
	MsgUpdateSettings:  withPlayer((*Coordinator).handleUpdateSettings),
	MsgSetSecretCode:   withPlayer((*Coordinator).handleSetSecretCode),
	MsgSubmitGuess:     withPlayer((*Coordinator).handleSubmitGuess),
	MsgLeaveRoom:       withPlayer((*Coordinator).handleLeaveRoom),
	MsgOpponentQuit:    withPlayer((*Coordinator).handleOpponentQuit),
	MsgRequestRematch:  withPlayer((*Coordinator).handleRequestRematch),
	MsgAcceptRematch:   withPlayer((*Coordinator).handleAcceptRematch),
}

func withPlayer(h playerHandlerFunc) handlerFunc {
	return func(c *Coordinator, connID string, msg inbound) {
		p, ok := c.reg.PlayerByConn(connID)
		if !ok {
			log.Debug().Str("conn", connID).Str("type", msg.Type).Msg("message from connection outside any room")
			return
		}
		h(c, p, msg)
	}
}

// handle decodes and dispatches one frame. Bad frames are logged and dropped;
// the connection stays open.
func (c *Coordinator) handle(connID string, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Warn().Err(err).Str("conn", connID).Msg("malformed message")
		return
	}
	h, ok := handlers[msg.Type]
	if !ok {
		log.Warn().Str("conn", connID).Str("type", msg.Type).Msg("unknown message type")
		return
	}
	log.Debug().Str("conn", connID).Str("type", msg.Type).Msg("inbound")
	h(c, connID, msg)
}

// record hands a finished match to the recorder without blocking the loop.
func (c *Coordinator) record(rec store.MatchRecord) {
	if c.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := c.recorder.Record(ctx, rec); err != nil {
			log.Warn().Err(err).Str("match", rec.ID).Msg("record match result")
		}
	}()
}
