// internal/httpserver/ws.go
//
// Websocket transport for the multiplayer channel.
//
// Each connection runs a read pump (frames → coordinator) and a write pump
// (buffered outbound queue → socket, plus keepalive pings). The coordinator
// only ever calls Send, which enqueues and never blocks; a client whose
// queue overflows is disconnected.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.cfg.ClientOrigin == "*" || origin == s.cfg.ClientOrigin
		},
	}
}

// handleGame upgrades to a websocket and hands the connection to the coordinator.
func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	var accountID string
	if me := userFrom(r.Context()); me != nil {
		accountID = me.ID
	}

	c := newWSClient(ws)
	c.id = s.coord.Connect(c, accountID)
	log.Info().Str("conn", c.id).Str("remote", r.RemoteAddr).Msg("websocket connected")

	go c.writePump()
	c.readPump(s.coord)
}

// wsClient implements lobby.Conn over a gorilla websocket.
type wsClient struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSClient(ws *websocket.Conn) *wsClient {
	return &wsClient{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send marshals msg and queues it. Called from the coordinator loop.
func (c *wsClient) Send(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("conn", c.id).Msg("marshal outbound")
		return
	}
	select {
	case <-c.done:
	case c.send <- b:
	default:
		log.Warn().Str("conn", c.id).Msg("send buffer full, closing connection")
		// Closing the socket unblocks a writePump stuck on a slow peer.
		c.stop()
		_ = c.ws.Close()
	}
}

// stop signals both pumps to exit. It never touches the network.
func (c *wsClient) stop() {
	c.once.Do(func() { close(c.done) })
}

// readPump forwards frames to the coordinator until the socket fails.
// Closing the socket is an implicit leave_room.
func (c *wsClient) readPump(coord *session.Coordinator) {
	defer func() {
		c.stop()
		coord.Disconnect(c.id)
		log.Info().Str("conn", c.id).Msg("websocket closed")
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn", c.id).Msg("websocket read")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		coord.Deliver(c.id, data)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			// best effort; fails at once if the socket is already closed
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Str("conn", c.id).Msg("websocket write")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
