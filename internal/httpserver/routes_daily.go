// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Code" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start a daily game (creates or reuses session)
//   - POST /daily/guess       → submit a guess for today's code
//   - GET  /daily/leaderboard → fetch top 20 results for today (or a given date)
//
// Each user can play once per day (enforced by DB + in-memory session).
// Sessions are held in memory for active play and persisted to DB on a solve.
// The code is derived from date + salt, so every player gets the same one.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/code"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/daily"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	now      func() time.Time
	sessions map[string]*dailySession // active sessions keyed by userID|date
	mu       sync.Mutex               // guards sessions
}

// dailySession holds transient in-memory state for an in-progress daily game.
type dailySession struct {
	GameID   string
	UserID   string
	Date     string
	Secret   []int
	Start    time.Time
	Guesses  int
	Finished bool
}

func newDailyServer(s *Server, st *daily.Store) *dailyServer {
	return &dailyServer{
		srv:      s,
		store:    st,
		salt:     s.cfg.DailySalt,
		now:      time.Now,
		sessions: make(map[string]*dailySession),
	}
}

// mount registers all /daily routes.
func (d *dailyServer) mount(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", d.handleNew)
		r.Post("/guess", d.handleGuess)
		r.Get("/leaderboard", d.handleLeaderboard)
	})
}

// today returns today's date key and code.
func (d *dailyServer) today() (date string, secret []int) {
	now := d.now().UTC()
	return daily.DateKey(now), daily.CodeFor(now, d.salt, daily.DefaultDigits)
}

// -----------------------------------------------------------------------------
// /daily/new

// newRes is returned by /daily/new.
type newRes struct {
	GameID    string `json:"gameId"`
	Date      string `json:"date"`
	NumDigits int    `json:"numDigits"`
	Played    bool   `json:"played"`
}

// handleNew creates or reuses a daily session for the current date.
// - If user already has a DB row for today → return Played=true.
// - Otherwise create/reuse an in-memory session and return GameID.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid := d.srv.playerID(w, r)
	date, secret := d.today()

	played, err := d.store.AlreadyPlayed(r.Context(), uid, date)
	if err != nil {
		log.Warn().Err(err).Str("user", uid).Msg("daily already played")
	}
	if played {
		_ = json.NewEncoder(w).Encode(newRes{Date: date, NumDigits: len(secret), Played: true})
		return
	}

	key := uid + "|" + date
	d.mu.Lock()
	sess, ok := d.sessions[key]
	if !ok {
		sess = &dailySession{
			GameID: uuid.NewString(),
			UserID: uid,
			Date:   date,
			Secret: secret,
			Start:  d.now(),
		}
		d.sessions[key] = sess
	}
	d.mu.Unlock()

	_ = json.NewEncoder(w).Encode(newRes{GameID: sess.GameID, Date: date, NumDigits: len(secret)})
}

// -----------------------------------------------------------------------------
// /daily/guess

// dailyGuessReq is the request payload for /daily/guess.
type dailyGuessReq struct {
	GameID string `json:"gameId"`
	Guess  []int  `json:"guess"`
}

// dailyGuessRes is the response payload for /daily/guess.
type dailyGuessRes struct {
	ExactMatches   int    `json:"exactMatches"`
	PartialMatches int    `json:"partialMatches"`
	State          string `json:"state"` // in_progress | won | locked
	Guesses        int    `json:"guesses"`
}

// handleGuess validates and scores a guess for today's session, persisting
// the result on a solve.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	uid := d.srv.playerID(w, r)

	var p dailyGuessReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	date, secret := d.today()
	if p.GameID == "" {
		http.Error(w, `{"error":"invalid"}`, http.StatusBadRequest)
		return
	}
	if err := code.Validate(p.Guess, len(secret)); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	key := uid + "|" + date
	d.mu.Lock()
	sess, ok := d.sessions[key]
	if !ok || sess.GameID != p.GameID {
		d.mu.Unlock()
		http.Error(w, `{"error":"no session"}`, http.StatusConflict)
		return
	}
	if sess.Finished {
		guesses := sess.Guesses
		d.mu.Unlock()
		_ = json.NewEncoder(w).Encode(dailyGuessRes{State: "locked", Guesses: guesses})
		return
	}
	res := code.Score(sess.Secret, p.Guess)
	sess.Guesses++
	won := res.Solved(len(sess.Secret))
	sess.Finished = won
	guesses := sess.Guesses
	elapsed := int(d.now().Sub(sess.Start).Milliseconds())
	d.mu.Unlock()

	state := "in_progress"
	if won {
		state = "won"
		if err := d.store.InsertResult(r.Context(), daily.Result{
			UserID: uid, Date: date, NumDigits: len(secret), Guesses: guesses, ElapsedMs: elapsed,
		}); err != nil {
			log.Error().Err(err).Str("user", uid).Msg("insert daily result")
		}
	}
	_ = json.NewEncoder(w).Encode(dailyGuessRes{
		ExactMatches:   res.Exact,
		PartialMatches: res.Partial,
		State:          state,
		Guesses:        guesses,
	})
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _ = d.today()
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		http.Error(w, `{"error":"server error"}`, http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []daily.LBRow{}
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
