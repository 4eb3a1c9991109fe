package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/game"
)

// soloNewReq/Res payloads for POST /solo/new. Zero settings fields take the
// defaults.
type soloNewReq struct {
	NumDigits   int   `json:"numDigits"`
	MaxAttempts int   `json:"maxAttempts"`
	Secret      []int `json:"secret"` // optional fixed code (testing)
}
type soloNewRes struct {
	GameID   string        `json:"gameId"`
	Settings game.Settings `json:"settings"`
}

// handleSoloNew creates a new in-memory solo game.
func (s *Server) handleSoloNew(w http.ResponseWriter, r *http.Request) {
	var req soloNewReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	st := game.DefaultSettings()
	if req.NumDigits != 0 {
		st.NumDigits = req.NumDigits
	}
	if req.MaxAttempts != 0 {
		st.MaxAttempts = req.MaxAttempts
	}
	g, err := game.New(st, req.Secret)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(soloNewRes{GameID: g.ID, Settings: g.Settings})
}

// soloGuessReq/Res payloads for POST /solo/guess.
type soloGuessReq struct {
	GameID string `json:"gameId"`
	Guess  []int  `json:"guess"`
}
type soloGuessRes struct {
	Attempt  game.Attempt `json:"attempt"`
	Attempts int          `json:"attempts"`
	State    string       `json:"state"`            // "playing" | "won" | "lost"
	Secret   []int        `json:"secret,omitempty"` // revealed once finished
}

// handleSoloGuess applies a guess to an in-memory solo game.
func (s *Server) handleSoloGuess(w http.ResponseWriter, r *http.Request) {
	var req soloGuessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	g, err := s.store.Get(r.Context(), req.GameID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	a, state, err := g.ApplyGuess(req.Guess)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, game.ErrFinished) {
			status = http.StatusConflict
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, status)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	res := soloGuessRes{Attempt: a, Attempts: len(g.Attempts), State: state}
	if g.Finished {
		res.Secret = g.Secret
	}
	_ = json.NewEncoder(w).Encode(res)
}
