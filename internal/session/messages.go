// internal/session/messages.go
//
// Wire format for the /game channel.
//
// Every frame is a flat JSON object `{"type": "...", ...fields}`. Inbound
// frames are decoded into a single `inbound` struct (unused fields stay
// zero); outbound frames are one struct per message type.

package session

import (
	"github.com/robalobadob/codebreaker/apps/go-server/internal/game"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/lobby"
)

// Inbound message types.
const (
	MsgCreateRoom      = "create_room"
	MsgJoinRoom        = "join_room"
	MsgChallenge       = "challenge_player"
	MsgAcceptChallenge = "accept_challenge"
	MsgRejectChallenge = "reject_challenge"
	MsgUpdateSettings  = "update_settings"
	MsgSetSecretCode   = "set_secret_code"
	MsgSubmitGuess     = "submit_guess"
	MsgLeaveRoom       = "leave_room"
	MsgOpponentQuit    = "opponent_quit"
	MsgRequestRematch  = "request_rematch"
	MsgAcceptRematch   = "accept_rematch"
)

// Outbound message types.
const (
	OutRoomCreated       = "room_created"
	OutRoomJoined        = "room_joined"
	OutPlayersUpdated    = "players_updated"
	OutSettingsUpdated   = "settings_updated"
	OutChallengeReceived = "challenge_received"
	OutChallengeAccepted = "challenge_accepted"
	OutChallengeRejected = "challenge_rejected"
	OutChallengeCleared  = "challenge_cleared"
	OutGameStarted       = "game_started"
	OutPlayersGaming     = "players_gaming"
	OutGuessResult       = "guess_result"
	OutFirstWinner       = "first_winner_pending"
	OutOpponentWonFirst  = "opponent_won_first"
	OutOpponentStatus    = "opponent_status_update"
	OutGameResult        = "game_result"
	OutRematchRequested  = "rematch_requested"
	OutRematchAccepted   = "rematch_accepted"
	OutOpponentQuit      = "opponent_quit"
	OutError             = "error"
)

// Results carried by game_result.
const (
	ResultWon  = "won"
	ResultLost = "lost"
	ResultTie  = "tie"
)

// Reasons carried by game_result.
const (
	ReasonSolved       = "solved"
	ReasonMaxAttempts  = "max_attempts"
	ReasonOpponentLeft = "opponent_left"
)

// Opponent status values.
const (
	StatusNotFinished = "not_finished"
	StatusCodeReady   = "secret_code_set"
)

type inbound struct {
	Type       string         `json:"type"`
	PlayerName string         `json:"playerName"`
	RoomID     string         `json:"roomId"`
	OpponentID string         `json:"opponentId"`
	Settings   *game.Settings `json:"settings"`
	Code       []int          `json:"code"`
	Guess      []int          `json:"guess"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errorOut(message string) errorMsg { return errorMsg{Type: OutError, Message: message} }

type roomMsg struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId"`
	PlayerID string          `json:"playerId"`
	Players  []lobby.Summary `json:"players"`
	Settings game.Settings   `json:"settings"`
}

type playersUpdatedMsg struct {
	Type    string          `json:"type"`
	Players []lobby.Summary `json:"players"`
}

type settingsUpdatedMsg struct {
	Type     string        `json:"type"`
	Settings game.Settings `json:"settings"`
}

// opponentMsg covers the challenge and rematch notices, which only name the
// other party.
type opponentMsg struct {
	Type         string         `json:"type"`
	OpponentID   string         `json:"opponentId"`
	OpponentName string         `json:"opponentName,omitempty"`
	Settings     *game.Settings `json:"settings,omitempty"`
}

type gameStartedMsg struct {
	Type          string        `json:"type"`
	MatchID       string        `json:"matchId"`
	OpponentID    string        `json:"opponentId"`
	OpponentName  string        `json:"opponentName"`
	FirstTurn     string        `json:"firstTurn"`
	YourTurn      bool          `json:"yourTurn"`
	Settings      game.Settings `json:"settings"`
	TurnTimeoutMs int64         `json:"turnTimeoutMs"`
}

type playersGamingMsg struct {
	Type      string   `json:"type"`
	PlayerIDs []string `json:"playerIds"`
	Names     []string `json:"names"`
}

type guessResultMsg struct {
	Type           string `json:"type"`
	PlayerID       string `json:"playerId"`
	Guess          []int  `json:"guess"`
	ExactMatches   int    `json:"exactMatches"`
	PartialMatches int    `json:"partialMatches"`
	Won            bool   `json:"won"`
	TimedOut       bool   `json:"timedOut"`
	AttemptNumber  int    `json:"attemptNumber"`
	NextTurn       string `json:"nextTurn"`
	OpponentSecret []int  `json:"opponentSecret,omitempty"`
}

type firstWinnerMsg struct {
	Type              string `json:"type"`
	Attempts          int    `json:"attempts"`
	OpponentTurnsLeft int    `json:"opponentTurnsLeft"`
}

type opponentWonFirstMsg struct {
	Type             string `json:"type"`
	OpponentAttempts int    `json:"opponentAttempts"`
	TurnsLeft        int    `json:"turnsLeft"`
}

type opponentStatusMsg struct {
	Type             string `json:"type"`
	PlayerID         string `json:"playerId"`
	Status           string `json:"status"`
	OpponentAttempts int    `json:"opponentAttempts"`
	NextTurn         string `json:"nextTurn,omitempty"`
}

type gameResultMsg struct {
	Type             string `json:"type"`
	Result           string `json:"result"`
	Reason           string `json:"reason"`
	OpponentSecret   []int  `json:"opponentSecret"`
	YourAttempts     int    `json:"yourAttempts"`
	OpponentAttempts int    `json:"opponentAttempts"`
}
