package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/lobby"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/store"
)

// fakeConn records every outbound frame as decoded JSON.
type fakeConn struct {
	mu   sync.Mutex
	msgs []map[string]any
}

func (f *fakeConn) Send(msg any) {
	raw, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	f.mu.Lock()
	f.msgs = append(f.msgs, m)
	f.mu.Unlock()
}

func (f *fakeConn) all(typ string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, m := range f.msgs {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeConn) last(typ string) map[string]any {
	all := f.all(typ)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

type fakeTimer struct {
	s       *fakeScheduler
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeScheduler never fires on its own; tests fire timers by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(_ time.Duration, f func()) lobby.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) armed() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

type fakeRecorder struct{ ch chan store.MatchRecord }

func (r *fakeRecorder) Record(_ context.Context, rec store.MatchRecord) error {
	r.ch <- rec
	return nil
}

type client struct {
	connID   string
	playerID string
	conn     *fakeConn
}

type harness struct {
	t     *testing.T
	c     *Coordinator
	sched *fakeScheduler
	rec   *fakeRecorder
}

// newHarness starts a coordinator whose first-turn pick always returns first.
func newHarness(t *testing.T, first int) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		sched: &fakeScheduler{},
		rec:   &fakeRecorder{ch: make(chan store.MatchRecord, 8)},
	}
	h.c = New(Options{
		Scheduler: h.sched,
		Recorder:  h.rec,
		Intn:      func(int) int { return first },
	})
	h.c.Registry().SetRoomIDFunc(func() string { return "AAAAAA" })
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.c.Run(ctx)
	return h
}

// sync waits until every previously posted event has been handled.
func (h *harness) sync() Snapshot {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := h.c.Snapshot(ctx)
	if err != nil {
		h.t.Fatalf("snapshot: %v", err)
	}
	return s
}

func (h *harness) connect() *client {
	conn := &fakeConn{}
	return &client{connID: h.c.Connect(conn, ""), conn: conn}
}

func (h *harness) send(cl *client, msg map[string]any) {
	h.t.Helper()
	raw, err := json.Marshal(msg)
	if err != nil {
		h.t.Fatal(err)
	}
	h.c.Deliver(cl.connID, raw)
	h.sync()
}

func (h *harness) fire(t *fakeTimer) {
	t.f()
	h.sync()
}

func (h *harness) waitRecord() store.MatchRecord {
	h.t.Helper()
	select {
	case rec := <-h.rec.ch:
		return rec
	case <-time.After(2 * time.Second):
		h.t.Fatal("no match record")
		return store.MatchRecord{}
	}
}

// pair creates room AAAAAA with Alice, has Bob join, and confirms a challenge.
func (h *harness) pair() (alice, bob *client) {
	h.t.Helper()
	alice, bob = h.connect(), h.connect()
	h.send(alice, map[string]any{"type": MsgCreateRoom, "playerName": "Alice"})
	created := alice.conn.last(OutRoomCreated)
	if created == nil || created["roomId"] != "AAAAAA" {
		h.t.Fatalf("room_created = %v", created)
	}
	alice.playerID = created["playerId"].(string)

	h.send(bob, map[string]any{"type": MsgJoinRoom, "playerName": "Bob", "roomId": "aaaaaa"})
	joined := bob.conn.last(OutRoomJoined)
	if joined == nil {
		h.t.Fatalf("bob did not join: %v", bob.conn.last(OutError))
	}
	bob.playerID = joined["playerId"].(string)

	h.send(alice, map[string]any{"type": MsgChallenge, "opponentId": bob.playerID})
	if bob.conn.last(OutChallengeReceived) == nil {
		h.t.Fatal("challenge not forwarded")
	}
	h.send(bob, map[string]any{"type": MsgAcceptChallenge, "opponentId": alice.playerID})
	if alice.conn.last(OutChallengeAccepted) == nil || bob.conn.last(OutChallengeAccepted) == nil {
		h.t.Fatal("challenge_accepted not sent to both")
	}
	return alice, bob
}

func (h *harness) setCodes(alice, bob *client, a, b []int) {
	h.send(alice, map[string]any{"type": MsgSetSecretCode, "opponentId": bob.playerID, "code": a})
	h.send(bob, map[string]any{"type": MsgSetSecretCode, "opponentId": alice.playerID, "code": b})
}

func (h *harness) guess(cl, opp *client, g []int) {
	h.send(cl, map[string]any{"type": MsgSubmitGuess, "opponentId": opp.playerID, "guess": g})
}

func num(v any) int {
	f, _ := v.(float64)
	return int(f)
}

func TestEndToEndTie(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob := h.pair()

	h.send(alice, map[string]any{"type": MsgSetSecretCode, "opponentId": bob.playerID, "code": []int{4, 1, 9, 2}})
	if st := bob.conn.last(OutOpponentStatus); st == nil || st["status"] != StatusCodeReady {
		t.Fatalf("bob not told alice's code is ready: %v", st)
	}
	h.send(bob, map[string]any{"type": MsgSetSecretCode, "opponentId": alice.playerID, "code": []int{7, 7, 7, 7}})

	gs := alice.conn.last(OutGameStarted)
	if gs == nil || gs["firstTurn"] != alice.playerID || gs["yourTurn"] != true {
		t.Fatalf("alice game_started = %v", gs)
	}
	if gs := bob.conn.last(OutGameStarted); gs == nil || gs["yourTurn"] != false {
		t.Fatalf("bob game_started = %v", gs)
	}
	if alice.conn.last(OutPlayersGaming) == nil {
		t.Error("players_gaming not broadcast")
	}
	if n := len(h.sched.armed()); n != 1 {
		t.Fatalf("armed timers = %d, want 1", n)
	}
	if s := h.sync(); s.Matches != 1 || s.TurnTimers != 1 {
		t.Fatalf("snapshot during match = %+v", s)
	}

	h.guess(alice, bob, []int{7, 7, 7, 7})
	gr := bob.conn.last(OutGuessResult)
	if gr == nil || num(gr["exactMatches"]) != 4 || gr["won"] != true || gr["nextTurn"] != bob.playerID {
		t.Fatalf("guess_result = %v", gr)
	}
	fw := alice.conn.last(OutFirstWinner)
	if fw == nil || num(fw["attempts"]) != 1 || num(fw["opponentTurnsLeft"]) != 1 {
		t.Fatalf("first_winner_pending = %v", fw)
	}
	if ow := bob.conn.last(OutOpponentWonFirst); ow == nil || num(ow["turnsLeft"]) != 1 {
		t.Fatalf("opponent_won_first = %v", ow)
	}

	h.guess(bob, alice, []int{4, 1, 9, 2})
	for _, cl := range []*client{alice, bob} {
		res := cl.conn.last(OutGameResult)
		if res == nil || res["result"] != ResultTie || num(res["yourAttempts"]) != 1 || num(res["opponentAttempts"]) != 1 {
			t.Fatalf("game_result = %v", res)
		}
	}
	if n := len(h.sched.armed()); n != 0 {
		t.Errorf("armed timers after resolve = %d, want 0", n)
	}
	if s := h.sync(); s.Matches != 0 || s.TurnTimers != 0 || s.Rooms != 1 || s.Players != 2 {
		t.Errorf("snapshot = %+v", s)
	}
	rec := h.waitRecord()
	if !rec.Tie || rec.RoomID != "AAAAAA" || rec.PlayerA.Name != "Alice" || rec.NumDigits != 4 {
		t.Errorf("record = %+v", rec)
	}
}

func TestFirstWinnerRace(t *testing.T) {
	miss := []int{0, 0, 0, 0}
	tests := []struct {
		name      string
		bobFinal  []int
		aliceWant string
		bobWant   string
	}{
		{"race solved on equal attempts ties", []int{4, 1, 9, 2}, ResultTie, ResultTie},
		{"race missed loses", miss, ResultWon, ResultLost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0)
			alice, bob := h.pair()
			h.setCodes(alice, bob, []int{4, 1, 9, 2}, []int{7, 7, 7, 7})

			h.guess(alice, bob, miss)
			h.guess(bob, alice, miss)
			h.guess(alice, bob, miss)
			h.guess(bob, alice, miss)
			h.guess(alice, bob, []int{7, 7, 7, 7})
			if fw := alice.conn.last(OutFirstWinner); fw == nil || num(fw["attempts"]) != 3 {
				t.Fatalf("first_winner_pending = %v", fw)
			}
			h.guess(bob, alice, tt.bobFinal)

			if r := alice.conn.last(OutGameResult); r == nil || r["result"] != tt.aliceWant {
				t.Errorf("alice result = %v, want %s", r, tt.aliceWant)
			}
			if r := bob.conn.last(OutGameResult); r == nil || r["result"] != tt.bobWant || num(r["yourAttempts"]) != 3 {
				t.Errorf("bob result = %v, want %s", r, tt.bobWant)
			}
		})
	}
}

func TestSecondMoverSolvingAfterEqualTurnsWinsOutright(t *testing.T) {
	// Bob moves second, so when he solves on attempt 1 Alice has already used hers.
	h := newHarness(t, 0)
	alice, bob := h.pair()
	h.setCodes(alice, bob, []int{4, 1, 9, 2}, []int{7, 7, 7, 7})

	h.guess(alice, bob, []int{0, 0, 0, 0})
	h.guess(bob, alice, []int{4, 1, 9, 2})

	if r := bob.conn.last(OutGameResult); r == nil || r["result"] != ResultWon {
		t.Fatalf("bob result = %v", r)
	}
	if r := alice.conn.last(OutGameResult); r == nil || r["result"] != ResultLost {
		t.Fatalf("alice result = %v", r)
	}
}

func TestTurnExclusivity(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob := h.pair()
	h.setCodes(alice, bob, []int{1, 2, 3, 4}, []int{5, 6, 7, 8})

	h.guess(bob, alice, []int{1, 2, 3, 4})
	if e := bob.conn.last(OutError); e == nil || e["message"] != "not your turn" {
		t.Fatalf("out-of-turn error = %v", e)
	}
	if bob.conn.last(OutGuessResult) != nil || alice.conn.last(OutGuessResult) != nil {
		t.Fatal("out-of-turn guess was processed")
	}

	h.guess(alice, bob, []int{1, 2})
	if alice.conn.last(OutError) == nil || alice.conn.last(OutGuessResult) != nil {
		t.Fatal("short guess was processed")
	}

	h.guess(alice, bob, []int{8, 7, 6, 5})
	gr := alice.conn.last(OutGuessResult)
	if gr == nil || num(gr["exactMatches"]) != 0 || num(gr["partialMatches"]) != 4 || gr["nextTurn"] != bob.playerID {
		t.Fatalf("guess_result = %v", gr)
	}
	if gr["opponentSecret"] != nil {
		t.Error("secret revealed before a solve")
	}
	if st := bob.conn.last(OutOpponentStatus); st == nil || st["status"] != StatusNotFinished {
		t.Errorf("opponent_status_update = %v", st)
	}
}

func TestTimeoutCountsAsAttempt(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob := h.pair()
	h.setCodes(alice, bob, []int{1, 2, 3, 4}, []int{5, 6, 7, 8})

	armed := h.sched.armed()
	if len(armed) != 1 {
		t.Fatalf("armed = %d", len(armed))
	}
	first := armed[0]
	h.fire(first)

	gr := bob.conn.last(OutGuessResult)
	if gr == nil || gr["timedOut"] != true || gr["playerId"] != alice.playerID || num(gr["attemptNumber"]) != 1 ||
		gr["nextTurn"] != bob.playerID {
		t.Fatalf("timeout guess_result = %v", gr)
	}

	// the old timer firing again must not advance the match
	h.fire(first)
	if n := len(bob.conn.all(OutGuessResult)); n != 1 {
		t.Fatalf("stale timeout produced %d results", n)
	}

	// Alice solves on attempt 2; Bob has 1 turn left and times out on it.
	h.guess(bob, alice, []int{0, 0, 0, 0})
	h.guess(alice, bob, []int{5, 6, 7, 8})
	if ow := bob.conn.last(OutOpponentWonFirst); ow == nil || num(ow["turnsLeft"]) != 1 {
		t.Fatalf("opponent_won_first = %v", ow)
	}
	armed = h.sched.armed()
	if len(armed) != 1 {
		t.Fatalf("armed = %d", len(armed))
	}
	h.fire(armed[0])
	if r := alice.conn.last(OutGameResult); r == nil || r["result"] != ResultWon {
		t.Fatalf("alice result = %v", r)
	}
	if r := bob.conn.last(OutGameResult); r == nil || r["result"] != ResultLost || num(r["yourAttempts"]) != 2 {
		t.Fatalf("bob result = %v", r)
	}
}

func TestMaxAttemptsTie(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob := h.pair()
	h.send(alice, map[string]any{"type": MsgUpdateSettings, "settings": map[string]any{"numDigits": 3, "maxAttempts": 5}})
	h.setCodes(alice, bob, []int{1, 2, 3}, []int{4, 5, 6})

	for i := 0; i < 5; i++ {
		h.guess(alice, bob, []int{0, 0, 0})
		h.guess(bob, alice, []int{0, 0, 0})
	}
	r := alice.conn.last(OutGameResult)
	if r == nil || r["result"] != ResultTie || r["reason"] != ReasonMaxAttempts {
		t.Fatalf("result = %v", r)
	}
}

func TestRematchIsolation(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob := h.pair()
	h.setCodes(alice, bob, []int{1, 2, 3, 4}, []int{5, 6, 7, 8})
	h.guess(alice, bob, []int{5, 6, 7, 8})
	h.guess(bob, alice, []int{0, 0, 0, 0})
	if alice.conn.last(OutGameResult) == nil {
		t.Fatal("first match did not resolve")
	}

	h.send(alice, map[string]any{"type": MsgRequestRematch})
	if bob.conn.last(OutRematchRequested) == nil {
		t.Fatal("rematch not requested")
	}
	h.send(bob, map[string]any{"type": MsgAcceptRematch})
	if alice.conn.last(OutRematchAccepted) == nil || bob.conn.last(OutRematchAccepted) == nil {
		t.Fatal("rematch_accepted not sent to both")
	}

	// no guesses before fresh codes
	h.guess(alice, bob, []int{5, 6, 7, 8})
	if e := alice.conn.last(OutError); e == nil || e["message"] != "match has not started" {
		t.Fatalf("guess before codes: %v", e)
	}

	h.setCodes(alice, bob, []int{9, 9, 9, 9}, []int{3, 3, 3, 3})
	h.guess(alice, bob, []int{5, 6, 7, 8})
	gr := alice.conn.last(OutGuessResult)
	if gr == nil || num(gr["attemptNumber"]) != 1 || num(gr["exactMatches"]) != 0 {
		t.Fatalf("rematch leaked state: %v", gr)
	}
}

func TestLeaveMidMatch(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob := h.pair()
	h.setCodes(alice, bob, []int{1, 2, 3, 4}, []int{5, 6, 7, 8})
	h.guess(alice, bob, []int{0, 0, 0, 0})

	h.c.Disconnect(alice.connID)
	s := h.sync()

	r := bob.conn.last(OutGameResult)
	if r == nil || r["result"] != ResultWon || r["reason"] != ReasonOpponentLeft || num(r["opponentAttempts"]) != LeaverPenalty {
		t.Fatalf("bob result = %v", r)
	}
	if alice.conn.last(OutGameResult) != nil {
		t.Error("leaver was sent a result")
	}
	if pu := bob.conn.last(OutPlayersUpdated); pu == nil || len(pu["players"].([]any)) != 1 {
		t.Errorf("players_updated = %v", pu)
	}
	if len(h.sched.armed()) != 0 {
		t.Error("timer still armed after leave")
	}
	if s.Connections != 1 || s.Players != 1 || s.Matches != 0 {
		t.Errorf("snapshot = %+v", s)
	}
	rec := h.waitRecord()
	if rec.Winner != "Bob" || rec.PlayerA.Attempts != LeaverPenalty {
		t.Errorf("record = %+v", rec)
	}
}

func TestRoomDeletedWhenEmpty(t *testing.T) {
	h := newHarness(t, 0)
	alice := h.connect()
	h.send(alice, map[string]any{"type": MsgCreateRoom, "playerName": "Alice"})
	h.send(alice, map[string]any{"type": MsgLeaveRoom})
	if s := h.sync(); s.Rooms != 0 {
		t.Fatalf("rooms = %d", s.Rooms)
	}

	bob := h.connect()
	h.send(bob, map[string]any{"type": MsgJoinRoom, "playerName": "Bob", "roomId": "AAAAAA"})
	if e := bob.conn.last(OutError); e == nil || e["message"] != "Room not found or full" {
		t.Fatalf("join deleted room: %v", e)
	}
}

func TestMalformedInputKeepsConnection(t *testing.T) {
	h := newHarness(t, 0)
	alice := h.connect()
	h.c.Deliver(alice.connID, []byte("{not json"))
	h.send(alice, map[string]any{"type": "no_such_type"})
	h.send(alice, map[string]any{"type": MsgSubmitGuess, "guess": []int{1}})
	h.send(alice, map[string]any{"type": MsgCreateRoom, "playerName": "Alice"})
	if alice.conn.last(OutRoomCreated) == nil {
		t.Fatal("connection unusable after bad frames")
	}
	h.send(alice, map[string]any{"type": MsgCreateRoom, "playerName": "   "})
	if alice.conn.last(OutError) == nil {
		t.Error("blank name accepted")
	}
}

func TestUpdateSettingsResetsMatches(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob := h.pair()
	h.setCodes(alice, bob, []int{1, 2, 3, 4}, []int{5, 6, 7, 8})
	armed := h.sched.armed()

	h.send(bob, map[string]any{"type": MsgUpdateSettings, "settings": map[string]any{"numDigits": 5, "maxAttempts": 10}})
	for _, cl := range []*client{alice, bob} {
		su := cl.conn.last(OutSettingsUpdated)
		if su == nil || num(su["settings"].(map[string]any)["numDigits"]) != 5 {
			t.Fatalf("settings_updated = %v", su)
		}
	}
	if len(h.sched.armed()) != 0 {
		t.Fatal("timer survived settings change")
	}
	// the reset turn's timer is stale now
	h.fire(armed[0])
	if alice.conn.last(OutGuessResult) != nil {
		t.Fatal("stale timeout processed after reset")
	}

	h.guess(alice, bob, []int{5, 6, 7, 8})
	if alice.conn.last(OutError) == nil {
		t.Fatal("guess accepted after reset")
	}

	h.send(alice, map[string]any{"type": MsgUpdateSettings, "settings": map[string]any{"numDigits": 11, "maxAttempts": 10}})
	if su := alice.conn.all(OutSettingsUpdated); len(su) != 1 {
		t.Error("invalid settings were applied")
	}

	h.setCodes(alice, bob, []int{1, 2, 3, 4, 5}, []int{5, 6, 7, 8, 9})
	if n := len(alice.conn.all(OutGameStarted)); n != 2 {
		t.Fatalf("game_started sent %d times, want 2", n)
	}
}

func TestSetSecretCodeRejections(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob := h.pair()

	h.send(alice, map[string]any{"type": MsgSetSecretCode, "opponentId": bob.playerID, "code": []int{1, 2, 3}})
	if alice.conn.last(OutError) == nil || bob.conn.last(OutOpponentStatus) != nil {
		t.Fatal("short code accepted")
	}

	h.setCodes(alice, bob, []int{1, 2, 3, 4}, []int{5, 6, 7, 8})
	h.send(alice, map[string]any{"type": MsgSetSecretCode, "opponentId": bob.playerID, "code": []int{0, 0, 0, 0}})
	if e := alice.conn.last(OutError); e == nil || e["message"] != "match already in progress" {
		t.Fatalf("code change mid-match: %v", e)
	}
	if n := len(alice.conn.all(OutGameStarted)); n != 1 {
		t.Errorf("game_started sent %d times", n)
	}
}

func TestOpponentQuitAndReject(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob := h.pair()

	h.send(bob, map[string]any{"type": MsgRejectChallenge, "opponentId": alice.playerID})
	if alice.conn.last(OutChallengeRejected) == nil || bob.conn.last(OutChallengeCleared) == nil {
		t.Fatal("reject notices missing")
	}

	h.send(alice, map[string]any{"type": MsgSetSecretCode, "opponentId": bob.playerID, "code": []int{1, 2, 3, 4}})
	h.send(alice, map[string]any{"type": MsgOpponentQuit})
	if q := bob.conn.last(OutOpponentQuit); q == nil || q["opponentId"] != alice.playerID {
		t.Fatalf("opponent_quit = %v", q)
	}
	if s := h.sync(); s.Matches != 0 {
		t.Errorf("matches = %d", s.Matches)
	}
}

func TestGuessAndTimeoutRace(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob := h.pair()
	h.setCodes(alice, bob, []int{1, 2, 3, 4}, []int{5, 6, 7, 8})
	pending := h.sched.armed()[0]

	// the guess is handled first; the timer's callback lands afterwards
	h.guess(alice, bob, []int{0, 0, 0, 0})
	h.fire(pending)

	results := bob.conn.all(OutGuessResult)
	if len(results) != 1 || results[0]["timedOut"] == true {
		t.Fatalf("guess_result frames = %v", results)
	}
	if n := len(h.sched.armed()); n != 1 {
		t.Errorf("armed timers = %d, want 1 (bob's turn)", n)
	}
	h.guess(bob, alice, []int{0, 0, 0, 0})
	if gr := alice.conn.last(OutGuessResult); gr == nil || gr["playerId"] != bob.playerID {
		t.Errorf("turn did not stay with bob: %v", gr)
	}
}
