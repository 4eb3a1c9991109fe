package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/robalobadob/codebreaker/apps/go-server/assets"
	"github.com/robalobadob/codebreaker/apps/go-server/internal/game"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// a single connection keeps every query on the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	migs, err := assets.Migrations()
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range migs {
		if _, err := db.Exec(m.SQL); err != nil {
			t.Fatalf("apply %s: %v", m.Name, err)
		}
	}
	return db
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	g, err := game.New(game.DefaultSettings(), []int{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, g); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, g.ID)
	if err != nil || got != g {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if err := s.Delete(ctx, g.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, g.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
}

func TestResultsRecordAndStats(t *testing.T) {
	ctx := context.Background()
	res := NewResults(openTestDB(t))
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	records := []MatchRecord{
		{ID: "m1", RoomID: "AAAAAA", PlayerA: Participant{Name: "alice", Attempts: 3}, PlayerB: Participant{Name: "bob", Attempts: 3},
			Winner: "alice", Reason: "solved", NumDigits: 4, StartedAt: base, FinishedAt: base.Add(time.Minute)},
		{ID: "m2", RoomID: "AAAAAA", PlayerA: Participant{Name: "alice", Attempts: 2}, PlayerB: Participant{Name: "bob", Attempts: 2},
			Tie: true, Reason: "solved", NumDigits: 4, StartedAt: base, FinishedAt: base.Add(2 * time.Minute)},
		{ID: "m3", RoomID: "BBBBBB", PlayerA: Participant{Name: "carol", Attempts: 4}, PlayerB: Participant{Name: "alice", Attempts: 999},
			Winner: "carol", Reason: "opponent_left", NumDigits: 5, StartedAt: base, FinishedAt: base.Add(3 * time.Minute)},
	}
	for _, r := range records {
		if err := res.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	// duplicate ids are ignored
	if err := res.Record(ctx, records[0]); err != nil {
		t.Fatal(err)
	}

	recent, err := res.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 || recent[0].ID != "m3" {
		t.Fatalf("Recent = %+v", recent)
	}
	if !recent[1].Tie || recent[0].PlayerB.Attempts != 999 || !recent[0].FinishedAt.Equal(base.Add(3*time.Minute)) {
		t.Errorf("round trip lost data: %+v", recent)
	}

	st, err := res.PlayerStats(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if st.Played != 3 || st.Wins != 1 || st.Ties != 1 || st.Losses != 1 {
		t.Errorf("alice stats = %+v", st)
	}
}
