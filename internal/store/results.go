// internal/store/results.go
//
// SQL-backed history of finished multiplayer matches.
// Rows are written once when a match resolves and never updated.

package store

import (
	"context"
	"database/sql"
	"time"
)

// Participant is one side of a finished match.
type Participant struct {
	Name      string `json:"name"`
	AccountID string `json:"accountId,omitempty"`
	Attempts  int    `json:"attempts"`
}

// MatchRecord is a finished match as stored in match_results.
type MatchRecord struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"roomId"`
	PlayerA    Participant `json:"playerA"`
	PlayerB    Participant `json:"playerB"`
	Winner     string      `json:"winner,omitempty"` // winner's name; empty on a tie
	Tie        bool        `json:"tie"`
	Reason     string      `json:"reason"`
	NumDigits  int         `json:"numDigits"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
}

// PlayerStats aggregates a player's results by display name.
type PlayerStats struct {
	Name   string `json:"name"`
	Played int    `json:"played"`
	Wins   int    `json:"wins"`
	Ties   int    `json:"ties"`
	Losses int    `json:"losses"`
}

// Results reads and writes match_results.
type Results struct{ db *sql.DB }

func NewResults(db *sql.DB) *Results { return &Results{db: db} }

// Record inserts a finished match. Re-recording the same ID is ignored.
func (s *Results) Record(ctx context.Context, r MatchRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO match_results
            (id, room_id, player_a, account_a, attempts_a, player_b, account_b, attempts_b,
             winner, tie, reason, num_digits, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RoomID,
		r.PlayerA.Name, r.PlayerA.AccountID, r.PlayerA.Attempts,
		r.PlayerB.Name, r.PlayerB.AccountID, r.PlayerB.Attempts,
		r.Winner, r.Tie, r.Reason, r.NumDigits,
		r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// Recent returns the latest finished matches, newest first.
// limit <= 0 defaults to 20.
func (s *Results) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, room_id, player_a, account_a, attempts_a, player_b, account_b, attempts_b,
               winner, tie, reason, num_digits, started_at, finished_at
        FROM match_results
        ORDER BY finished_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MatchRecord, 0, limit)
	for rows.Next() {
		var r MatchRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &r.RoomID,
			&r.PlayerA.Name, &r.PlayerA.AccountID, &r.PlayerA.Attempts,
			&r.PlayerB.Name, &r.PlayerB.AccountID, &r.PlayerB.Attempts,
			&r.Winner, &r.Tie, &r.Reason, &r.NumDigits, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PlayerStats counts played/won/tied/lost matches for a display name.
func (s *Results) PlayerStats(ctx context.Context, name string) (PlayerStats, error) {
	st := PlayerStats{Name: name}
	err := s.db.QueryRowContext(ctx, `
        SELECT COUNT(1),
               COALESCE(SUM(CASE WHEN tie = 0 AND winner = ? THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN tie = 1 THEN 1 ELSE 0 END), 0)
        FROM match_results
        WHERE player_a = ? OR player_b = ?`, name, name, name,
	).Scan(&st.Played, &st.Wins, &st.Ties)
	if err != nil {
		return st, err
	}
	st.Losses = st.Played - st.Wins - st.Ties
	return st, nil
}
