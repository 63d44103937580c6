package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/susu3304/bbbot/internal/game"
)

// SaveSession upserts the session of snap.Group.
func (db *DB) SaveSession(ctx context.Context, snap game.Snapshot) error {
	players, err := json.Marshal(nonNil(snap.Players))
	if err != nil {
		return err
	}
	waitlist, err := json.Marshal(nonNil(snap.Waitlist))
	if err != nil {
		return err
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO bb_sessions (group_id, location, day, time, capacity, min_members, created_by, label, players, waitlist, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP)
		 ON CONFLICT (group_id) DO UPDATE
		 SET location = EXCLUDED.location,
			 day = EXCLUDED.day,
			 time = EXCLUDED.time,
			 capacity = EXCLUDED.capacity,
			 min_members = EXCLUDED.min_members,
			 created_by = EXCLUDED.created_by,
			 label = EXCLUDED.label,
			 players = EXCLUDED.players,
			 waitlist = EXCLUDED.waitlist,
			 updated_at = CURRENT_TIMESTAMP`,
		snap.Group, snap.Location, snap.Day, snap.Time, snap.Capacity, snap.MinMembers, snap.CreatedBy, snap.Label, players, waitlist,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", snap.Group, err)
	}
	return nil
}

func (db *DB) DeleteSession(ctx context.Context, group string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM bb_sessions WHERE group_id = $1`, group)
	return err
}

// LoadSessions returns every persisted session.
func (db *DB) LoadSessions(ctx context.Context) ([]game.Snapshot, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT group_id, location, day, time, capacity, min_members, created_by, label, players, waitlist
		 FROM bb_sessions
		 ORDER BY group_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Snapshot
	for rows.Next() {
		var s game.Snapshot
		var players, waitlist []byte
		if err := rows.Scan(&s.Group, &s.Location, &s.Day, &s.Time, &s.Capacity, &s.MinMembers, &s.CreatedBy, &s.Label, &players, &waitlist); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(players, &s.Players); err != nil {
			return nil, fmt.Errorf("session %s: bad players: %w", s.Group, err)
		}
		if err := json.Unmarshal(waitlist, &s.Waitlist); err != nil {
			return nil, fmt.Errorf("session %s: bad waitlist: %w", s.Group, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nonNil(entries []game.Entry) []game.Entry {
	if entries == nil {
		return []game.Entry{}
	}
	return entries
}
