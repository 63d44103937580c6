package db

import (
	"context"

	"github.com/susu3304/bbbot/internal/registry"
)

func (db *DB) InsertAdmin(ctx context.Context, group, actor string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO bb_admins (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		group, actor,
	)
	return err
}

func (db *DB) InsertLocation(ctx context.Context, group, location string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO bb_locations (group_id, location) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		group, location,
	)
	return err
}

func (db *DB) InsertMember(ctx context.Context, group, actor, location string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO bb_members (group_id, user_id, location) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		group, actor, location,
	)
	return err
}

// LoadRegistry reads admins, approved locations and members. Super admins
// come from configuration and are not stored.
func (db *DB) LoadRegistry(ctx context.Context) (registry.Snapshot, error) {
	snap := registry.Snapshot{
		Admins:    make(map[string][]string),
		Locations: make(map[string][]string),
		Members:   make(map[string]map[string][]string),
	}

	rows, err := db.pool.Query(ctx, `SELECT group_id, user_id FROM bb_admins ORDER BY created_at, user_id`)
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var group, user string
		if err := rows.Scan(&group, &user); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Admins[group] = append(snap.Admins[group], user)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, err
	}

	rows, err = db.pool.Query(ctx, `SELECT group_id, location FROM bb_locations ORDER BY created_at, location`)
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var group, loc string
		if err := rows.Scan(&group, &loc); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Locations[group] = append(snap.Locations[group], loc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, err
	}

	rows, err = db.pool.Query(ctx, `SELECT group_id, user_id, location FROM bb_members ORDER BY id`)
	if err != nil {
		return snap, err
	}
	defer rows.Close()
	for rows.Next() {
		var group, user, loc string
		if err := rows.Scan(&group, &user, &loc); err != nil {
			return snap, err
		}
		if snap.Members[group] == nil {
			snap.Members[group] = make(map[string][]string)
		}
		snap.Members[group][loc] = append(snap.Members[group][loc], user)
	}
	return snap, rows.Err()
}
