package db

import (
	"fmt"
	"time"

	"github.com/chris/wingman/internal/profile"
)

type Stats struct {
	TotalProfiles int `json:"total_profiles"`
	TotalMessages int `json:"total_messages"`
}

// Activity is one profile's most recent exchange.
type Activity struct {
	ID          string          `json:"user_id"`
	Name        string          `json:"name"`
	Messages    int             `json:"messages"`
	LastMessage profile.Message `json:"last_message"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// GetStats counts profiles and stored history entries.
func (d *DB) GetStats() (Stats, error) {
	profiles, err := d.ListProfiles()
	if err != nil {
		return Stats{}, err
	}
	s := Stats{TotalProfiles: len(profiles)}
	for _, p := range profiles {
		s.TotalMessages += len(p.PreviousMessages)
	}
	return s, nil
}

// RecentActivity returns the most recently written profiles first.
func (d *DB) RecentActivity(limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.conn.Query(d.rebind("SELECT id, data, updated_at FROM profiles ORDER BY updated_at DESC LIMIT ?"), limit)
	if err != nil {
		return nil, storageErr("recent activity", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var id, raw, updatedAt string
		if err := rows.Scan(&id, &raw, &updatedAt); err != nil {
			return nil, storageErr("recent activity", fmt.Errorf("scanning profile: %w", err))
		}
		p, err := decodeProfile(id, raw)
		if err != nil {
			return nil, storageErr("recent activity", err)
		}
		a := Activity{ID: id, Name: p.Name, Messages: len(p.PreviousMessages)}
		if n := len(p.PreviousMessages); n > 0 {
			a.LastMessage = p.PreviousMessages[n-1]
		}
		a.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("recent activity", err)
	}
	return out, nil
}
