package db

import (
	"fmt"
	"strings"

	"github.com/chris/wingman/internal/profile"
)

const profilesTable = "profiles"

// GetProfile loads one counterpart profile.
func (d *DB) GetProfile(id string) (*profile.Profile, error) {
	var p profile.Profile
	found, err := d.loadDoc(d.conn, profilesTable, id, false, &p)
	if err != nil {
		return nil, storageErr("get profile", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	p.ID = id
	p.Normalize()
	return &p, nil
}

// ListProfiles returns every counterpart profile ordered by id.
func (d *DB) ListProfiles() ([]profile.Profile, error) {
	rows, err := d.conn.Query("SELECT id, data FROM profiles ORDER BY id ASC")
	if err != nil {
		return nil, storageErr("list profiles", err)
	}
	defer rows.Close()

	var out []profile.Profile
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, storageErr("list profiles", fmt.Errorf("scanning profile: %w", err))
		}
		p, err := decodeProfile(id, raw)
		if err != nil {
			return nil, storageErr("list profiles", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list profiles", err)
	}
	return out, nil
}

// UpsertProfile replaces the whole record stored under p.ID.
func (d *DB) UpsertProfile(p profile.Profile) error {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return storageErr("upsert profile", fmt.Errorf("profile id is required"))
	}
	if id == profile.SelfAlias {
		return ErrProtectedRecord
	}
	p.ID = id
	p.Normalize()
	return storageErr("upsert profile", d.saveDoc(d.conn, profilesTable, id, p))
}

// DeleteProfile removes a counterpart profile. The self alias is refused.
func (d *DB) DeleteProfile(id string) error {
	if id == profile.SelfAlias {
		return ErrProtectedRecord
	}
	res, err := d.conn.Exec(d.rebind("DELETE FROM profiles WHERE id = ?"), id)
	if err != nil {
		return storageErr("delete profile", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage adds m to the history of profile id, creating a default
// profile named name when none exists yet, and returns the updated record.
func (d *DB) AppendMessage(id string, m profile.Message, name string) (*profile.Profile, error) {
	if id == profile.SelfAlias {
		return nil, ErrProtectedRecord
	}
	var p profile.Profile
	err := d.mutate(profilesTable, id, &p, func(found bool) error {
		if !found {
			p = profile.New(id, name)
		}
		p.ID = id
		p.Normalize()
		p.AppendMessage(m)
		return nil
	})
	if err != nil {
		return nil, storageErr("append message", err)
	}
	return &p, nil
}

// MergeFacts folds extracted facts into an existing profile.
func (d *DB) MergeFacts(id string, facts profile.ExtractedFacts) (*profile.Profile, error) {
	var p profile.Profile
	err := d.mutate(profilesTable, id, &p, func(found bool) error {
		if !found {
			return ErrNotFound
		}
		p.ID = id
		p.Normalize()
		p.Merge(facts)
		return nil
	})
	if err != nil {
		return nil, storageErr("merge facts", err)
	}
	return &p, nil
}

func decodeProfile(id, raw string) (profile.Profile, error) {
	var p profile.Profile
	if err := unmarshalDoc(raw, &p); err != nil {
		return p, fmt.Errorf("decoding profile %q: %w", id, err)
	}
	p.ID = id
	p.Normalize()
	return p, nil
}
