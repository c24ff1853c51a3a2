package db

import (
	"github.com/chris/wingman/internal/profile"
)

const (
	selfTable = "self_profile"
	selfID    = "self"
)

// GetSelf returns the operator profile, creating it with defaults named
// defaultName on first access.
func (d *DB) GetSelf(defaultName string) (*profile.SelfProfile, error) {
	var s profile.SelfProfile
	found, err := d.loadDoc(d.conn, selfTable, selfID, false, &s)
	if err != nil {
		return nil, storageErr("get self", err)
	}
	if found {
		s.Normalize()
		return &s, nil
	}

	err = d.mutate(selfTable, selfID, &s, func(found bool) error {
		if !found {
			s = profile.NewSelf(defaultName)
		}
		s.Normalize()
		return nil
	})
	if err != nil {
		return nil, storageErr("create self", err)
	}
	return &s, nil
}

// UpdateSelf replaces the whole operator profile.
func (d *DB) UpdateSelf(s profile.SelfProfile) error {
	s.Normalize()
	return storageErr("update self", d.saveDoc(d.conn, selfTable, selfID, s))
}

// MergeSelfFacts folds extracted facts into the operator profile.
func (d *DB) MergeSelfFacts(facts profile.ExtractedFacts, defaultName string) (*profile.SelfProfile, error) {
	var s profile.SelfProfile
	err := d.mutate(selfTable, selfID, &s, func(found bool) error {
		if !found {
			s = profile.NewSelf(defaultName)
		}
		s.Normalize()
		s.Merge(facts)
		return nil
	})
	if err != nil {
		return nil, storageErr("merge self facts", err)
	}
	return &s, nil
}
