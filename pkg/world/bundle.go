package world

import (
	"errors"

	"github.com/google/uuid"
)

// Bundle is the authored JSON form of a complete world: the world record
// plus its characters, settlements and businesses. Rules and grammars are
// authored as separate files.
type Bundle struct {
	World       *World        `json:"world"`
	Characters  []*Character  `json:"characters,omitempty"`
	Settlements []*Settlement `json:"settlements,omitempty"`
	Businesses  []*Business   `json:"businesses,omitempty"`
}

// Normalize fills in IDs and world references the authored file may omit.
// Entities that cross-reference each other (spouses, parents, employers)
// still need explicit IDs in the file.
func (b *Bundle) Normalize() error {
	if b.World == nil {
		return errors.New("bundle has no world")
	}
	if b.World.ID == uuid.Nil {
		b.World.ID = uuid.New()
	}

	for _, c := range b.Characters {
		if c == nil {
			return errors.New("bundle has a null character entry")
		}
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.WorldID == uuid.Nil {
			c.WorldID = b.World.ID
		}
	}
	for _, s := range b.Settlements {
		if s == nil {
			return errors.New("bundle has a null settlement entry")
		}
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if s.WorldID == uuid.Nil {
			s.WorldID = b.World.ID
		}
	}
	for _, biz := range b.Businesses {
		if biz == nil {
			return errors.New("bundle has a null business entry")
		}
		if biz.ID == uuid.Nil {
			biz.ID = uuid.New()
		}
		if biz.WorldID == uuid.Nil {
			biz.WorldID = b.World.ID
		}
	}
	return nil
}
