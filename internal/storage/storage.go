package storage

import (
	"fmt"
	"strings"
)

// Package storage owns the last observed state fingerprint of every tracked link.

// Store maps tracked links to their last observed fingerprint.
//
// Save for a given link is linearizable with Get/Save on the same link; the
// backend's serialization order decides which writer wins when two cycles
// race with different fingerprints. Different links never contend.
type Store interface {
	// Get returns the stored fingerprint, or ok=false if the link was never observed.
	Get(link string) (fingerprint string, ok bool, err error)
	// Save records fingerprint for link and returns the value it replaced.
	Save(link, fingerprint string) (previous string, existed bool, err error)
	// Delete drops the record for link. Deleting an unknown link is not an error.
	Delete(link string) error
	Close() error
}

const (
	TypeMemory = "memory"
	TypeBBolt  = "bbolt"
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", TypeMemory, "inmemory":
		return NewMemoryStore(), nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}
