package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
)

const stateBucket = "link_states"

// stateRecord is the persisted form of a link's state.
type stateRecord struct {
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// boltStore implements a Store backed by BoltDB. Writes run in bbolt's
// single-writer transactions, which gives every link a total save order.
type boltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (*boltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(stateBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db, now: time.Now}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Get reads the fingerprint stored for link.
func (b *boltStore) Get(link string) (string, bool, error) {
	if b == nil || b.db == nil {
		return "", false, fmt.Errorf("bbolt store is not initialized")
	}

	var (
		rec stateRecord
		ok  bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket missing")
		}
		var err error
		rec, ok, err = decodeRecord(bucket.Get([]byte(link)))
		return err
	})
	if err != nil {
		return "", false, err
	}
	return rec.Fingerprint, ok, nil
}

// Save writes fingerprint for link and returns the replaced value. Saving the
// fingerprint already on record leaves the stored record untouched.
func (b *boltStore) Save(link, fingerprint string) (string, bool, error) {
	if b == nil || b.db == nil {
		return "", false, fmt.Errorf("bbolt store is not initialized")
	}

	var (
		prev    stateRecord
		existed bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket missing")
		}

		key := []byte(link)
		var err error
		prev, existed, err = decodeRecord(bucket.Get(key))
		if err != nil {
			return err
		}
		if existed && prev.Fingerprint == fingerprint {
			return nil
		}

		raw, err := json.Marshal(stateRecord{Fingerprint: fingerprint, UpdatedAt: b.now().UTC()})
		if err != nil {
			return fmt.Errorf("encode state record: %w", err)
		}
		return bucket.Put(key, raw)
	})
	if err != nil {
		return "", false, err
	}
	return prev.Fingerprint, existed, nil
}

// Delete removes the record for link.
func (b *boltStore) Delete(link string) error {
	if b == nil || b.db == nil {
		return fmt.Errorf("bbolt store is not initialized")
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket missing")
		}
		return bucket.Delete([]byte(link))
	})
}

// decodeRecord decodes a stored value; a nil value means no record.
func decodeRecord(value []byte) (stateRecord, bool, error) {
	if value == nil {
		return stateRecord{}, false, nil
	}
	var rec stateRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return stateRecord{}, false, fmt.Errorf("decode state record: %w", err)
	}
	return rec, true, nil
}
