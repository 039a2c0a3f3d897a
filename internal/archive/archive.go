// Package archive keeps an append-only history of stage runs in a bbolt
// file, so that repeated or aborted attempts stay auditable after the stage
// records on disk have been overwritten.
package archive

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/lox/beaconmixer/beacon"
)

var runsBucket = []byte("runs")

// Entry summarises one stage run.
type Entry struct {
	Seq         uint64        `json:"seq"`
	RunID       string        `json:"runId"`
	Stage       string        `json:"stage"`
	BlockHash   string        `json:"blockHash"`
	BlockNumber uint64        `json:"blockNumber"`
	Counts      beacon.Counts `json:"counts"`
	Record      string        `json:"record"`
	Digest      string        `json:"digest"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Archive is a bbolt-backed run history.
type Archive struct {
	db *bolt.DB
}

// Open opens or creates the archive file at path.
func Open(path string) (*Archive, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("cannot open archive: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) (err error) {
		_, err = tx.CreateBucketIfNotExists(runsBucket)
		return
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create bucket: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Append stores e under the next sequence number and returns it.
func (a *Archive) Append(e Entry) (uint64, error) {
	err := a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(runsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		e.Seq = seq

		value, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), value)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to archive run: %w", err)
	}
	return e.Seq, nil
}

// List returns archived runs in insertion order, optionally filtered by
// stage label.
func (a *Archive) List(stage string) ([]Entry, error) {
	var entries []Entry
	err := a.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if stage == "" || e.Stage == stage {
				entries = append(entries, e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return entries, nil
}

// Latest returns the most recent run of stage, or nil when there is none.
func (a *Archive) Latest(stage string) (*Entry, error) {
	var found *Entry
	err := a.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.Stage == stage {
				found = &e
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return found, nil
}

// big-endian keys keep bbolt's byte ordering equal to insertion order
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
