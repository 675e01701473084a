// Package bolt persists transaction tracker records in a local bbolt file,
// for single node deployments without Redis.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/gabapcia/txtracker/internal/pkg/logger"
	"github.com/gabapcia/txtracker/internal/txstore"
	"github.com/gabapcia/txtracker/internal/txtracker"
)

// recordsBucket holds every record, keyed by record id.
var recordsBucket = []byte("records")

// openTimeout bounds how long Open waits for the file lock.
const openTimeout = time.Second

type client struct {
	db *bolt.DB
}

// Open opens (creating when needed) the database file at path.
func Open(path string) (*client, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &client{db: db}, nil
}

func (c *client) Close() error {
	return c.db.Close()
}

// SaveRecord upserts the JSON encoding of record.
func (c *client) SaveRecord(_ context.Context, record txstore.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.ID, err)
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte(record.ID), data)
	})
}

// LoadRecords returns every stored record ordered by id. Entries that cannot
// be decoded are logged and skipped.
func (c *client) LoadRecords(ctx context.Context) ([]txstore.Record, error) {
	var records []txstore.Record

	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			var r txstore.Record
			if err := json.Unmarshal(v, &r); err != nil {
				logger.Warn(ctx, "skipping undecodable transaction record", "tx.id", string(k), "error", err)
				return nil
			}

			if r.ID == "" {
				r.ID = string(k)
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Ensure the client satisfies the RecordStorage interface at compile time.
var _ txtracker.RecordStorage = (*client)(nil)
