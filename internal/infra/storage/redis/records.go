package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/gabapcia/txtracker/internal/pkg/logger"
	"github.com/gabapcia/txtracker/internal/txstore"
	"github.com/gabapcia/txtracker/internal/txtracker"
)

// recordsKey is the Redis hash holding every record, keyed by record id.
const recordsKey = "txtracker:records"

// SaveRecord upserts the JSON encoding of record into the records hash.
func (c *client) SaveRecord(ctx context.Context, record txstore.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.ID, err)
	}

	return c.conn.HSet(ctx, recordsKey, record.ID, data).Err()
}

// LoadRecords returns every stored record. Entries that cannot be decoded
// are logged and skipped.
func (c *client) LoadRecords(ctx context.Context) ([]txstore.Record, error) {
	entries, err := c.conn.HGetAll(ctx, recordsKey).Result()
	if err != nil {
		return nil, err
	}

	return decodeRecords(ctx, entries), nil
}

// decodeRecords parses hash entries into records ordered by id.
func decodeRecords(ctx context.Context, entries map[string]string) []txstore.Record {
	records := make([]txstore.Record, 0, len(entries))
	for id, data := range entries {
		var r txstore.Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			logger.Warn(ctx, "skipping undecodable transaction record", "tx.id", id, "error", err)
			continue
		}

		if r.ID == "" {
			r.ID = id
		}
		records = append(records, r)
	}

	slices.SortFunc(records, func(a, b txstore.Record) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return records
}

// Ensure the client satisfies the RecordStorage interface at compile time.
var _ txtracker.RecordStorage = (*client)(nil)
