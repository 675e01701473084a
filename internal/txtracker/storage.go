package txtracker

import (
	"context"

	"github.com/gabapcia/txtracker/internal/txstore"
)

// RecordStorage persists transaction records so they survive restarts.
// Every store write is mirrored through SaveRecord.
type RecordStorage interface {
	// SaveRecord upserts a record by id.
	SaveRecord(ctx context.Context, record txstore.Record) error

	// LoadRecords returns every persisted record.
	LoadRecords(ctx context.Context) ([]txstore.Record, error)
}

type nopRecordStorage struct{}

func (nopRecordStorage) SaveRecord(context.Context, txstore.Record) error {
	return nil
}

func (nopRecordStorage) LoadRecords(context.Context) ([]txstore.Record, error) {
	return nil, nil
}
