package store

import (
	"context"
	"database/sql"

	"github.com/phamilton/collector-api/internal/domain"
)

// RecordStore defines the interface for captured address record persistence.
type RecordStore interface {
	// Exists reports whether a record with the given (address, telephone)
	// dedup key is already persisted.
	Exists(ctx context.Context, address, telephone string) (bool, error)

	// Save persists a new record and assigns its timestamps.
	// Returns ErrRecordExists if a record with the same dedup key is
	// already stored.
	Save(ctx context.Context, record *domain.AddressRecord) error

	// WithTx returns a new RecordStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) RecordStore
}
