package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phamilton/collector-api/internal/domain"
	"github.com/phamilton/collector-api/internal/platform/logger"
	"github.com/phamilton/collector-api/internal/store"
)

// PostgresRecordStore implements the store.RecordStore interface
// using a PostgreSQL database as the storage backend.
type PostgresRecordStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRecordStore creates a new PostgreSQL implementation of the RecordStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresRecordStore(db store.DBTX, logger *slog.Logger) *PostgresRecordStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRecordStore{
		db:     db,
		logger: logger.With(slog.String("component", "record_store")),
	}
}

// Ensure PostgresRecordStore implements store.RecordStore interface
var _ store.RecordStore = (*PostgresRecordStore)(nil)

// Exists implements store.RecordStore.Exists
// The lookup uses the same (address, telephone) pair the unique index covers.
func (s *PostgresRecordStore) Exists(ctx context.Context, address, telephone string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM address_records
			WHERE address = $1 AND telephone = $2
		)
	`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, address, telephone).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check record existence: %w", MapError(err))
	}
	return exists, nil
}

// Save implements store.RecordStore.Save
// Timestamps are assigned here as an explicit step of the save operation.
// The unique index on (address, telephone) backs the dedup guarantee even
// if two saves race; the violation maps to store.ErrRecordExists.
func (s *PostgresRecordStore) Save(ctx context.Context, record *domain.AddressRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("record validation failed during save",
			slog.String("error", err.Error()),
			slog.String("record_id", record.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO address_records (id, address, telephone, city, zip_code,
			state, state_full, country, source_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := s.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.Address,
		record.Telephone,
		record.City,
		record.ZipCode,
		record.State,
		record.StateFull,
		record.Country,
		record.SourceURL,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrRecordExists
		}
		log.Error("failed to save record",
			slog.String("error", err.Error()),
			slog.String("record_id", record.ID.String()))
		return MapError(err)
	}

	log.Debug("record saved",
		slog.String("record_id", record.ID.String()),
		slog.String("city", record.City))
	return nil
}

// WithTx implements store.RecordStore.WithTx
func (s *PostgresRecordStore) WithTx(tx *sql.Tx) store.RecordStore {
	return &PostgresRecordStore{
		db:     tx,
		logger: s.logger,
	}
}
