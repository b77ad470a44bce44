// Package repository provides data persistence implementations for records and their sync state.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/herbaltrace/ledgersync/internal/database"
	apperrors "github.com/herbaltrace/ledgersync/internal/errors"
	"github.com/herbaltrace/ledgersync/internal/record/domain"
)

// recoveredNote is recorded as last error on records swept back from an abandoned submission.
const recoveredNote = "recovered: submission abandoned by a previous process"

const selectColumns = `id, payload, sync_state, ledger_tx_id, last_error, failure_class,
	attempt_count, next_eligible_at, created_at, updated_at`

// RecordRepository persists records in one table per kind. Every state transition is a
// single conditional UPDATE so concurrent workers never observe a half-applied change.
type RecordRepository struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLiteRecordRepository creates a RecordRepository for SQLite.
func NewSQLiteRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db, dialect: sqliteDialect}
}

// NewPostgreSQLRecordRepository creates a RecordRepository for PostgreSQL.
func NewPostgreSQLRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db, dialect: postgresDialect}
}

// NewMySQLRecordRepository creates a RecordRepository for MySQL.
func NewMySQLRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db, dialect: mysqlDialect}
}

// NewRecordRepository selects the repository implementation for a database driver name.
func NewRecordRepository(db *sql.DB, driver string) (*RecordRepository, error) {
	switch driver {
	case database.DriverSQLite:
		return NewSQLiteRecordRepository(db), nil
	case database.DriverPostgres:
		return NewPostgreSQLRecordRepository(db), nil
	case database.DriverMySQL:
		return NewMySQLRecordRepository(db), nil
	}
	return nil, fmt.Errorf("unsupported database driver: %s", driver)
}

// Insert stores a new record. Returns ErrDuplicateID if the id already exists.
func (r *RecordRepository) Insert(ctx context.Context, record *domain.Record) error {
	table, err := tableFor(record.Kind)
	if err != nil {
		return err
	}
	payload, err := domain.EncodePayload(record.Payload)
	if err != nil {
		return err
	}
	id, err := r.dialect.encodeID(record.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record id")
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, payload, sync_state, ledger_tx_id, last_error, failure_class,
		attempt_count, next_eligible_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)

	querier := database.GetTx(ctx, r.db)
	_, err = querier.ExecContext(ctx, r.dialect.bind(query),
		id,
		string(payload),
		record.SyncState,
		record.LedgerTxID,
		record.LastError,
		record.FailureClass,
		record.AttemptCount,
		dbTime(record.NextEligibleAt),
		dbTime(record.CreatedAt),
		dbTime(record.UpdatedAt),
	)
	if err != nil {
		if r.dialect.isDuplicate(err) {
			return apperrors.Wrapf(domain.ErrDuplicateID, "%s %s", record.Kind, record.ID)
		}
		return apperrors.Wrap(err, "failed to insert record")
	}
	return nil
}

// Get returns a record by kind and id. Returns ErrRecordNotFound if it does not exist.
func (r *RecordRepository) Get(ctx context.Context, kind domain.Kind, id uuid.UUID) (*domain.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	dbID, err := r.dialect.encodeID(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal record id")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, selectColumns, table)

	querier := database.GetTx(ctx, r.db)
	record, err := r.scanRecord(kind, querier.QueryRowContext(ctx, r.dialect.bind(query), dbID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

// Find looks a record up by id across every kind.
func (r *RecordRepository) Find(ctx context.Context, id uuid.UUID) (*domain.Record, error) {
	for _, kind := range domain.Kinds {
		record, err := r.Get(ctx, kind, id)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrRecordNotFound
}

// Exists reports whether a record of kind with id is stored.
func (r *RecordRepository) Exists(ctx context.Context, kind domain.Kind, id uuid.UUID) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	dbID, err := r.dialect.encodeID(id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal record id")
	}

	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, table)

	var one int
	querier := database.GetTx(ctx, r.db)
	err = querier.QueryRowContext(ctx, r.dialect.bind(query), dbID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check record existence")
	}
	return true, nil
}

// SelectDue returns records eligible for dispatch: pending or retryable failed, past their
// backoff deadline and below the attempt ceiling, oldest first. Submitting records are
// never returned.
func (r *RecordRepository) SelectDue(
	ctx context.Context,
	kind domain.Kind,
	now time.Time,
	maxAttempts, limit int,
) ([]*domain.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE sync_state IN (?, ?)
		  AND next_eligible_at <= ?
		  AND attempt_count < ?
		  AND failure_class <> ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, selectColumns, table)

	return r.queryRecords(ctx, kind, query,
		domain.SyncStatePending,
		domain.SyncStateFailed,
		dbTime(now),
		maxAttempts,
		domain.FailureClassTerminal,
		limit,
	)
}

// MarkSubmitting claims a record for dispatch with a compare-and-swap update. It returns
// false when the record is no longer eligible, typically because another worker claimed it.
func (r *RecordRepository) MarkSubmitting(
	ctx context.Context,
	kind domain.Kind,
	id uuid.UUID,
	now time.Time,
	maxAttempts int,
) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	dbID, err := r.dialect.encodeID(id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal record id")
	}

	query := fmt.Sprintf(`UPDATE %s SET sync_state = ?, updated_at = ?
		WHERE id = ?
		  AND sync_state IN (?, ?)
		  AND next_eligible_at <= ?
		  AND attempt_count < ?
		  AND failure_class <> ?`, table)

	affected, err := r.exec(ctx, query,
		domain.SyncStateSubmitting,
		dbTime(now),
		dbID,
		domain.SyncStatePending,
		domain.SyncStateFailed,
		dbTime(now),
		maxAttempts,
		domain.FailureClassTerminal,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim record")
	}
	return affected == 1, nil
}

// MarkSynced moves a submitting record to synced and records the ledger transaction id.
// The id is written at most once.
func (r *RecordRepository) MarkSynced(
	ctx context.Context,
	kind domain.Kind,
	id uuid.UUID,
	ledgerTxID string,
	now time.Time,
) error {
	if ledgerTxID == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "ledger transaction id is required")
	}
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	dbID, err := r.dialect.encodeID(id)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record id")
	}

	query := fmt.Sprintf(`UPDATE %s
		SET sync_state = ?, ledger_tx_id = ?, last_error = NULL, failure_class = ?, updated_at = ?
		WHERE id = ? AND sync_state = ? AND ledger_tx_id IS NULL`, table)

	affected, err := r.exec(ctx, query,
		domain.SyncStateSynced,
		ledgerTxID,
		domain.FailureClassNone,
		dbTime(now),
		dbID,
		domain.SyncStateSubmitting,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark record synced")
	}
	if affected == 0 {
		return r.transitionError(ctx, kind, id, domain.SyncStateSynced)
	}
	return nil
}

// MarkFailed moves a submitting record to failed. Retryable failures consume one attempt;
// terminal failures leave the attempt count unchanged and exclude the record from SelectDue.
func (r *RecordRepository) MarkFailed(
	ctx context.Context,
	kind domain.Kind,
	id uuid.UUID,
	failure domain.Failure,
	now time.Time,
) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	dbID, err := r.dialect.encodeID(id)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record id")
	}

	class, increment := domain.FailureClassTransient, 1
	if failure.Terminal {
		class, increment = domain.FailureClassTerminal, 0
	}

	query := fmt.Sprintf(`UPDATE %s
		SET sync_state = ?, last_error = ?, failure_class = ?, attempt_count = attempt_count + ?,
		    next_eligible_at = ?, updated_at = ?
		WHERE id = ? AND sync_state = ?`, table)

	affected, err := r.exec(ctx, query,
		domain.SyncStateFailed,
		failure.Reason,
		class,
		increment,
		dbTime(failure.NextEligibleAt),
		dbTime(now),
		dbID,
		domain.SyncStateSubmitting,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark record failed")
	}
	if affected == 0 {
		return r.transitionError(ctx, kind, id, domain.SyncStateFailed)
	}
	return nil
}

// RecoverStuck returns submitting records last touched before olderThan to pending without
// changing their attempt count. It returns the number of recovered records.
func (r *RecordRepository) RecoverStuck(
	ctx context.Context,
	kind domain.Kind,
	olderThan, now time.Time,
) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`UPDATE %s
		SET sync_state = ?, last_error = ?, next_eligible_at = ?, updated_at = ?
		WHERE sync_state = ? AND updated_at < ?`, table)

	affected, err := r.exec(ctx, query,
		domain.SyncStatePending,
		recoveredNote,
		dbTime(now),
		dbTime(now),
		domain.SyncStateSubmitting,
		dbTime(olderThan),
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to recover stuck records")
	}
	return affected, nil
}

// ResetAttempts is the operator action returning a failed record to pending with a zero
// attempt count and no failure class.
func (r *RecordRepository) ResetAttempts(ctx context.Context, kind domain.Kind, id uuid.UUID, now time.Time) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	dbID, err := r.dialect.encodeID(id)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record id")
	}

	query := fmt.Sprintf(`UPDATE %s
		SET sync_state = ?, attempt_count = 0, failure_class = ?, last_error = NULL,
		    next_eligible_at = ?, updated_at = ?
		WHERE id = ? AND sync_state = ?`, table)

	affected, err := r.exec(ctx, query,
		domain.SyncStatePending,
		domain.FailureClassNone,
		dbTime(now),
		dbTime(now),
		dbID,
		domain.SyncStateFailed,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to reset record attempts")
	}
	if affected == 0 {
		return r.transitionError(ctx, kind, id, domain.SyncStatePending)
	}
	return nil
}

// ListStranded returns failed records that will not be retried automatically: attempts
// exhausted or a terminal failure class. Oldest failures first.
func (r *RecordRepository) ListStranded(
	ctx context.Context,
	kind domain.Kind,
	maxAttempts, limit int,
) ([]*domain.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE sync_state = ? AND (attempt_count >= ? OR failure_class = ?)
		ORDER BY updated_at ASC, id ASC
		LIMIT ?`, selectColumns, table)

	return r.queryRecords(ctx, kind, query,
		domain.SyncStateFailed,
		maxAttempts,
		domain.FailureClassTerminal,
		limit,
	)
}

// List returns records of a kind, newest first, with pagination support.
func (r *RecordRepository) List(ctx context.Context, kind domain.Kind, offset, limit int) ([]*domain.Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		selectColumns, table)

	return r.queryRecords(ctx, kind, query, limit, offset)
}

// CountByState returns the number of records of a kind in each sync state present.
func (r *RecordRepository) CountByState(ctx context.Context, kind domain.Kind) ([]domain.StateCount, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT sync_state, COUNT(*) FROM %s GROUP BY sync_state`, table)

	querier := database.GetTx(ctx, r.db)
	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count records")
	}
	defer rows.Close() //nolint:errcheck

	counts := make([]domain.StateCount, 0, 4)
	for rows.Next() {
		count := domain.StateCount{Kind: kind}
		if err := rows.Scan(&count.State, &count.Count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan record count")
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating record counts")
	}
	return counts, nil
}

// transitionError explains why a conditional update matched no row.
func (r *RecordRepository) transitionError(
	ctx context.Context,
	kind domain.Kind,
	id uuid.UUID,
	target domain.SyncState,
) error {
	current, err := r.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	return apperrors.Wrapf(domain.ErrInvalidTransition, "%s -> %s", current.SyncState, target)
}

func (r *RecordRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	querier := database.GetTx(ctx, r.db)
	result, err := querier.ExecContext(ctx, r.dialect.bind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *RecordRepository) queryRecords(
	ctx context.Context,
	kind domain.Kind,
	query string,
	args ...any,
) ([]*domain.Record, error) {
	querier := database.GetTx(ctx, r.db)
	rows, err := querier.QueryContext(ctx, r.dialect.bind(query), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query records")
	}
	defer rows.Close() //nolint:errcheck

	// Initialize empty slice to avoid returning nil for empty results
	records := make([]*domain.Record, 0)
	for rows.Next() {
		record, err := r.scanRecord(kind, rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating record rows")
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RecordRepository) scanRecord(kind domain.Kind, row rowScanner) (*domain.Record, error) {
	record := domain.Record{Kind: kind}
	var (
		idBytes      []byte
		payloadBytes []byte
		ledgerTxID   sql.NullString
		lastError    sql.NullString
	)

	err := row.Scan(
		&idBytes,
		&payloadBytes,
		&record.SyncState,
		&ledgerTxID,
		&lastError,
		&record.FailureClass,
		&record.AttemptCount,
		&record.NextEligibleAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to scan record row")
	}

	if record.ID, err = r.dialect.decodeID(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal record id")
	}
	if record.Payload, err = domain.DecodePayload(kind, payloadBytes); err != nil {
		return nil, apperrors.Wrapf(err, "record %s", record.ID)
	}
	if ledgerTxID.Valid {
		record.LedgerTxID = &ledgerTxID.String
	}
	if lastError.Valid {
		record.LastError = &lastError.String
	}
	record.NextEligibleAt = record.NextEligibleAt.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()

	return &record, nil
}

func tableFor(kind domain.Kind) (string, error) {
	table := kind.Table()
	if table == "" {
		return "", apperrors.Wrapf(domain.ErrUnknownKind, "%q", string(kind))
	}
	return table, nil
}

// dbTime normalizes timestamps to UTC with the microsecond precision every dialect stores.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
