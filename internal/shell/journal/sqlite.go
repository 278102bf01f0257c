package journal

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout keeps created_at lexically sortable.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// =============================================================================
// SQLiteJournal
// =============================================================================

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sqlx.DB
}

// NewSQLiteJournal opens the journal database and runs migrations.
func NewSQLiteJournal(dsn string) (*SQLiteJournal, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_busy_timeout=5000")
	if err != nil {
		return nil, NewJournalError("NewSQLiteJournal", "", "failed to open database", ErrConnectionFailed)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewJournalError("NewSQLiteJournal", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewJournalError("NewSQLiteJournal", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteJournal{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// =============================================================================
// Rollout Operations
// =============================================================================

// rolloutRow represents a rollout row in the database.
type rolloutRow struct {
	ID             string  `db:"id"`
	Service        string  `db:"service"`
	LatestRevision string  `db:"latest_revision"`
	PinnedRevision string  `db:"pinned_revision"`
	Traffic        *string `db:"traffic"`
	Previous       *string `db:"previous"`
	Outcome        string  `db:"outcome"`
	ErrorMessage   string  `db:"error_message"`
	CreatedAt      string  `db:"created_at"`
}

// RecordRollout stores a rollout attempt.
func (j *SQLiteJournal) RecordRollout(ctx context.Context, record *domain.RolloutRecord) error {
	if record.ID == "" {
		return NewJournalError("RecordRollout", "", "rollout ID is required", ErrInvalidData)
	}
	if !record.Outcome.IsValid() {
		return NewJournalError("RecordRollout", record.ID, fmt.Sprintf("unknown outcome %q", record.Outcome), ErrInvalidData)
	}

	trafficJSON, err := marshalTable(record.Traffic)
	if err != nil {
		return NewJournalError("RecordRollout", record.ID, "failed to serialize traffic", ErrInvalidData)
	}
	previousJSON, err := marshalTable(record.Previous)
	if err != nil {
		return NewJournalError("RecordRollout", record.ID, "failed to serialize previous traffic", ErrInvalidData)
	}

	query := `
		INSERT INTO rollouts (
			id, service, latest_revision, pinned_revision,
			traffic, previous, outcome, error_message, created_at
		) VALUES (
			:id, :service, :latest_revision, :pinned_revision,
			:traffic, :previous, :outcome, :error_message, :created_at
		)`

	row := map[string]any{
		"id":              record.ID,
		"service":         record.Service,
		"latest_revision": record.LatestRevisionID,
		"pinned_revision": record.PinnedRevisionID,
		"traffic":         trafficJSON,
		"previous":        previousJSON,
		"outcome":         string(record.Outcome),
		"error_message":   record.ErrorMessage,
		"created_at":      record.CreatedAt.UTC().Format(timeLayout),
	}

	if _, err := j.db.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: rollouts.id") {
			return NewJournalError("RecordRollout", record.ID, "rollout already recorded", ErrDuplicateID)
		}
		return NewJournalError("RecordRollout", record.ID, err.Error(), err)
	}

	return nil
}

// GetRollout returns a single rollout by ID.
func (j *SQLiteJournal) GetRollout(ctx context.Context, id string) (*domain.RolloutRecord, error) {
	query := `SELECT * FROM rollouts WHERE id = ?`

	var row rolloutRow
	if err := j.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewJournalError("GetRollout", id, "rollout not found", ErrNotFound)
		}
		return nil, NewJournalError("GetRollout", id, err.Error(), err)
	}

	return rowToRecord(&row)
}

// ListRollouts returns rollouts newest first. An empty service lists every
// service.
func (j *SQLiteJournal) ListRollouts(ctx context.Context, service string, opts ListOptions) ([]domain.RolloutRecord, error) {
	opts = opts.Normalize()

	var (
		conditions []string
		args       []any
	)
	if service != "" {
		conditions = append(conditions, "service = ?")
		args = append(args, service)
	}
	if opts.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(opts.Outcome))
	}

	query := `SELECT * FROM rollouts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	var rows []rolloutRow
	if err := j.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, NewJournalError("ListRollouts", "", err.Error(), err)
	}

	records := make([]domain.RolloutRecord, 0, len(rows))
	for _, row := range rows {
		record, err := rowToRecord(&row)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, nil
}

// =============================================================================
// Row Conversion
// =============================================================================

func marshalTable(table domain.TrafficTable) (*string, error) {
	if len(table) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(table)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func unmarshalTable(id string, raw *string) (domain.TrafficTable, error) {
	if raw == nil || *raw == "" || *raw == "null" {
		return nil, nil
	}
	var table domain.TrafficTable
	if err := json.Unmarshal([]byte(*raw), &table); err != nil {
		return nil, NewJournalError("rowToRecord", id, "failed to parse traffic", ErrInvalidData)
	}
	return table, nil
}

func rowToRecord(row *rolloutRow) (*domain.RolloutRecord, error) {
	createdAt, _ := time.Parse(timeLayout, row.CreatedAt)

	trafficTable, err := unmarshalTable(row.ID, row.Traffic)
	if err != nil {
		return nil, err
	}
	previous, err := unmarshalTable(row.ID, row.Previous)
	if err != nil {
		return nil, err
	}

	return &domain.RolloutRecord{
		ID:               row.ID,
		Service:          row.Service,
		LatestRevisionID: row.LatestRevision,
		PinnedRevisionID: row.PinnedRevision,
		Traffic:          trafficTable,
		Previous:         previous,
		Outcome:          domain.RolloutOutcome(row.Outcome),
		ErrorMessage:     row.ErrorMessage,
		CreatedAt:        createdAt,
	}, nil
}
