package transport

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go driver
)

const outboxSchemaVersion = 1

// SQLiteOutbox is an Outbox that survives restarts.
type SQLiteOutbox struct {
	db *sql.DB
}

// OpenSQLiteOutbox opens or creates the outbox database at path.
func OpenSQLiteOutbox(path string) (*SQLiteOutbox, error) {
	// The pragmas go in the DSN so they apply to every pooled connection.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(FULL)",
		path, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("outbox: open failed: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("outbox: ping failed: %w", err)
	}

	outbox := &SQLiteOutbox{db: db}
	if err := outbox.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("outbox: migration failed: %w", err)
	}
	return outbox, nil
}

func (outbox *SQLiteOutbox) migrate() error {
	var currentVersion int
	if err := outbox.db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= outboxSchemaVersion {
		return nil
	}

	tx, err := outbox.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS outbox (
		report_id TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		created_at_ms INTEGER NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_created ON outbox(created_at_ms);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", outboxSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (outbox *SQLiteOutbox) Put(ctx context.Context, entry Entry) error {
	_, err := outbox.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO outbox (report_id, payload, created_at_ms, attempts) VALUES (?, ?, ?, ?)`,
		entry.ID.String(), entry.Payload, entry.CreatedAt.UnixMilli(), entry.Attempts)
	if err != nil {
		return fmt.Errorf("outbox: put %s: %w", entry.ID, err)
	}
	return nil
}

func (outbox *SQLiteOutbox) Pending(ctx context.Context) ([]Entry, error) {
	rows, err := outbox.db.QueryContext(ctx,
		`SELECT report_id, payload, created_at_ms, attempts FROM outbox ORDER BY created_at_ms, rowid`)
	if err != nil {
		return nil, fmt.Errorf("outbox: query pending: %w", err)
	}
	defer rows.Close()

	var pending []Entry
	for rows.Next() {
		var (
			rawID     string
			entry     Entry
			createdMS int64
		)
		if err := rows.Scan(&rawID, &entry.Payload, &createdMS, &entry.Attempts); err != nil {
			return nil, fmt.Errorf("outbox: scan entry: %w", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("outbox: parse id %q: %w", rawID, err)
		}
		entry.ID = id
		entry.CreatedAt = time.UnixMilli(createdMS).UTC()
		pending = append(pending, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox: iterate pending: %w", err)
	}
	return pending, nil
}

func (outbox *SQLiteOutbox) MarkAttempt(ctx context.Context, id uuid.UUID) error {
	if _, err := outbox.db.ExecContext(ctx, `UPDATE outbox SET attempts = attempts + 1 WHERE report_id = ?`, id.String()); err != nil {
		return fmt.Errorf("outbox: mark attempt %s: %w", id, err)
	}
	return nil
}

func (outbox *SQLiteOutbox) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := outbox.db.ExecContext(ctx, `DELETE FROM outbox WHERE report_id = ?`, id.String()); err != nil {
		return fmt.Errorf("outbox: delete %s: %w", id, err)
	}
	return nil
}

func (outbox *SQLiteOutbox) Close() error {
	return outbox.db.Close()
}
