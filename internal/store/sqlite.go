package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/renkagod/birthday-notifier-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// AddBirthday inserts or replaces the record for (chat, name). Any
// watermarks for the pair are dropped so a re-added record with a new
// date is evaluated fresh.
func (r *SQLiteRepo) AddBirthday(ctx context.Context, b *domain.Birthday) error {
	if b == nil {
		return errors.New("nil birthday")
	}
	if err := domain.ValidateDate(b.Day, b.Month, b.Year); err != nil {
		return err
	}

	created := b.CreatedAt.UTC().Unix()
	if b.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO birthdays (chat_id, name, day, month, year, tag, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, name) DO UPDATE SET
			day   = excluded.day,
			month = excluded.month,
			year  = excluded.year,
			tag   = excluded.tag`,
		b.ChatID, b.Name, b.Day, b.Month, b.Year, toNullString(b.Tag), created,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sent_markers WHERE chat_id = ? AND name = ?`,
		b.ChatID, b.Name,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListBirthdays returns every stored record. Called once per tick; the
// whole table fits in memory at this scale.
func (r *SQLiteRepo) ListBirthdays(ctx context.Context) ([]domain.Birthday, error) {
	return r.queryBirthdays(ctx, `SELECT `+birthdayColumns+` FROM birthdays`)
}

// ListByChat returns one chat's records ordered by calendar date.
func (r *SQLiteRepo) ListByChat(ctx context.Context, chatID int64) ([]domain.Birthday, error) {
	return r.queryBirthdays(ctx, `
		SELECT `+birthdayColumns+`
		FROM birthdays
		WHERE chat_id = ?
		ORDER BY month ASC, day ASC, name ASC`,
		chatID,
	)
}

func (r *SQLiteRepo) queryBirthdays(ctx context.Context, q string, args ...any) ([]domain.Birthday, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Birthday
	for rows.Next() {
		b, err := scanBirthday(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteBirthday removes a record and its watermarks.
func (r *SQLiteRepo) DeleteBirthday(ctx context.Context, chatID int64, name string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM birthdays WHERE chat_id = ? AND name = ?`, chatID, name)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sent_markers WHERE chat_id = ? AND name = ?`, chatID, name); err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpdateBirthdayInfo renames a record and/or changes its tag. The date
// stays as stored. Watermarks follow the record to its new name.
func (r *SQLiteRepo) UpdateBirthdayInfo(ctx context.Context, chatID int64, oldName, newName, tag string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE birthdays
		SET name = ?, tag = ?
		WHERE chat_id = ? AND name = ?`,
		newName, toNullString(tag), chatID, oldName,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE sent_markers
		SET name = ?
		WHERE chat_id = ? AND name = ?`,
		newName, chatID, oldName,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// GetSettings returns the chat's preferences or defaults when absent.
func (r *SQLiteRepo) GetSettings(ctx context.Context, chatID int64) (domain.Settings, error) {
	var notifyTime, intervals string
	err := r.db.QueryRowContext(ctx,
		`SELECT notify_time, intervals FROM settings WHERE chat_id = ?`, chatID,
	).Scan(&notifyTime, &intervals)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultSettings(chatID), nil
	}
	if err != nil {
		return domain.DefaultSettings(chatID), err
	}
	return domain.ParseSettings(chatID, notifyTime, intervals)
}

// UpsertSettings stores preferences in the persisted text forms
// ("HH:MM" and the interval CSV).
func (r *SQLiteRepo) UpsertSettings(ctx context.Context, st domain.Settings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (chat_id, notify_time, intervals)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			notify_time = excluded.notify_time,
			intervals   = excluded.intervals`,
		st.ChatID, domain.FormatMinutes(st.NotifyMin), domain.FormatMarkers(st.Markers),
	)
	return err
}

// WasSent reports whether the marker already fired for this occurrence.
func (r *SQLiteRepo) WasSent(ctx context.Context, chatID int64, name string, occYear int, m domain.Marker) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM sent_markers
		WHERE chat_id = ? AND name = ? AND occ_year = ? AND marker = ?`,
		chatID, name, occYear, m.String(),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkSent records fired markers for an occurrence. Re-marking is a
// no-op, so the call is idempotent.
func (r *SQLiteRepo) MarkSent(ctx context.Context, chatID int64, name string, occYear int, ms []domain.Marker, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, m := range ms {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sent_markers (chat_id, name, occ_year, marker, sent_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(chat_id, name, occ_year, marker) DO NOTHING`,
			chatID, name, occYear, m.String(), at.UTC().Unix(),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// PruneSent drops watermarks older than the cutoff. Past occurrence
// years can never fire again, so the rows are dead weight.
func (r *SQLiteRepo) PruneSent(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sent_markers WHERE sent_at < ?`, before.UTC().Unix())
	return err
}
