package store

import (
	"context"
	"time"

	"github.com/renkagod/birthday-notifier-bot/internal/domain"
)

// Repo defines storage operations for birthdays, preferences and the
// sent-marker watermark.
type Repo interface {
	// AddBirthday inserts or replaces the record for (chat, name).
	// Replacing also clears the record's watermarks, so a changed date
	// is evaluated fresh.
	AddBirthday(ctx context.Context, b *domain.Birthday) error
	ListBirthdays(ctx context.Context) ([]domain.Birthday, error)
	ListByChat(ctx context.Context, chatID int64) ([]domain.Birthday, error)
	// DeleteBirthday reports whether a record was actually removed.
	DeleteBirthday(ctx context.Context, chatID int64, name string) (bool, error)
	// UpdateBirthdayInfo renames a record and/or changes its tag. The
	// date is immutable; delete and re-add to change it.
	UpdateBirthdayInfo(ctx context.Context, chatID int64, oldName, newName, tag string) error

	// GetSettings returns stored preferences, or defaults when the chat
	// has none. A malformed stored notify time yields usable defaults
	// plus a domain.ErrBadNotifyTime for the caller to log.
	GetSettings(ctx context.Context, chatID int64) (domain.Settings, error)
	UpsertSettings(ctx context.Context, st domain.Settings) error

	WasSent(ctx context.Context, chatID int64, name string, occYear int, m domain.Marker) (bool, error)
	MarkSent(ctx context.Context, chatID int64, name string, occYear int, ms []domain.Marker, at time.Time) error
	// PruneSent drops watermarks recorded before the cutoff.
	PruneSent(ctx context.Context, before time.Time) error

	Close() error
}
