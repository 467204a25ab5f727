package store

import (
	"database/sql"
	"time"

	"github.com/renkagod/birthday-notifier-bot/internal/domain"
)

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func fromNullString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// scanBirthday reads one birthdays row. Column order must match
// birthdayColumns.
const birthdayColumns = "chat_id, name, day, month, year, tag, created_at"

func scanBirthday(row interface{ Scan(...any) error }) (domain.Birthday, error) {
	var (
		b       domain.Birthday
		tag     sql.NullString
		created int64
	)
	if err := row.Scan(&b.ChatID, &b.Name, &b.Day, &b.Month, &b.Year, &tag, &created); err != nil {
		return domain.Birthday{}, err
	}
	b.Tag = fromNullString(tag)
	b.CreatedAt = time.Unix(created, 0).UTC()
	return b, nil
}
