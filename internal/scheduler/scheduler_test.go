package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/renkagod/birthday-notifier-bot/internal/domain"
)

// fakeRepo is an in-memory store.Repo for tick tests.
type fakeRepo struct {
	birthdays []domain.Birthday
	settings  map[int64]domain.Settings
	sent      map[string]bool
	listErr   error
}

func newFakeRepo(bs ...domain.Birthday) *fakeRepo {
	return &fakeRepo{
		birthdays: bs,
		settings:  make(map[int64]domain.Settings),
		sent:      make(map[string]bool),
	}
}

func sentKey(chatID int64, name string, occYear int, m domain.Marker) string {
	return fmt.Sprintf("%d|%s|%d|%s", chatID, name, occYear, m)
}

func (f *fakeRepo) AddBirthday(ctx context.Context, b *domain.Birthday) error {
	f.birthdays = append(f.birthdays, *b)
	return nil
}

func (f *fakeRepo) ListBirthdays(ctx context.Context) ([]domain.Birthday, error) {
	return f.birthdays, f.listErr
}

func (f *fakeRepo) ListByChat(ctx context.Context, chatID int64) ([]domain.Birthday, error) {
	var out []domain.Birthday
	for _, b := range f.birthdays {
		if b.ChatID == chatID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteBirthday(ctx context.Context, chatID int64, name string) (bool, error) {
	return false, nil
}

func (f *fakeRepo) UpdateBirthdayInfo(ctx context.Context, chatID int64, oldName, newName, tag string) error {
	return nil
}

func (f *fakeRepo) GetSettings(ctx context.Context, chatID int64) (domain.Settings, error) {
	if st, ok := f.settings[chatID]; ok {
		return st, nil
	}
	return domain.DefaultSettings(chatID), nil
}

func (f *fakeRepo) UpsertSettings(ctx context.Context, st domain.Settings) error {
	f.settings[st.ChatID] = st
	return nil
}

func (f *fakeRepo) WasSent(ctx context.Context, chatID int64, name string, occYear int, m domain.Marker) (bool, error) {
	return f.sent[sentKey(chatID, name, occYear, m)], nil
}

func (f *fakeRepo) MarkSent(ctx context.Context, chatID int64, name string, occYear int, ms []domain.Marker, at time.Time) error {
	for _, m := range ms {
		f.sent[sentKey(chatID, name, occYear, m)] = true
	}
	return nil
}

func (f *fakeRepo) PruneSent(ctx context.Context, before time.Time) error { return nil }

func (f *fakeRepo) Close() error { return nil }

// fakeNotifier records deliveries and can be told to fail.
type fakeNotifier struct {
	delivered []string
	chats     []int64
	fail      bool
}

func (n *fakeNotifier) Deliver(ctx context.Context, chatID int64, text string) error {
	if n.fail {
		return errors.New("delivery down")
	}
	n.delivered = append(n.delivered, text)
	n.chats = append(n.chats, chatID)
	return nil
}

func newTestScheduler(repo *fakeRepo, n *fakeNotifier) *Scheduler {
	return New(repo, zap.NewNop(), n)
}

func utc(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestTick_FiresExactlyOnce(t *testing.T) {
	repo := newFakeRepo(domain.Birthday{ChatID: 1, Name: "Dasha", Day: 15, Month: 3, Year: 1990})
	n := &fakeNotifier{}
	s := newTestScheduler(repo, n)
	ctx := context.Background()

	// Seven days out at the default 09:00 notify time.
	s.Tick(ctx, utc(2024, time.March, 8, 9, 0))
	if len(n.delivered) != 1 {
		t.Fatalf("want 1 delivery, got %d", len(n.delivered))
	}

	// Re-running the same tick, and the next minutes, adds nothing.
	s.Tick(ctx, utc(2024, time.March, 8, 9, 0))
	s.Tick(ctx, utc(2024, time.March, 8, 9, 1))
	s.Tick(ctx, utc(2024, time.March, 8, 15, 0))
	if len(n.delivered) != 1 {
		t.Fatalf("want still 1 delivery, got %d", len(n.delivered))
	}
}

func TestTick_MissedTickStillFires(t *testing.T) {
	repo := newFakeRepo(domain.Birthday{ChatID: 1, Name: "Dasha", Day: 15, Month: 3, Year: 1990})
	n := &fakeNotifier{}
	s := newTestScheduler(repo, n)

	// The 09:00 tick never ran; the 09:03 one catches up.
	s.Tick(context.Background(), utc(2024, time.March, 8, 9, 3))
	if len(n.delivered) != 1 {
		t.Fatalf("want catch-up delivery, got %d", len(n.delivered))
	}
}

func TestTick_DeliveryFailureRetriesNextTick(t *testing.T) {
	repo := newFakeRepo(domain.Birthday{ChatID: 1, Name: "Dasha", Day: 15, Month: 3, Year: 1990})
	n := &fakeNotifier{fail: true}
	s := newTestScheduler(repo, n)
	ctx := context.Background()

	s.Tick(ctx, utc(2024, time.March, 8, 9, 0))
	if len(n.delivered) != 0 {
		t.Fatalf("delivery should have failed")
	}

	// No watermark was written, so the next tick retries and succeeds.
	n.fail = false
	s.Tick(ctx, utc(2024, time.March, 8, 9, 1))
	if len(n.delivered) != 1 {
		t.Fatalf("want retry delivery, got %d", len(n.delivered))
	}
	s.Tick(ctx, utc(2024, time.March, 8, 9, 2))
	if len(n.delivered) != 1 {
		t.Fatalf("want no duplicate after retry, got %d", len(n.delivered))
	}
}

func TestTick_BadRecordSkippedOthersFire(t *testing.T) {
	repo := newFakeRepo(
		domain.Birthday{ChatID: 1, Name: "Broken", Day: 31, Month: 4, Year: 1990},
		domain.Birthday{ChatID: 1, Name: "Dasha", Day: 15, Month: 3, Year: 1990},
	)
	n := &fakeNotifier{}
	s := newTestScheduler(repo, n)

	s.Tick(context.Background(), utc(2024, time.March, 8, 9, 0))
	if len(n.delivered) != 1 {
		t.Fatalf("want the good record delivered, got %d", len(n.delivered))
	}
}

func TestTick_TwoRecordsSameChatBothFire(t *testing.T) {
	repo := newFakeRepo(
		domain.Birthday{ChatID: 1, Name: "Dasha", Day: 15, Month: 3, Year: 1990},
		domain.Birthday{ChatID: 1, Name: "Misha", Day: 15, Month: 3, Year: 1988},
	)
	n := &fakeNotifier{}
	s := newTestScheduler(repo, n)

	// No cross-record suppression: one fire per record.
	s.Tick(context.Background(), utc(2024, time.March, 8, 9, 0))
	if len(n.delivered) != 2 {
		t.Fatalf("want 2 deliveries, got %d: %v", len(n.delivered), n.delivered)
	}
}

func TestTick_SupersededSubDayMarkerStaysQuiet(t *testing.T) {
	repo := newFakeRepo(domain.Birthday{ChatID: 1, Name: "Dasha", Day: 15, Month: 3, Year: 1990})
	n := &fakeNotifier{}
	s := newTestScheduler(repo, n)
	ctx := context.Background()

	// First tick of the evening lands 4 minutes before midnight: both
	// sub-day windows are open, only the 5-minute message goes out and
	// the stale 30-minute one is watermarked along with it.
	s.Tick(ctx, utc(2024, time.March, 14, 23, 56))
	if len(n.delivered) != 1 {
		t.Fatalf("want 1 delivery, got %d: %v", len(n.delivered), n.delivered)
	}
	s.Tick(ctx, utc(2024, time.March, 14, 23, 58))
	if len(n.delivered) != 1 {
		t.Fatalf("stale marker fired late: %v", n.delivered)
	}
}

func TestTick_RespectsConfiguredNotifyTime(t *testing.T) {
	repo := newFakeRepo(domain.Birthday{ChatID: 1, Name: "Dasha", Day: 15, Month: 3, Year: 1990})
	repo.settings[1] = domain.Settings{ChatID: 1, NotifyMin: 18 * 60, Markers: []domain.Marker{domain.MarkerWeek}}
	n := &fakeNotifier{}
	s := newTestScheduler(repo, n)
	ctx := context.Background()

	s.Tick(ctx, utc(2024, time.March, 8, 9, 0))
	if len(n.delivered) != 0 {
		t.Fatalf("fired before the configured 18:00: %v", n.delivered)
	}
	s.Tick(ctx, utc(2024, time.March, 8, 18, 0))
	if len(n.delivered) != 1 {
		t.Fatalf("want delivery at 18:00, got %d", len(n.delivered))
	}
}
