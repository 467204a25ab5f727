package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/renkagod/birthday-notifier-bot/internal/domain"
	"github.com/renkagod/birthday-notifier-bot/internal/store"
)

// Notifier delivers one rendered reminder to a chat. Failures are
// per-chat and never abort the tick.
type Notifier interface {
	Deliver(ctx context.Context, chatID int64, text string) error
}

// Scheduler evaluates all birthday records once a minute and dispatches
// due reminders. It keeps no state between ticks beyond the store: the
// sent-marker watermark makes delivery exactly-once-effective even when
// a tick comes in late.
type Scheduler struct {
	repo     store.Repo
	log      *zap.Logger
	notifier Notifier

	cron *cron.Cron
	now  func() time.Time
}

// New creates a Scheduler. The tick schedule is fixed at every minute.
func New(repo store.Repo, log *zap.Logger, notifier Notifier) *Scheduler {
	return &Scheduler{
		repo:     repo,
		log:      log,
		notifier: notifier,
		now:      time.Now,
	}
}

// Start launches the minute cron. DelayIfStillRunning serializes
// passes: a tick that comes due while the previous pass is still
// working waits for it instead of overlapping.
func (s *Scheduler) Start(ctx context.Context) error {
	cl := &cronLogger{log: s.log}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cl),
		cron.DelayIfStillRunning(cl),
	))
	if _, err := s.cron.AddFunc("* * * * *", func() {
		s.Tick(ctx, s.now())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started")
	return nil
}

// Stop halts the cron and waits for an in-flight pass to finish, or for
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out with a pass in flight")
	}
	s.log.Info("scheduler stopped")
}

// Tick runs one evaluation pass: fetch all records, resolve each
// against now, evaluate triggers, dispatch what is due and unsent.
// Re-running the same tick against the same data yields no extra sends.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	records, err := s.repo.ListBirthdays(ctx)
	if err != nil {
		s.log.Error("list birthdays failed", zap.Error(err))
		return
	}

	// Preference lookups bounded to one per distinct chat per tick.
	prefs := make(map[int64]domain.Settings)

	for _, b := range records {
		occ, err := domain.Resolve(b, now)
		if err != nil {
			s.log.Warn("skipping record with bad date",
				zap.Int64("chatID", b.ChatID), zap.String("name", b.Name), zap.Error(err))
			continue
		}

		st, ok := prefs[b.ChatID]
		if !ok {
			st = s.settingsFor(ctx, b.ChatID)
			prefs[b.ChatID] = st
		}

		s.dispatch(ctx, b, occ, domain.Evaluate(occ, st, now), now)
	}

	// Watermarks for past occurrences are dead weight; sweep them on
	// the quiet 03:00 tick.
	if now.Hour() == 3 && now.Minute() == 0 {
		if err := s.repo.PruneSent(ctx, now.AddDate(-1, -1, 0)); err != nil {
			s.log.Warn("prune sent markers failed", zap.Error(err))
		}
	}
}

// settingsFor loads a chat's preferences, falling back to defaults on
// any store or config problem. A chat never loses its tick to a bad
// notify_time string.
func (s *Scheduler) settingsFor(ctx context.Context, chatID int64) domain.Settings {
	st, err := s.repo.GetSettings(ctx, chatID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrBadNotifyTime):
		s.log.Warn("bad notify time, using default", zap.Int64("chatID", chatID), zap.Error(err))
	default:
		s.log.Error("get settings failed, using defaults", zap.Int64("chatID", chatID), zap.Error(err))
		st = domain.DefaultSettings(chatID)
	}
	return st
}

// dispatch sends at most one reminder for the record on this tick: the
// most imminent due marker that has no watermark yet. On success every
// currently-due marker is watermarked, so markers superseded during
// catch-up never fire stale. On delivery failure nothing is marked and
// the next tick retries while the window is still open.
func (s *Scheduler) dispatch(ctx context.Context, b domain.Birthday, occ domain.Occurrence, due []domain.Fire, now time.Time) {
	if len(due) == 0 {
		return
	}

	occYear := occ.Date.Year()
	var fire *domain.Fire
	for i := range due {
		sent, err := s.repo.WasSent(ctx, b.ChatID, b.Name, occYear, due[i].Marker)
		if err != nil {
			// Can't prove it wasn't sent; skip rather than risk a duplicate.
			s.log.Error("watermark lookup failed",
				zap.Int64("chatID", b.ChatID), zap.String("name", b.Name), zap.Error(err))
			return
		}
		if !sent {
			fire = &due[i]
			break
		}
	}
	if fire == nil {
		return
	}

	if err := s.notifier.Deliver(ctx, fire.ChatID, fire.Text); err != nil {
		s.log.Warn("delivery failed",
			zap.Int64("chatID", fire.ChatID), zap.String("name", b.Name),
			zap.String("marker", fire.Marker.String()), zap.Error(err))
		return
	}

	markers := make([]domain.Marker, 0, len(due))
	for _, f := range due {
		markers = append(markers, f.Marker)
	}
	if err := s.repo.MarkSent(ctx, b.ChatID, b.Name, occYear, markers, now); err != nil {
		s.log.Error("watermark write failed",
			zap.Int64("chatID", b.ChatID), zap.String("name", b.Name), zap.Error(err))
		return
	}

	s.log.Info("reminder sent",
		zap.Int64("chatID", fire.ChatID), zap.String("name", b.Name),
		zap.String("marker", fire.Marker.String()), zap.Int("occYear", occYear))
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct{ log *zap.Logger }

func (c *cronLogger) Info(msg string, kv ...interface{}) {
	c.log.Debug("cron: "+msg, zap.Any("kv", kv))
}

func (c *cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.log.Error("cron: "+msg, zap.Error(err), zap.Any("kv", kv))
}
