package telegram

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/renkagod/birthday-notifier-bot/internal/domain"
)

const maxNameLen = 64

// handleAdd starts the add flow. With arguments it takes the quick
// path ("/add Name DD.MM.YYYY [@tag]"); without, the guided one.
func (r *Router) handleAdd(ctx context.Context, chatID int64, args string) {
	if args == "" {
		s := r.session(chatID)
		*s = session{state: stateAwaitName}
		r.sendText(chatID, promptName)
		return
	}

	fields := strings.Fields(args)
	if len(fields) < 2 {
		r.sendText(chatID, errAddUsage)
		return
	}

	tag := ""
	if last := fields[len(fields)-1]; strings.HasPrefix(last, "@") {
		tag = last
		fields = fields[:len(fields)-1]
	}
	if len(fields) < 2 {
		r.sendText(chatID, errAddUsage)
		return
	}

	dateStr := fields[len(fields)-1]
	name := strings.Join(fields[:len(fields)-1], " ")

	day, month, year, err := domain.ParseDate(dateStr)
	if err != nil {
		r.sendText(chatID, errBadDate)
		return
	}
	r.saveBirthday(ctx, chatID, domain.Birthday{
		ChatID: chatID, Name: name, Day: day, Month: month, Year: year, Tag: tag,
	})
}

func (r *Router) saveBirthday(ctx context.Context, chatID int64, b domain.Birthday) {
	if b.Name == "" || len(b.Name) > maxNameLen {
		r.sendText(chatID, errBadName)
		return
	}
	if err := r.repo.AddBirthday(ctx, &b); err != nil {
		r.log.Error("add birthday failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, errStore)
		return
	}
	r.resetSession(chatID)
	r.sendText(chatID, fmt.Sprintf("✅ Saved %s's birthday on %s!",
		b.Name, domain.FormatDate(b.Day, b.Month, b.Year)))
}

// handleList shows the chat's records ordered by how soon they occur.
func (r *Router) handleList(ctx context.Context, chatID int64) {
	records, err := r.repo.ListByChat(ctx, chatID)
	if err != nil {
		r.log.Error("list failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, errStore)
		return
	}
	if len(records) == 0 {
		r.sendText(chatID, "ℹ️ Your list is empty. Use /add to start.")
		return
	}

	now := time.Now()
	type entry struct {
		line string
		days int
	}
	entries := make([]entry, 0, len(records))
	for _, b := range records {
		occ, err := domain.Resolve(b, now)
		if err != nil {
			entries = append(entries, entry{
				line: fmt.Sprintf("• %s: %s (invalid date)", b.Name, domain.FormatDate(b.Day, b.Month, b.Year)),
				days: 1 << 20,
			})
			continue
		}
		line := fmt.Sprintf("• %s: %s — turns %d in %d day(s)",
			b.Name, domain.FormatDate(b.Day, b.Month, b.Year), occ.Age, occ.DaysUntil)
		if occ.DaysUntil == 0 {
			line = fmt.Sprintf("• %s: %s — turns %d today! 🎂",
				b.Name, domain.FormatDate(b.Day, b.Month, b.Year), occ.Age)
		}
		entries = append(entries, entry{line: line, days: occ.DaysUntil})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].days < entries[j].days })

	var sb strings.Builder
	sb.WriteString("📅 Your birthdays:\n")
	for _, e := range entries {
		sb.WriteString(e.line)
		sb.WriteByte('\n')
	}
	r.sendText(chatID, sb.String())
}

// handlePickRecord shows an indexed list and waits for a number; used
// by both the delete and the edit flow.
func (r *Router) handlePickRecord(ctx context.Context, chatID int64, next state, prompt string) {
	records, err := r.repo.ListByChat(ctx, chatID)
	if err != nil {
		r.log.Error("list failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, errStore)
		return
	}
	if len(records) == 0 {
		r.sendText(chatID, "ℹ️ Your list is empty.")
		return
	}

	s := r.session(chatID)
	*s = session{state: next}
	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteByte('\n')
	for i, b := range records {
		s.picks = append(s.picks, b.Name)
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, b.Name, domain.FormatDate(b.Day, b.Month, b.Year))
	}
	r.sendText(chatID, sb.String())
}

func (r *Router) pickedName(chatID int64, text string) (string, bool) {
	s := r.session(chatID)
	idx, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || idx < 1 || idx > len(s.picks) {
		return "", false
	}
	return s.picks[idx-1], true
}

func (r *Router) handleDeleteIndex(ctx context.Context, chatID int64, text string) {
	name, ok := r.pickedName(chatID, text)
	if !ok {
		r.sendText(chatID, errBadIndex)
		return
	}
	deleted, err := r.repo.DeleteBirthday(ctx, chatID, name)
	if err != nil {
		r.log.Error("delete failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, errStore)
		return
	}
	r.resetSession(chatID)
	if !deleted {
		r.sendText(chatID, fmt.Sprintf("Couldn't find %s anymore.", name))
		return
	}
	r.sendText(chatID, fmt.Sprintf("🗑 Removed %s.", name))
}

func (r *Router) handleEditTarget(ctx context.Context, chatID int64, text string) {
	name, ok := r.pickedName(chatID, text)
	if !ok {
		r.sendText(chatID, errBadIndex)
		return
	}
	s := r.session(chatID)
	s.state = stateAwaitEditData
	s.draft = domain.Birthday{ChatID: chatID, Name: name}
	r.sendText(chatID, fmt.Sprintf("Editing %s. Send the new name, optionally followed by a tag:\nNewName @username", name))
}

// handleEditData applies "NewName [@tag]". Only name and tag change;
// the stored date stays.
func (r *Router) handleEditData(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		r.sendText(chatID, errBadName)
		return
	}
	tag := ""
	if last := fields[len(fields)-1]; strings.HasPrefix(last, "@") && len(fields) > 1 {
		tag = last
		fields = fields[:len(fields)-1]
	}
	newName := strings.Join(fields, " ")
	if newName == "" || len(newName) > maxNameLen {
		r.sendText(chatID, errBadName)
		return
	}

	s := r.session(chatID)
	oldName := s.draft.Name
	if err := r.repo.UpdateBirthdayInfo(ctx, chatID, oldName, newName, tag); err != nil {
		r.log.Error("edit failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, errStore)
		return
	}
	r.resetSession(chatID)
	r.sendText(chatID, fmt.Sprintf("✏️ Updated: %s → %s", oldName, newName))
}

// handleSetTime updates the daily notify time, directly from the
// argument or via a prompt.
func (r *Router) handleSetTime(ctx context.Context, chatID int64, arg string) {
	if arg == "" {
		r.session(chatID).state = stateAwaitNotifyTime
		r.sendText(chatID, promptNotifyTime)
		return
	}
	r.handleNotifyTimeInput(ctx, chatID, arg)
}

func (r *Router) handleNotifyTimeInput(ctx context.Context, chatID int64, text string) {
	min, err := domain.ParseNotifyTime(text)
	if err != nil {
		r.sendText(chatID, errBadTime)
		return
	}
	st := r.settings(ctx, chatID)
	st.NotifyMin = min
	if err := r.repo.UpsertSettings(ctx, st); err != nil {
		r.log.Error("save settings failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, errStore)
		return
	}
	r.resetSession(chatID)
	r.sendText(chatID, fmt.Sprintf("⏰ Daily reminders will arrive at %s.", domain.FormatMinutes(min)))
}

// settings loads preferences with the same defaults the scheduler
// applies, so the UI and the engine never disagree.
func (r *Router) settings(ctx context.Context, chatID int64) domain.Settings {
	st, err := r.repo.GetSettings(ctx, chatID)
	if err != nil {
		r.log.Warn("get settings failed, using defaults", zap.Int64("chatID", chatID), zap.Error(err))
	}
	return st
}

// handleIntervals shows the lead-time toggle keyboard.
func (r *Router) handleIntervals(ctx context.Context, chatID int64) {
	st := r.settings(ctx, chatID)
	msg := tgbotapi.NewMessage(chatID, promptIntervals)
	msg.ReplyMarkup = intervalsKeyboard(st)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) handleIntervalToggle(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery, data string) {
	f, err := strconv.ParseFloat(strings.TrimPrefix(data, "iv:"), 64)
	if err != nil {
		return
	}
	m := domain.Marker(f)

	st := r.settings(ctx, chatID)
	if st.Has(m) {
		kept := st.Markers[:0]
		for _, x := range st.Markers {
			if x != m {
				kept = append(kept, x)
			}
		}
		st.Markers = kept
	} else {
		st.Markers = append(st.Markers, m)
	}
	if err := r.repo.UpsertSettings(ctx, st); err != nil {
		r.log.Error("save settings failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, errStore)
		return
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cb.Message.MessageID, intervalsKeyboard(st))
	if _, err := r.bot.Request(edit); err != nil {
		r.log.Warn("edit keyboard failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) handleIntervalsDone(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	st := r.settings(ctx, chatID)
	edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID,
		fmt.Sprintf("👌 Reminders set: %s", describeMarkers(st.Markers)))
	if _, err := r.bot.Request(edit); err != nil {
		r.log.Warn("edit message failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}
