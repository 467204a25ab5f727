package telegram

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/renkagod/birthday-notifier-bot/internal/domain"
)

// Guided add: name (text) → decade → year → month → day, each step an
// inline keyboard. The flow emits one complete Birthday at the end.

func (r *Router) handleNameInput(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	tag := ""
	if len(fields) > 1 {
		if last := fields[len(fields)-1]; strings.HasPrefix(last, "@") {
			tag = last
			fields = fields[:len(fields)-1]
		}
	}
	name := strings.Join(fields, " ")
	if name == "" || len(name) > maxNameLen {
		r.sendText(chatID, errBadName)
		return
	}

	s := r.session(chatID)
	s.draft = domain.Birthday{ChatID: chatID, Name: name, Tag: tag}
	s.state = stateAwaitYear

	msg := tgbotapi.NewMessage(chatID, promptDecade)
	msg.ReplyMarkup = decadeKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) handleDecadePick(ctx context.Context, chatID int64, data string) {
	s := r.session(chatID)
	if s.state != stateAwaitYear {
		return
	}
	decade, err := strconv.Atoi(strings.TrimPrefix(data, "decade:"))
	if err != nil {
		return
	}
	msg := tgbotapi.NewMessage(chatID, promptYear)
	msg.ReplyMarkup = yearKeyboard(decade)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) handleYearPick(ctx context.Context, chatID int64, data string) {
	s := r.session(chatID)
	if s.state != stateAwaitYear {
		return
	}
	year, err := strconv.Atoi(strings.TrimPrefix(data, "year:"))
	if err != nil || year < 1900 || year > time.Now().Year() {
		return
	}
	s.draft.Year = year
	s.state = stateAwaitMonth

	msg := tgbotapi.NewMessage(chatID, promptMonth)
	msg.ReplyMarkup = monthKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) handleMonthPick(ctx context.Context, chatID int64, data string) {
	s := r.session(chatID)
	if s.state != stateAwaitMonth {
		return
	}
	month, err := strconv.Atoi(strings.TrimPrefix(data, "month:"))
	if err != nil || month < 1 || month > 12 {
		return
	}
	s.draft.Month = month
	s.state = stateAwaitDay

	msg := tgbotapi.NewMessage(chatID, promptDay)
	msg.ReplyMarkup = dayKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) handleDayPick(ctx context.Context, chatID int64, data string) {
	s := r.session(chatID)
	if s.state != stateAwaitDay {
		return
	}
	day, err := strconv.Atoi(strings.TrimPrefix(data, "day:"))
	if err != nil {
		return
	}
	s.draft.Day = day
	if err := domain.ValidateDate(s.draft.Day, s.draft.Month, s.draft.Year); err != nil {
		// e.g. 31 for a 30-day month; stay on the day keyboard.
		r.sendText(chatID, errNoSuchDay)
		return
	}
	r.saveBirthday(ctx, chatID, s.draft)
}

// Import: a text document with one record per line,
// "Name;DD.MM.YYYY" or "Name;DD.MM.YYYY;@tag".

const maxImportBytes = 1 << 20

var importClient = &http.Client{Timeout: 30 * time.Second}

func (r *Router) handleDocument(ctx context.Context, chatID int64, doc *tgbotapi.Document) {
	s := r.session(chatID)
	if s.state != stateAwaitImportFile {
		return
	}

	url, err := r.bot.GetFileDirectURL(doc.FileID)
	if err != nil {
		r.log.Warn("file url failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, errImport)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.sendText(chatID, errImport)
		return
	}
	resp, err := importClient.Do(req)
	if err != nil {
		r.log.Warn("file download failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, errImport)
		return
	}
	defer resp.Body.Close()

	added, bad := r.importRecords(ctx, chatID, io.LimitReader(resp.Body, maxImportBytes))
	r.resetSession(chatID)
	if added == 0 && bad == 0 {
		r.sendText(chatID, "The file was empty.")
		return
	}
	reply := fmt.Sprintf("📥 Imported %d record(s).", added)
	if bad > 0 {
		reply += fmt.Sprintf(" Skipped %d malformed line(s).", bad)
	}
	r.sendText(chatID, reply)
}

func (r *Router) importRecords(ctx context.Context, chatID int64, src io.Reader) (added, bad int) {
	sc := bufio.NewScanner(src)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) < 2 || len(parts) > 3 {
			bad++
			continue
		}
		name := strings.TrimSpace(parts[0])
		day, month, year, err := domain.ParseDate(parts[1])
		if err != nil || name == "" || len(name) > maxNameLen {
			bad++
			continue
		}
		tag := ""
		if len(parts) == 3 {
			tag = strings.TrimSpace(parts[2])
		}
		b := domain.Birthday{ChatID: chatID, Name: name, Day: day, Month: month, Year: year, Tag: tag}
		if err := r.repo.AddBirthday(ctx, &b); err != nil {
			r.log.Error("import add failed", zap.Int64("chatID", chatID), zap.String("name", name), zap.Error(err))
			bad++
			continue
		}
		added++
	}
	if err := sc.Err(); err != nil {
		r.log.Warn("import read failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
	return added, bad
}
