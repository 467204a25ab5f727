package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/renkagod/birthday-notifier-bot/internal/domain"
	"github.com/renkagod/birthday-notifier-bot/internal/store"
)

// Conversation states for the guided flows. One session per chat,
// in-memory only; a restart simply drops half-finished input.
type state int

const (
	stateIdle state = iota
	stateAwaitName
	stateAwaitYear  // decade keyboard, then year keyboard
	stateAwaitMonth
	stateAwaitDay
	stateAwaitEditTarget
	stateAwaitEditData
	stateAwaitDeleteIndex
	stateAwaitNotifyTime
	stateAwaitImportFile
)

// session accumulates guided input until it yields one complete record.
type session struct {
	state state
	draft domain.Birthday
	// picks holds the indexed names shown for delete/edit selection.
	picks []string
}

// Router wires Telegram updates to handlers and holds per-chat
// conversation state.
type Router struct {
	bot  *tgbotapi.BotAPI
	log  *zap.Logger
	repo store.Repo

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo) *Router {
	return &Router{
		bot:      bot,
		log:      log,
		repo:     repo,
		sessions: make(map[int64]*session),
	}
}

func (r *Router) session(chatID int64) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[chatID]
	if !ok {
		s = &session{}
		r.sessions[chatID] = s
	}
	return s
}

func (r *Router) resetSession(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, chatID)
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID

		if msg.Document != nil {
			r.handleDocument(ctx, chatID, msg.Document)
			return
		}

		text := strings.TrimSpace(msg.Text)
		switch {
		case strings.HasPrefix(text, "/start"), strings.HasPrefix(text, "/help"):
			r.resetSession(chatID)
			r.sendText(chatID, helpText)
		case strings.HasPrefix(text, "/add"):
			r.handleAdd(ctx, chatID, strings.TrimSpace(strings.TrimPrefix(text, "/add")))
		case strings.HasPrefix(text, "/list"):
			r.handleList(ctx, chatID)
		case strings.HasPrefix(text, "/delete"):
			r.handlePickRecord(ctx, chatID, stateAwaitDeleteIndex, promptDelete)
		case strings.HasPrefix(text, "/edit"):
			r.handlePickRecord(ctx, chatID, stateAwaitEditTarget, promptEdit)
		case strings.HasPrefix(text, "/settime"):
			r.handleSetTime(ctx, chatID, strings.TrimSpace(strings.TrimPrefix(text, "/settime")))
		case strings.HasPrefix(text, "/intervals"):
			r.handleIntervals(ctx, chatID)
		case strings.HasPrefix(text, "/import"):
			r.session(chatID).state = stateAwaitImportFile
			r.sendText(chatID, promptImport)
		case strings.HasPrefix(text, "/cancel"):
			r.resetSession(chatID)
			r.sendText(chatID, "Okay, cancelled.")
		default:
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		r.handleCallback(ctx, cb.Message.Chat.ID, cb)
	}
}

// handleFreeForm consumes text that belongs to the pending flow, if any.
func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	s := r.session(chatID)
	switch s.state {
	case stateAwaitName:
		r.handleNameInput(ctx, chatID, text)
	case stateAwaitDeleteIndex:
		r.handleDeleteIndex(ctx, chatID, text)
	case stateAwaitEditTarget:
		r.handleEditTarget(ctx, chatID, text)
	case stateAwaitEditData:
		r.handleEditData(ctx, chatID, text)
	case stateAwaitNotifyTime:
		r.handleNotifyTimeInput(ctx, chatID, text)
	case stateAwaitImportFile:
		r.sendText(chatID, "Send the list as a file attachment, or /cancel.")
	default:
		// Stray text outside any flow: ignore.
	}
}

func (r *Router) handleCallback(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	_ = r.answerCallback(cb.ID, "")
	data := cb.Data
	switch {
	case strings.HasPrefix(data, "decade:"):
		r.handleDecadePick(ctx, chatID, data)
	case strings.HasPrefix(data, "year:"):
		r.handleYearPick(ctx, chatID, data)
	case strings.HasPrefix(data, "month:"):
		r.handleMonthPick(ctx, chatID, data)
	case strings.HasPrefix(data, "day:"):
		r.handleDayPick(ctx, chatID, data)
	case strings.HasPrefix(data, "iv:"):
		r.handleIntervalToggle(ctx, chatID, cb, data)
	case data == "iv_done":
		r.handleIntervalsDone(ctx, chatID, cb)
	}
}

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}
