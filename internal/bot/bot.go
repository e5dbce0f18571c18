package bot

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/shift-tracker/backend/internal/config"
	"github.com/shift-tracker/backend/internal/conversation"
	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/repository"
	"github.com/shift-tracker/backend/internal/utils"
)

// Store is the slice of the repository the bot works with.
type Store interface {
	conversation.ShiftCreator
	GetUserByTelegramID(telegramID string) (*domain.User, error)
	CreateUser(user *domain.User) error
	UpdateUserProfile(user *domain.User) error
	UpdateAPIToken(userID int64, token string) error
	GetShiftsByUser(userID int64) ([]*domain.Shift, error)
	GetShiftsByMonth(userID int64, month string) ([]*domain.Shift, error)
	GetShift(userID, id int64) (*domain.Shift, error)
	UpdateShiftField(userID, id int64, field domain.Field, value any) error
	DeleteShift(userID, id int64) error
	GetUserStatistics(userID int64) (*domain.Statistics, error)
}

// LoginCodes issues one-time codes for signing in to the web API.
type LoginCodes interface {
	IssueLoginCode(ctx context.Context, userID int64) (string, error)
	TTL() time.Duration
}

type pendingEdit struct {
	shiftID int64
	field   domain.Field
}

type Bot struct {
	store    Store
	codes    LoginCodes
	sessions *conversation.Manager
	now      func() time.Time
	support  string

	mu    sync.Mutex
	edits map[int64]pendingEdit
}

// New wires a bot. codes may be nil, in which case the profile offers no web login code.
func New(cfg *config.Config, store Store, codes LoginCodes, presets config.Presets, now func() time.Time) *Bot {
	if now == nil {
		now = time.Now
	}
	return &Bot{
		store:    store,
		codes:    codes,
		sessions: conversation.NewManager(conversation.NewMachine(presets, now), store),
		now:      now,
		support:  cfg.Chat.SupportHandle,
		edits:    make(map[int64]pendingEdit),
	}
}

func menuMessage(text string) domain.Outbound {
	return domain.Outbound{Text: text, Keyboard: conversation.MainMenuKeyboard}
}

func reply(text string) []domain.Outbound {
	return []domain.Outbound{menuMessage(text)}
}

// Flow reports the add-shift state of a user, if a flow is running.
func (b *Bot) Flow(userID int64) (conversation.State, bool) {
	state, _, ok := b.sessions.Current(userID)
	return state, ok
}

// Handle processes one inbound update and returns what to display.
func (b *Bot) Handle(ctx context.Context, upd domain.Update) (out []domain.Outbound) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bot handler panicked", "chatUserID", upd.ChatUserID, "panic", r, "stack", string(debug.Stack()))
			out = reply(utils.EmojiWarning + " Произошла ошибка.")
		}
	}()

	user, err := b.ensureUser(upd)
	if err != nil {
		slog.Error("failed to resolve chat user", "chatUserID", upd.ChatUserID, "error", err)
		return reply(utils.EmojiWarning + " Произошла ошибка. Попробуй позже.")
	}

	if upd.Callback != "" {
		return b.handleCallback(ctx, user, upd.Callback)
	}
	return b.handleText(user, strings.TrimSpace(upd.Text))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ensureUser finds the chat user or registers them, keeping the reported names current.
func (b *Bot) ensureUser(upd domain.Update) (*domain.User, error) {
	if upd.ChatUserID == "" {
		return nil, errors.New("update without chat user id")
	}

	user, err := b.store.GetUserByTelegramID(upd.ChatUserID)
	switch {
	case err == nil:
		username, fullName := optional(upd.Username), optional(upd.FullName)
		if (username != nil && !sameOptional(username, user.Username)) || (fullName != nil && !sameOptional(fullName, user.FullName)) {
			if username != nil {
				user.Username = username
			}
			if fullName != nil {
				user.FullName = fullName
			}
			if err := b.store.UpdateUserProfile(user); err != nil {
				slog.Warn("failed to refresh chat user profile", "userID", user.ID, "error", err)
			}
		}
		return user, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	telegramID := upd.ChatUserID
	user = &domain.User{
		TelegramID: &telegramID,
		Username:   optional(upd.Username),
		FullName:   optional(upd.FullName),
		APIToken:   utils.GenerateAPIToken(),
	}
	if err := b.store.CreateUser(user); err != nil {
		// a concurrent first message may have registered the user already
		if errors.Is(err, repository.ErrDuplicate) {
			return b.store.GetUserByTelegramID(upd.ChatUserID)
		}
		return nil, err
	}

	slog.Info("registered chat user", "userID", user.ID, "chatUserID", upd.ChatUserID)
	return user, nil
}

func (b *Bot) setEdit(userID int64, edit pendingEdit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.edits[userID] = edit
}

func (b *Bot) currentEdit(userID int64) (pendingEdit, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	edit, ok := b.edits[userID]
	return edit, ok
}

func (b *Bot) clearEdit(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.edits, userID)
}

func (b *Bot) handleText(user *domain.User, text string) []domain.Outbound {
	switch text {
	case "/start":
		b.clearEdit(user.ID)
		return b.welcome(user)
	case "/help":
		return b.help()
	case "/profile":
		return b.profile(user)
	}

	ev := conversation.ParseEvent(text)
	if ev.Kind == conversation.EventStart {
		b.clearEdit(user.ID)
	}
	if out, handled := b.sessions.Handle(user.ID, ev); handled {
		return out
	}

	if ev.Kind == conversation.EventCancel {
		b.clearEdit(user.ID)
		return reply(conversation.MessageCancelled)
	}

	switch text {
	case conversation.ButtonMyShifts:
		return monthPicker(false)
	case conversation.ButtonExport:
		return b.export(user)
	case conversation.ButtonStatistics:
		return b.statistics(user, false)
	case conversation.ButtonProfile, "Профиль":
		return b.profile(user)
	case conversation.ButtonHelp:
		return b.help()
	}

	if edit, ok := b.currentEdit(user.ID); ok {
		return b.applyEdit(user, edit, text)
	}

	return reply(utils.EmojiInfo + " Используй кнопки меню для навигации.")
}
