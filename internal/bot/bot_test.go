package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shift-tracker/backend/internal/config"
	"github.com/shift-tracker/backend/internal/conversation"
	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/repository"
)

var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type fakeCodes struct {
	issued map[int64]string
}

func (f *fakeCodes) IssueLoginCode(_ context.Context, userID int64) (string, error) {
	code := fmt.Sprintf("%06d", userID)
	f.issued[userID] = code
	return code, nil
}

func (f *fakeCodes) TTL() time.Duration {
	return 5 * time.Minute
}

type fixture struct {
	bot   *Bot
	repo  *repository.Repository
	codes *fakeCodes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "bot.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	cfg.Database.ConnectTimeout = 5
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 5
	cfg.Database.MaxOpenConns = 4
	cfg.Chat.SupportHandle = "@support"

	dbpool, err := repository.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { dbpool.Close() })

	repo := repository.NewRepository(cfg, dbpool)
	require.NoError(t, repo.EnsureSchema())

	codes := &fakeCodes{issued: make(map[int64]string)}
	b := New(cfg, repo, codes, config.DefaultPresets(), func() time.Time { return fixedNow })
	return &fixture{bot: b, repo: repo, codes: codes}
}

func (f *fixture) say(chatUserID string, texts ...string) []domain.Outbound {
	var out []domain.Outbound
	for _, text := range texts {
		out = f.bot.Handle(context.Background(), domain.Update{ChatUserID: chatUserID, Username: "ivan", FullName: "Иван Петров", Text: text})
	}
	return out
}

func (f *fixture) press(chatUserID, data string) []domain.Outbound {
	return f.bot.Handle(context.Background(), domain.Update{ChatUserID: chatUserID, Callback: data})
}

func (f *fixture) user(t *testing.T, chatUserID string) *domain.User {
	t.Helper()
	user, err := f.repo.GetUserByTelegramID(chatUserID)
	require.NoError(t, err)
	return user
}

func (f *fixture) addShift(t *testing.T, chatUserID string, inputs ...string) *domain.Shift {
	t.Helper()
	f.say(chatUserID, append([]string{conversation.ButtonStart}, inputs...)...)

	user := f.user(t, chatUserID)
	shifts, err := f.repo.GetShiftsByUser(user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, shifts)
	return shifts[0]
}

func last(out []domain.Outbound) domain.Outbound {
	if len(out) == 0 {
		return domain.Outbound{}
	}
	return out[len(out)-1]
}

func TestHandle_StartRegistersUser(t *testing.T) {
	f := newFixture(t)

	out := f.say("555", "/start")
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "Добро пожаловать")
	assert.Equal(t, conversation.MainMenuKeyboard, out[0].Keyboard)

	user := f.user(t, "555")
	assert.Equal(t, "ivan", *user.Username)
	assert.Equal(t, "Иван Петров", *user.FullName)
	assert.NotEmpty(t, user.APIToken)

	f.say("555", "/start")
	again := f.user(t, "555")
	assert.Equal(t, user.ID, again.ID)
}

func TestHandle_MissingChatUser(t *testing.T) {
	f := newFixture(t)

	out := f.bot.Handle(context.Background(), domain.Update{Text: "/start"})
	assert.Contains(t, last(out).Text, "Произошла ошибка")
}

func TestHandle_AddShiftFlow(t *testing.T) {
	f := newFixture(t)

	out := f.say("1", conversation.ButtonStart, "Сегодня", "РЕЖ", "ЛЧ", "1830", "2100", "10000")
	assert.Equal(t, conversation.MessageSaved, last(out).Text)

	user := f.user(t, "1")
	shifts, err := f.repo.GetShiftsByUser(user.ID)
	require.NoError(t, err)
	require.Len(t, shifts, 1)

	s := shifts[0]
	assert.Equal(t, "2024-03-10", s.Date.String())
	assert.Equal(t, "РЕЖ", *s.Role)
	assert.Equal(t, "ЛЧ", *s.Program)
	assert.Equal(t, "18:30", *s.StartTime)
	assert.Equal(t, "21:00", *s.EndTime)
	assert.Equal(t, int64(10000), *s.Salary)

	_, active := f.bot.Flow(user.ID)
	assert.False(t, active)
}

func TestHandle_CancelWithoutFlow(t *testing.T) {
	f := newFixture(t)

	out := f.say("1", "❌ Отмена")
	assert.Equal(t, conversation.MessageCancelled, last(out).Text)
}

func TestHandle_UnknownText(t *testing.T) {
	f := newFixture(t)

	out := f.say("1", "привет")
	assert.Contains(t, last(out).Text, "Используй кнопки меню")
}

func TestListShifts_MonthAndAll(t *testing.T) {
	f := newFixture(t)
	f.addShift(t, "1", "1503", "EVS", "Пропустить", "2000", "Пропустить", "Пропустить")
	f.addShift(t, "1", "0503", "СВЕТ", "Пропустить", "0900", "Пропустить", "Пропустить")
	f.addShift(t, "1", "Пропустить", "ГРИМ", "Пропустить", "Пропустить", "Пропустить", "Пропустить")

	out := f.say("1", conversation.ButtonMyShifts)
	require.Len(t, out, 1)
	require.Len(t, out[0].Inline, 5)
	assert.Equal(t, "month_1", out[0].Inline[0][0].Data)

	out = f.press("1", "month_3")
	require.Len(t, out, 3)
	assert.Contains(t, out[0].Text, "Март 2024")
	assert.Contains(t, out[1].Text, "05.03.2024")
	assert.Contains(t, out[2].Text, "15.03.2024")

	out = f.press("1", "month_all")
	require.Len(t, out, 4)
	assert.Contains(t, out[1].Text, "ГРИМ")

	out = f.press("1", "month_7")
	require.Len(t, out, 1)
	assert.Equal(t, "У тебя нет смен за июль.", out[0].Text)
}

func TestEditShift(t *testing.T) {
	f := newFixture(t)
	shift := f.addShift(t, "1", "Сегодня", "EVS", "ЛК", "Пропустить", "Пропустить", "5000")

	out := f.press("1", fmt.Sprintf("edit_%d", shift.ID))
	require.Len(t, out, 1)
	assert.Len(t, out[0].Inline, len(domain.Fields)+1)

	out = f.press("1", fmt.Sprintf("edit_field_%d_salary", shift.ID))
	assert.Contains(t, out[0].Text, "гонорар")

	out = f.say("1", "-5")
	assert.Contains(t, out[0].Text, "не может быть отрицательным")

	out = f.say("1", "8000")
	assert.Contains(t, out[0].Text, "Поле обновлено")
	assert.Contains(t, out[0].Text, "8 000 ₽")

	updated, err := f.repo.GetShift(shift.UserID, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), *updated.Salary)

	out = f.say("1", "9000")
	assert.Contains(t, out[0].Text, "Используй кнопки меню")
}

func TestEditShift_SkipClearsField(t *testing.T) {
	f := newFixture(t)
	shift := f.addShift(t, "1", "Сегодня", "EVS", "ЛК", "Пропустить", "Пропустить", "5000")

	f.press("1", fmt.Sprintf("edit_field_%d_role", shift.ID))
	f.say("1", "пропустить")

	updated, err := f.repo.GetShift(shift.UserID, shift.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.Role)
}

func TestEditShift_UnknownField(t *testing.T) {
	f := newFixture(t)
	shift := f.addShift(t, "1", "Сегодня", "EVS", "ЛК", "Пропустить", "Пропустить", "5000")

	out := f.press("1", fmt.Sprintf("edit_field_%d_user_id", shift.ID))
	assert.Contains(t, out[0].Text, "не удалось разобрать")
}

func TestDeleteShift_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	shift := f.addShift(t, "1", "Сегодня", "EVS", "ЛК", "Пропустить", "Пропустить", "5000")
	f.say("2", "/start")

	out := f.press("2", fmt.Sprintf("delete_%d", shift.ID))
	assert.Contains(t, out[0].Text, "Ошибка при удалении")

	out = f.press("1", fmt.Sprintf("delete_%d", shift.ID))
	assert.Contains(t, out[0].Text, "Смена удалена")
}

func TestExport(t *testing.T) {
	f := newFixture(t)

	out := f.say("1", conversation.ButtonExport)
	assert.Contains(t, last(out).Text, "нет смен для экспорта")

	f.addShift(t, "1", "Сегодня", "EVS", "ЛК", "1830", "2100", "5000")

	out = f.say("1", conversation.ButtonExport)
	require.NotNil(t, last(out).Document)
	doc := last(out).Document
	assert.True(t, strings.HasPrefix(doc.Filename, "shifts_"))
	assert.True(t, strings.HasSuffix(doc.Filename, "_20240310_120000.json"))

	var export domain.Export
	require.NoError(t, json.Unmarshal(doc.Content, &export))
	require.Len(t, export.Shifts, 1)
	assert.Equal(t, "EVS", *export.Shifts[0].Role)
	assert.Equal(t, f.user(t, "1").ID, export.UserID)
}

func TestProfileAndToken(t *testing.T) {
	f := newFixture(t)
	f.say("1", "/start")
	before := f.user(t, "1")

	out := f.say("1", conversation.ButtonProfile)
	assert.Contains(t, out[0].Text, before.APIToken)
	assert.Contains(t, out[0].Text, "@ivan")
	require.Len(t, out[0].Inline, 3)

	out = f.press("1", "regenerate_token")
	after := f.user(t, "1")
	assert.NotEqual(t, before.APIToken, after.APIToken)
	assert.Contains(t, out[0].Text, after.APIToken)

	out = f.press("1", "login_code")
	assert.Contains(t, out[0].Text, f.codes.issued[after.ID])
	assert.Contains(t, out[0].Text, "5 мин")
	assert.Contains(t, out[0].Text, "Chat ID для входа: 1")
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	f.addShift(t, "1", "0103", "EVS", "ЛК", "Пропустить", "Пропустить", "3000")
	f.addShift(t, "1", "0203", "EVS", "ЛК", "Пропустить", "Пропустить", "5000")

	out := f.say("1", conversation.ButtonStatistics)
	text := last(out).Text
	assert.Contains(t, text, "Всего смен: 2")
	assert.Contains(t, text, "Общий заработок: 8 000 ₽")
	assert.Contains(t, text, "Средний заработок за смену: 4 000 ₽")
	assert.Contains(t, text, "Март 2024: 2 смен, 8 000 ₽")
}

func TestUnknownCallback(t *testing.T) {
	f := newFixture(t)

	out := f.press("1", "launch_rockets")
	assert.Contains(t, out[0].Text, "Неизвестная команда")
}
