package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/shift-tracker/backend/internal/conversation"
	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/utils"
)

const (
	callbackMonthAll        = "month_all"
	callbackBackToMonths    = "back_to_months"
	callbackRegenerateToken = "regenerate_token"
	callbackDetailedStats   = "detailed_stats"
	callbackLoginCode       = "login_code"
)

var (
	monthPattern      = regexp.MustCompile(`^month_(\d{1,2})$`)
	deletePattern     = regexp.MustCompile(`^delete_(\d+)$`)
	editPattern       = regexp.MustCompile(`^edit_(\d+)$`)
	editFieldPattern  = regexp.MustCompile(`^edit_field_(\d+)_(\w+)$`)
	cancelEditPattern = regexp.MustCompile(`^cancel_edit_(\d+)$`)
)

var backToMonths = [][]domain.InlineButton{{{Text: "◀️ Назад к месяцам", Data: callbackBackToMonths}}}

func monthPicker(edit bool) []domain.Outbound {
	rows := make([][]domain.InlineButton, 0, 5)
	for i := 0; i < len(monthNames); i += 3 {
		row := make([]domain.InlineButton, 0, 3)
		for m := i; m < i+3; m++ {
			row = append(row, domain.InlineButton{Text: monthNames[m], Data: fmt.Sprintf("month_%d", m+1)})
		}
		rows = append(rows, row)
	}
	rows = append(rows, []domain.InlineButton{{Text: "Все смены", Data: callbackMonthAll}})

	return []domain.Outbound{{Text: utils.EmojiDate + " Выбери месяц для просмотра смен:", Inline: rows, Edit: edit}}
}

func shiftButtons(id int64, editLabel string) [][]domain.InlineButton {
	return [][]domain.InlineButton{{
		{Text: editLabel, Data: fmt.Sprintf("edit_%d", id)},
		{Text: utils.EmojiCancel + " Удалить", Data: fmt.Sprintf("delete_%d", id)},
	}}
}

func editMessage(text string) []domain.Outbound {
	return []domain.Outbound{{Text: text, Edit: true}}
}

func orDefault(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// oldestFirst orders by date then start time; undated shifts lead.
func oldestFirst(a, b *domain.Shift) int {
	ad, bd := "", ""
	if a.Date != nil {
		ad = a.Date.String()
	}
	if b.Date != nil {
		bd = b.Date.String()
	}
	if c := strings.Compare(ad, bd); c != 0 {
		return c
	}
	return strings.Compare(orDefault(a.StartTime, "00:00"), orDefault(b.StartTime, "00:00"))
}

// listShifts shows one month of the current year, or everything when month is zero.
func (b *Bot) listShifts(user *domain.User, month int) []domain.Outbound {
	var (
		shifts []*domain.Shift
		err    error
		header string
	)
	year := b.now().Year()

	if month == 0 {
		shifts, err = b.store.GetShiftsByUser(user.ID)
		header = "📅 Все твои смены:"
	} else {
		shifts, err = b.store.GetShiftsByMonth(user.ID, fmt.Sprintf("%04d-%02d", year, month))
		header = fmt.Sprintf("📅 Смены за %s %d", monthNames[month-1], year)
	}
	if err != nil {
		slog.Error("failed to load shifts", "userID", user.ID, "month", month, "error", err)
		return []domain.Outbound{{Text: utils.EmojiWarning + " Произошла ошибка при загрузке смен.", Inline: backToMonths, Edit: true}}
	}

	if len(shifts) == 0 {
		text := "У тебя пока нет смен."
		if month != 0 {
			text = fmt.Sprintf("У тебя нет смен за %s.", strings.ToLower(monthNames[month-1]))
		}
		return []domain.Outbound{{Text: text, Inline: backToMonths, Edit: true}}
	}

	slices.SortStableFunc(shifts, oldestFirst)

	out := make([]domain.Outbound, 0, len(shifts)+1)
	out = append(out, domain.Outbound{Text: header, Inline: backToMonths, Edit: true})
	for _, s := range shifts {
		out = append(out, domain.Outbound{Text: utils.FormatShift(s), Inline: shiftButtons(s.ID, "✏ Изменить")})
	}
	return out
}

func parseID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

func (b *Bot) handleCallback(ctx context.Context, user *domain.User, data string) []domain.Outbound {
	switch data {
	case callbackMonthAll:
		return b.listShifts(user, 0)
	case callbackBackToMonths:
		return monthPicker(true)
	case callbackRegenerateToken:
		return b.regenerateToken(user)
	case callbackDetailedStats:
		return b.statistics(user, true)
	case callbackLoginCode:
		return b.loginCode(ctx, user)
	}

	if m := monthPattern.FindStringSubmatch(data); m != nil {
		month, _ := strconv.Atoi(m[1])
		if month < 1 || month > 12 {
			return editMessage(utils.EmojiWarning + " Неизвестный месяц.")
		}
		return b.listShifts(user, month)
	}
	if m := deletePattern.FindStringSubmatch(data); m != nil {
		return b.deleteShift(user, parseID(m[1]))
	}
	if m := editPattern.FindStringSubmatch(data); m != nil {
		return b.editMenu(user, parseID(m[1]))
	}
	if m := editFieldPattern.FindStringSubmatch(data); m != nil {
		return b.startEdit(user, parseID(m[1]), m[2])
	}
	if m := cancelEditPattern.FindStringSubmatch(data); m != nil {
		b.clearEdit(user.ID)
		shift, err := b.store.GetShift(user.ID, parseID(m[1]))
		if err != nil {
			return editMessage("Смена не найдена.")
		}
		return editMessage(utils.FormatShift(shift))
	}

	slog.Warn("unknown callback", "userID", user.ID, "data", data)
	return editMessage(utils.EmojiWarning + " Неизвестная команда.")
}

func (b *Bot) deleteShift(user *domain.User, id int64) []domain.Outbound {
	if err := b.store.DeleteShift(user.ID, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("failed to delete shift", "userID", user.ID, "shiftID", id, "error", err)
		}
		return editMessage(utils.EmojiWarning + " Ошибка при удалении смены.")
	}

	slog.Info("shift deleted", "userID", user.ID, "shiftID", id)
	return editMessage(utils.EmojiSuccess + " Смена удалена.")
}

var fieldButtonLabels = map[domain.Field]string{
	domain.FieldDate:      "📅 Дата",
	domain.FieldRole:      utils.EmojiRole + " Роль",
	domain.FieldProgram:   utils.EmojiProgram + " Программа",
	domain.FieldStartTime: "⏰ Время начала",
	domain.FieldEndTime:   utils.EmojiTime + " Время окончания",
	domain.FieldSalary:    utils.EmojiSalary + " Гонорар",
}

func (b *Bot) editMenu(user *domain.User, id int64) []domain.Outbound {
	shift, err := b.store.GetShift(user.ID, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("failed to load shift", "userID", user.ID, "shiftID", id, "error", err)
		}
		return editMessage(utils.EmojiWarning + " Смена не найдена.")
	}

	rows := make([][]domain.InlineButton, 0, len(domain.Fields)+1)
	for _, f := range domain.Fields {
		rows = append(rows, []domain.InlineButton{{Text: fieldButtonLabels[f], Data: fmt.Sprintf("edit_field_%d_%s", id, f)}})
	}
	rows = append(rows, []domain.InlineButton{{Text: conversation.ButtonCancel, Data: fmt.Sprintf("cancel_edit_%d", id)}})

	return []domain.Outbound{{
		Text:   "Что хочешь изменить в смене?\n\n" + utils.FormatShift(shift),
		Inline: rows,
		Edit:   true,
	}}
}

func (b *Bot) startEdit(user *domain.User, id int64, name string) []domain.Outbound {
	field, err := domain.ParseField(name)
	if err != nil {
		return editMessage(utils.EmojiWarning + " Ошибка: не удалось разобрать команду.")
	}

	b.setEdit(user.ID, pendingEdit{shiftID: id, field: field})
	return editMessage(fmt.Sprintf("Введи новое значение для поля «%s»:\n\nВведи «пропустить» чтобы очистить поле.", field.Label()))
}

func inputErrorText(err error) string {
	switch {
	case errors.Is(err, utils.ErrDateOutOfRange):
		return "Дата слишком далеко в прошлом или будущем."
	case errors.Is(err, utils.ErrDateFormat):
		return "Неверный формат даты. Используй ДДММ (например: 1503)."
	case errors.Is(err, utils.ErrInvalidDate):
		return "Неверная дата."
	case errors.Is(err, utils.ErrInvalidTime):
		return "Неверный формат времени. Используй ЧЧММ или ЧЧ:ММ (например: 1830)."
	case errors.Is(err, utils.ErrNegativeAmount):
		return "Гонорар не может быть отрицательным."
	case errors.Is(err, utils.ErrInvalidAmount):
		return "Неверный формат суммы. Введи число в рублях (например: 10000 или 7500)."
	case errors.Is(err, utils.ErrEmptyInput):
		return "Значение не может быть пустым."
	}
	return "Неверное значение."
}

// applyEdit validates text for the pending field. A validation error keeps the edit open so
// the user can retry; a store outcome of either kind closes it.
func (b *Bot) applyEdit(user *domain.User, edit pendingEdit, text string) []domain.Outbound {
	var value any
	if !conversation.IsSkip(text) {
		v, err := utils.NormalizeFieldValue(edit.field, text, b.now())
		if err != nil {
			return []domain.Outbound{{Text: utils.EmojiWarning + " " + inputErrorText(err)}}
		}
		value = v
	}

	b.clearEdit(user.ID)

	if err := b.store.UpdateShiftField(user.ID, edit.shiftID, edit.field, value); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("failed to update shift", "userID", user.ID, "shiftID", edit.shiftID, "field", edit.field, "error", err)
		}
		return reply(utils.EmojiWarning + " Ошибка при обновлении.")
	}

	shift, err := b.store.GetShift(user.ID, edit.shiftID)
	if err != nil {
		return reply(utils.EmojiSuccess + " Поле обновлено!")
	}
	return []domain.Outbound{{
		Text:   utils.EmojiSuccess + " Поле обновлено!\n\n" + utils.FormatShift(shift),
		Inline: shiftButtons(shift.ID, "✏ Изменить еще"),
	}}
}

func (b *Bot) regenerateToken(user *domain.User) []domain.Outbound {
	token := utils.GenerateAPIToken()
	if err := b.store.UpdateAPIToken(user.ID, token); err != nil {
		slog.Error("failed to regenerate api token", "userID", user.ID, "error", err)
		return editMessage(utils.EmojiWarning + " Ошибка при генерации токена.")
	}

	user.APIToken = token
	return editMessage(utils.EmojiSuccess + " Новый API токен сгенерирован:\n\n" + token + "\n\n" + utils.EmojiWarning + " Старый токен больше не работает!")
}

func (b *Bot) loginCode(ctx context.Context, user *domain.User) []domain.Outbound {
	if b.codes == nil {
		return editMessage(utils.EmojiWarning + " Вход по коду сейчас недоступен.")
	}

	code, err := b.codes.IssueLoginCode(ctx, user.ID)
	if err != nil {
		slog.Error("failed to issue login code", "userID", user.ID, "error", err)
		return editMessage(utils.EmojiWarning + " Не удалось создать код. Попробуй позже.")
	}

	minutes := int(b.codes.TTL().Minutes())
	telegramID := ""
	if user.TelegramID != nil {
		telegramID = *user.TelegramID
	}
	return editMessage(fmt.Sprintf("%s Код для входа на сайте: %s\nChat ID для входа: %s\nДействует %d мин.", utils.EmojiLink, code, telegramID, minutes))
}
