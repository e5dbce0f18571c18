package conversation

import (
	"errors"
	"strings"
	"time"

	"github.com/shift-tracker/backend/internal/config"
	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/utils"
)

const (
	promptDate       = utils.EmojiDate + " Выбери дату смены:"
	promptCustomDate = utils.EmojiInfo + " Введи дату в формате ДД.ММ или ДДММ\nНапример: 15.03 или 1503"
	promptRole       = utils.EmojiRole + " Выбери роль:"
	promptCustomRole = utils.EmojiRole + " Введи название роли:"
	promptProgram    = utils.EmojiProgram + " Выбери программу:"
	promptCustomProg = utils.EmojiProgram + " Введи название программы:"
	promptStartTime  = utils.EmojiTime + " Введи время начала (ЧЧММ или ЧЧ:ММ):\nНапример: 1830 или 18:30"
	promptEndTime    = utils.EmojiTime + " Введи время окончания (ЧЧММ или ЧЧ:ММ):"
	promptSalary     = utils.EmojiSalary + " Введи гонорар в рублях:\nИспользуй цифровую клавиатуру"

	MessageCancelled = utils.EmojiCancel + " Операция отменена."
	MessageSaved     = utils.EmojiSuccess + " Смена успешно добавлена!"
	MessageSaveError = utils.EmojiWarning + " Ошибка при сохранении смены. Попробуйте еще раз."
)

// Machine is the pure transition function of the add-shift dialogue. It performs no I/O;
// persisting a finished draft is left to the caller.
type Machine struct {
	presets config.Presets
	now     func() time.Time
}

func NewMachine(presets config.Presets, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{presets: presets, now: now}
}

func message(text string, keyboard [][]string) domain.Outbound {
	return domain.Outbound{Text: text, Keyboard: keyboard}
}

// Transition applies ev to a conversation in state with the given draft. A start event
// always opens a fresh draft and a cancel event always ends the flow. Terminal states
// ignore everything except start.
func (m *Machine) Transition(state State, draft Draft, ev Event) (State, Draft, []domain.Outbound) {
	switch ev.Kind {
	case EventStart:
		return StateSelectDate, Draft{}, []domain.Outbound{message(promptDate, dateKeyboard)}
	case EventCancel:
		if state == StateStart || state.Terminal() {
			return state, draft, nil
		}
		return StateCancelled, Draft{}, []domain.Outbound{message(MessageCancelled, MainMenuKeyboard)}
	}

	text := strings.TrimSpace(ev.Text)

	switch state {
	case StateSelectDate:
		return m.selectDate(draft, text)
	case StateSelectRole:
		return m.selectRole(draft, text)
	case StateSelectProgram:
		return m.selectProgram(draft, text)
	case StateTypingStartTime, StateTypingEndTime, StateTypingSalary:
		return m.typing(state, draft, text)
	}
	return state, draft, nil
}

func (m *Machine) rolePrompt() domain.Outbound {
	return message(promptRole, choiceKeyboard(m.presets.Roles))
}

func (m *Machine) programPrompt() domain.Outbound {
	return message(promptProgram, choiceKeyboard(m.presets.Programs))
}

func (m *Machine) selectDate(draft Draft, text string) (State, Draft, []domain.Outbound) {
	switch MatchKeyword(text) {
	case KeywordSkip:
		draft.Date = nil
		return StateSelectRole, draft, []domain.Outbound{m.rolePrompt()}
	case KeywordCustom:
		return StateSelectDate, draft, []domain.Outbound{message(promptCustomDate, cancelKeyboard)}
	}

	now := m.now()
	d, ok := utils.ResolveRelativeDate(text, now)
	if !ok {
		var err error
		d, err = utils.ParseDate(text, now)
		if err != nil {
			return StateSelectDate, draft, []domain.Outbound{message(dateErrorText(err), dateKeyboard)}
		}
	}

	draft.Date = &d
	return StateSelectRole, draft, []domain.Outbound{m.rolePrompt()}
}

func dateErrorText(err error) string {
	switch {
	case errors.Is(err, utils.ErrDateOutOfRange):
		return utils.EmojiWarning + " Дата слишком далеко в прошлом или будущем. Попробуй еще раз."
	case errors.Is(err, utils.ErrInvalidDate):
		return utils.EmojiWarning + " Неверная дата. Попробуй еще раз.\nПример: 15.03 или 1503"
	}
	return utils.EmojiWarning + " Введи 4 цифры: день и месяц.\nПример: 1503 для 15 марта"
}

func (m *Machine) selectRole(draft Draft, text string) (State, Draft, []domain.Outbound) {
	switch MatchKeyword(text) {
	case KeywordSkip:
		draft.Role = nil
		return StateSelectProgram, draft, []domain.Outbound{m.programPrompt()}
	case KeywordCustom:
		return StateSelectRole, draft, []domain.Outbound{message(promptCustomRole, skipCancelKeyboard)}
	}
	if text == "" {
		return StateSelectRole, draft, []domain.Outbound{m.rolePrompt()}
	}

	draft.Role = &text
	return StateSelectProgram, draft, []domain.Outbound{m.programPrompt()}
}

func (m *Machine) selectProgram(draft Draft, text string) (State, Draft, []domain.Outbound) {
	switch MatchKeyword(text) {
	case KeywordSkip:
		draft.Program = nil
		return enterTyping(StateTypingStartTime, draft)
	case KeywordCustom:
		return StateSelectProgram, draft, []domain.Outbound{message(promptCustomProg, skipCancelKeyboard)}
	}
	if text == "" {
		return StateSelectProgram, draft, []domain.Outbound{m.programPrompt()}
	}

	draft.Program = &text
	return enterTyping(StateTypingStartTime, draft)
}

var typingFields = map[State]FieldKind{
	StateTypingStartTime: FieldStartTime,
	StateTypingEndTime:   FieldEndTime,
	StateTypingSalary:    FieldSalary,
}

func typingPrompt(state State) domain.Outbound {
	switch state {
	case StateTypingStartTime:
		return message(promptStartTime, timeKeyboard)
	case StateTypingEndTime:
		return message(promptEndTime, timeKeyboard)
	}
	return message(promptSalary, salaryKeyboard)
}

func enterTyping(state State, draft Draft) (State, Draft, []domain.Outbound) {
	draft.Buffer = ""
	draft.CurrentField = typingFields[state]
	return state, draft, []domain.Outbound{typingPrompt(state)}
}

// advance moves past a typing state once its field is stored or skipped.
func advance(state State, draft Draft) (State, Draft, []domain.Outbound) {
	switch state {
	case StateTypingStartTime:
		return enterTyping(StateTypingEndTime, draft)
	case StateTypingEndTime:
		return enterTyping(StateTypingSalary, draft)
	}
	draft.Buffer = ""
	draft.CurrentField = FieldNone
	return StateDone, draft, nil
}

func storeValue(draft Draft, kind FieldKind, v *Value) Draft {
	switch kind {
	case FieldStartTime:
		if v == nil {
			draft.StartTime = nil
		} else {
			t := v.Time
			draft.StartTime = &t
		}
	case FieldEndTime:
		if v == nil {
			draft.EndTime = nil
		} else {
			t := v.Time
			draft.EndTime = &t
		}
	case FieldSalary:
		if v == nil {
			draft.Salary = nil
		} else {
			amount := v.Amount
			draft.Salary = &amount
		}
	}
	return draft
}

func (m *Machine) typing(state State, draft Draft, text string) (State, Draft, []domain.Outbound) {
	kind := typingFields[state]
	c := Collector{Kind: kind, Buffer: draft.Buffer}

	switch MatchKeyword(text) {
	case KeywordSkip:
		c.Skip()
		draft.Buffer = c.Buffer
		return advance(state, storeValue(draft, kind, nil))
	case KeywordConfirm:
		return m.confirm(state, draft, &c)
	case KeywordClear:
		if kind == FieldSalary {
			c.Clear()
			draft.Buffer = c.Buffer
			return state, draft, []domain.Outbound{typingPrompt(state)}
		}
	}

	if text == "" {
		return state, draft, nil
	}

	if c.Append(text) {
		return m.confirm(state, draft, &c)
	}
	draft.Buffer = c.Buffer

	if kind == FieldSalary {
		echo := utils.EmojiSalary + " Текущая сумма: " + c.Buffer + " ₽\nНажми «" + ButtonConfirm + "» для сохранения"
		return state, draft, []domain.Outbound{{Text: echo}}
	}
	return state, draft, nil
}

func (m *Machine) confirm(state State, draft Draft, c *Collector) (State, Draft, []domain.Outbound) {
	v, err := c.Confirm()
	draft.Buffer = c.Buffer
	if err != nil {
		return state, draft, []domain.Outbound{typingError(state, err)}
	}
	return advance(state, storeValue(draft, c.Kind, &v))
}

func typingError(state State, err error) domain.Outbound {
	if state == StateTypingSalary {
		switch {
		case errors.Is(err, utils.ErrEmptyInput):
			return message(utils.EmojiWarning+" Введи сумму или нажми «"+ButtonSkip+"».", salaryKeyboard)
		case errors.Is(err, utils.ErrNegativeAmount):
			return message(utils.EmojiWarning+" Гонорар не может быть отрицательным.\nВведи новую сумму:", salaryKeyboard)
		}
		return message(utils.EmojiWarning+" Неверный формат суммы.\nВведи число:", salaryKeyboard)
	}

	if errors.Is(err, utils.ErrEmptyInput) {
		return message(utils.EmojiWarning+" Введи время или нажми «"+ButtonSkip+"».", timeKeyboard)
	}
	return message(utils.EmojiWarning+" Неправильный формат времени.\nПример: 1830 или 18:30", timeKeyboard)
}
