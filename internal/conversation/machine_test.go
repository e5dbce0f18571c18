package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shift-tracker/backend/internal/config"
	"github.com/shift-tracker/backend/internal/domain"
)

var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestMachine() *Machine {
	return NewMachine(config.DefaultPresets(), func() time.Time { return fixedNow })
}

type run struct {
	m     *Machine
	state State
	draft Draft
	out   []domain.Outbound
}

func startRun(t *testing.T) *run {
	t.Helper()
	r := &run{m: newTestMachine()}
	r.send(t, Event{Kind: EventStart})
	require.Equal(t, StateSelectDate, r.state)
	return r
}

func (r *run) send(t *testing.T, ev Event) {
	t.Helper()
	r.state, r.draft, r.out = r.m.Transition(r.state, r.draft, ev)
}

func (r *run) text(t *testing.T, inputs ...string) {
	t.Helper()
	for _, in := range inputs {
		r.send(t, ParseEvent(in))
	}
}

func lastText(out []domain.Outbound) string {
	if len(out) == 0 {
		return ""
	}
	return out[len(out)-1].Text
}

func TestTransition_FullFlow(t *testing.T) {
	r := startRun(t)

	r.text(t, "Сегодня")
	assert.Equal(t, StateSelectRole, r.state)
	require.NotNil(t, r.draft.Date)
	assert.Equal(t, "2024-03-10", r.draft.Date.String())

	r.text(t, "ОПЕРАТОР")
	assert.Equal(t, StateSelectProgram, r.state)

	r.text(t, "РПЛ")
	assert.Equal(t, StateTypingStartTime, r.state)
	assert.Equal(t, FieldStartTime, r.draft.CurrentField)

	r.text(t, "1", "8", "3", "0")
	assert.Equal(t, StateTypingEndTime, r.state)
	require.NotNil(t, r.draft.StartTime)
	assert.Equal(t, "18:30", *r.draft.StartTime)

	r.text(t, "21:00")
	assert.Equal(t, StateTypingSalary, r.state)

	r.text(t, "10000")
	assert.Equal(t, StateDone, r.state)

	shift := r.draft.Shift(7)
	assert.Equal(t, int64(7), shift.UserID)
	assert.Equal(t, "ОПЕРАТОР", *shift.Role)
	assert.Equal(t, "РПЛ", *shift.Program)
	assert.Equal(t, "21:00", *shift.EndTime)
	assert.Equal(t, int64(10000), *shift.Salary)
}

func TestTransition_LiteralSequences(t *testing.T) {
	str := func(s string) *string { return &s }
	amount := func(v int64) *int64 { return &v }
	date := func(month time.Month, day int) *domain.Date {
		d := domain.NewDate(2024, month, day)
		return &d
	}

	tests := []struct {
		name   string
		inputs []string
		want   domain.Shift
	}{
		{
			name:   "english today with full values",
			inputs: []string{"today", "РЕЖ", "ЛЧ", "1830", "2100", "10000"},
			want: domain.Shift{
				UserID:    1,
				Date:      date(time.March, 10),
				Role:      str("РЕЖ"),
				Program:   str("ЛЧ"),
				StartTime: str("18:30"),
				EndTime:   str("21:00"),
				Salary:    amount(10000),
			},
		},
		{
			name:   "ddmm date then skip the rest",
			inputs: []string{"1503", "skip", "skip", "skip", "skip", "skip"},
			want: domain.Shift{
				UserID: 1,
				Date:   date(time.March, 15),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := startRun(t)
			r.text(t, tt.inputs...)

			require.Equal(t, StateDone, r.state)
			assert.Equal(t, &tt.want, r.draft.Shift(1))
		})
	}
}

func TestTransition_SkipEverything(t *testing.T) {
	r := startRun(t)

	r.text(t, "Пропустить", "пропустить", "Skip", "Пропустить", "Пропустить", "Пропустить")

	assert.Equal(t, StateDone, r.state)
	assert.True(t, r.draft.Shift(1).IsEmpty())
}

func TestTransition_CancelFromEveryState(t *testing.T) {
	prefixes := map[State][]string{
		StateSelectDate:      nil,
		StateSelectRole:      {"Завтра"},
		StateSelectProgram:   {"Завтра", "ГРИМ"},
		StateTypingStartTime: {"Завтра", "ГРИМ", "ЛК"},
		StateTypingEndTime:   {"Завтра", "ГРИМ", "ЛК", "1830"},
		StateTypingSalary:    {"Завтра", "ГРИМ", "ЛК", "1830", "2100", "5"},
	}

	for want, inputs := range prefixes {
		t.Run(want.String(), func(t *testing.T) {
			r := startRun(t)
			r.text(t, inputs...)
			require.Equal(t, want, r.state)

			r.text(t, "❌ Отмена")
			assert.Equal(t, StateCancelled, r.state)
			assert.Equal(t, MessageCancelled, lastText(r.out))
			assert.Equal(t, MainMenuKeyboard, r.out[0].Keyboard)
			assert.Nil(t, r.draft.Date)
		})
	}
}

func TestTransition_InvalidTimeKeepsState(t *testing.T) {
	r := startRun(t)
	r.text(t, "Пропустить", "Пропустить", "Пропустить")
	require.Equal(t, StateTypingStartTime, r.state)

	r.text(t, "9", "9", "Подтвердить")
	assert.Equal(t, StateTypingStartTime, r.state)
	assert.Empty(t, r.draft.Buffer)
	assert.Nil(t, r.draft.StartTime)
	assert.Contains(t, lastText(r.out), "Неправильный формат времени")

	r.text(t, "0930")
	assert.Equal(t, StateTypingEndTime, r.state)
	assert.Equal(t, "09:30", *r.draft.StartTime)
}

func TestTransition_NegativeSalaryThenValid(t *testing.T) {
	r := startRun(t)
	r.text(t, "Пропустить", "Пропустить", "Пропустить", "Пропустить", "Пропустить")
	require.Equal(t, StateTypingSalary, r.state)

	r.text(t, "-50")
	assert.Equal(t, StateTypingSalary, r.state)
	assert.Contains(t, lastText(r.out), "не может быть отрицательным")

	r.text(t, "7", "5", "0", "0")
	assert.Equal(t, StateTypingSalary, r.state)
	assert.Contains(t, lastText(r.out), "7500")

	r.text(t, "Подтвердить")
	assert.Equal(t, StateDone, r.state)
	assert.Equal(t, int64(7500), *r.draft.Salary)
}

func TestTransition_SalaryClear(t *testing.T) {
	r := startRun(t)
	r.text(t, "Пропустить", "Пропустить", "Пропустить", "Пропустить", "Пропустить")

	r.text(t, "9", "9", "Очистить", "5", "Подтвердить")
	assert.Equal(t, StateDone, r.state)
	assert.Equal(t, int64(5), *r.draft.Salary)
}

func TestTransition_ConfirmEmptyBuffer(t *testing.T) {
	r := startRun(t)
	r.text(t, "Пропустить", "Пропустить", "Пропустить")

	r.text(t, "Подтвердить")
	assert.Equal(t, StateTypingStartTime, r.state)
	assert.Contains(t, lastText(r.out), "Пропустить")
}

func TestTransition_RelativeAndCustomDates(t *testing.T) {
	r := startRun(t)
	r.text(t, "Послезавтра")
	assert.Equal(t, "2024-03-12", r.draft.Date.String())

	r = startRun(t)
	r.text(t, "Вчера")
	assert.Equal(t, "2024-03-09", r.draft.Date.String())

	r = startRun(t)
	r.text(t, "Своя дата")
	assert.Equal(t, StateSelectDate, r.state)
	r.text(t, "15.03")
	assert.Equal(t, StateSelectRole, r.state)
	assert.Equal(t, "2024-03-15", r.draft.Date.String())
}

func TestTransition_InvalidDates(t *testing.T) {
	r := startRun(t)

	r.text(t, "3102")
	assert.Equal(t, StateSelectDate, r.state)
	assert.Contains(t, lastText(r.out), "Неверная дата")

	r.text(t, "12")
	assert.Equal(t, StateSelectDate, r.state)
	assert.Contains(t, lastText(r.out), "4 цифры")
	assert.Nil(t, r.draft.Date)
}

func TestTransition_CustomRole(t *testing.T) {
	r := startRun(t)
	r.text(t, "Пропустить", "СВОЙ ВАРИАНТ")
	assert.Equal(t, StateSelectRole, r.state)

	r.text(t, "  Звукорежиссер ")
	assert.Equal(t, StateSelectProgram, r.state)
	assert.Equal(t, "Звукорежиссер", *r.draft.Role)
}

func TestTransition_RestartDiscardsDraft(t *testing.T) {
	r := startRun(t)
	r.text(t, "Сегодня", "ЭКРАНЫ")
	require.NotNil(t, r.draft.Role)

	r.send(t, Event{Kind: EventStart})
	assert.Equal(t, StateSelectDate, r.state)
	assert.Nil(t, r.draft.Date)
	assert.Nil(t, r.draft.Role)
}

func TestTransition_RoleKeyboardFromPresets(t *testing.T) {
	r := startRun(t)
	r.text(t, "Сегодня")

	kb := r.out[0].Keyboard
	require.Len(t, kb, 5)
	assert.Equal(t, []string{"РЕЖ", "ЭКРАНЫ", "EVS"}, kb[0])
	assert.Equal(t, []string{ButtonCustomValue}, kb[3])
	assert.Equal(t, []string{ButtonSkip, ButtonCancel}, kb[4])
}

func TestTransition_TerminalIgnoresInput(t *testing.T) {
	m := newTestMachine()

	state, _, out := m.Transition(StateDone, Draft{}, ParseEvent("hello"))
	assert.Equal(t, StateDone, state)
	assert.Empty(t, out)

	state, _, out = m.Transition(StateCancelled, Draft{}, ParseEvent("❌"))
	assert.Equal(t, StateCancelled, state)
	assert.Empty(t, out)
}

func TestParseEvent(t *testing.T) {
	assert.Equal(t, EventStart, ParseEvent("Начать смену").Kind)
	assert.Equal(t, EventCancel, ParseEvent("❌ Отмена").Kind)
	assert.Equal(t, EventCancel, ParseEvent("/cancel").Kind)
	assert.Equal(t, EventText, ParseEvent("РПЛ").Kind)
	assert.Equal(t, KeywordSkip, MatchKeyword("  ПРОПУСТИТЬ "))
	assert.Equal(t, KeywordCustom, MatchKeyword("своя дата"))
}
