package conversation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shift-tracker/backend/internal/domain"
)

type memoryShifts struct {
	mu     sync.Mutex
	shifts []*domain.Shift
	err    error
	panics bool
}

func (s *memoryShifts) CreateShift(shift *domain.Shift) error {
	if s.panics {
		panic("store exploded")
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	shift.ID = int64(len(s.shifts) + 1)
	s.shifts = append(s.shifts, shift)
	return nil
}

func feed(m *Manager, userID int64, inputs ...string) []domain.Outbound {
	var out []domain.Outbound
	for _, in := range inputs {
		o, _ := m.Handle(userID, ParseEvent(in))
		out = append(out, o...)
	}
	return out
}

func TestManager_SavesFinishedShift(t *testing.T) {
	store := &memoryShifts{}
	m := NewManager(newTestMachine(), store)

	out := feed(m, 42, "Начать смену", "Сегодня", "EVS", "ЛЧ", "1830", "2100", "10000")

	require.Len(t, store.shifts, 1)
	saved := store.shifts[0]
	assert.Equal(t, int64(42), saved.UserID)
	assert.Equal(t, "EVS", *saved.Role)
	assert.Equal(t, int64(10000), *saved.Salary)

	assert.Equal(t, MessageSaved, lastText(out))
	assert.Contains(t, out[len(out)-2].Text, "10 000 ₽")
	assert.False(t, m.Active(42))
}

func TestManager_SaveFailure(t *testing.T) {
	store := &memoryShifts{err: errors.New("disk full")}
	m := NewManager(newTestMachine(), store)

	out := feed(m, 1, "Начать смену", "Пропустить", "Пропустить", "Пропустить", "Пропустить", "Пропустить", "Пропустить")

	assert.Equal(t, MessageSaveError, lastText(out))
	assert.Equal(t, MainMenuKeyboard, out[len(out)-1].Keyboard)
	assert.False(t, m.Active(1))
}

func TestManager_PanicDropsSession(t *testing.T) {
	store := &memoryShifts{panics: true}
	m := NewManager(newTestMachine(), store)

	out := feed(m, 1, "Начать смену", "Пропустить", "Пропустить", "Пропустить", "Пропустить", "Пропустить", "Пропустить")

	assert.Contains(t, lastText(out), "Произошла ошибка")
	assert.False(t, m.Active(1))

	out = feed(m, 1, "Начать смену")
	assert.True(t, m.Active(1))
	assert.Equal(t, promptDate, lastText(out))
}

func TestManager_UnknownUserNotHandled(t *testing.T) {
	m := NewManager(newTestMachine(), &memoryShifts{})

	out, handled := m.Handle(5, ParseEvent("Пропустить"))
	assert.False(t, handled)
	assert.Empty(t, out)
}

func TestManager_CancelEndsFlow(t *testing.T) {
	store := &memoryShifts{}
	m := NewManager(newTestMachine(), store)

	feed(m, 3, "Начать смену", "Сегодня")
	require.True(t, m.Active(3))

	out := feed(m, 3, "❌ Отмена")
	assert.Equal(t, MessageCancelled, lastText(out))
	assert.False(t, m.Active(3))
	assert.Empty(t, store.shifts)
}

func TestManager_RestartStartsFresh(t *testing.T) {
	m := NewManager(newTestMachine(), &memoryShifts{})

	feed(m, 9, "Начать смену", "Сегодня", "ГРИМ")
	feed(m, 9, "Начать смену")

	state, draft, ok := m.Current(9)
	require.True(t, ok)
	assert.Equal(t, StateSelectDate, state)
	assert.Nil(t, draft.Date)
	assert.Nil(t, draft.Role)
}

func TestManager_UsersAreIndependent(t *testing.T) {
	m := NewManager(newTestMachine(), &memoryShifts{})

	feed(m, 1, "Начать смену", "Сегодня")
	feed(m, 2, "Начать смену")

	s1, _, _ := m.Current(1)
	s2, _, _ := m.Current(2)
	assert.Equal(t, StateSelectRole, s1)
	assert.Equal(t, StateSelectDate, s2)
}

func TestManager_ConcurrentUsers(t *testing.T) {
	store := &memoryShifts{}
	m := NewManager(newTestMachine(), store)

	const users = 50
	var wg sync.WaitGroup
	for i := 1; i <= users; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			feed(m, userID, "Начать смену", "Завтра", fmt.Sprintf("role-%d", userID), "Пропустить", "0800", "1600", "5000")
		}(int64(i))
	}
	wg.Wait()

	require.Len(t, store.shifts, users)
	for _, s := range store.shifts {
		assert.Equal(t, fmt.Sprintf("role-%d", s.UserID), *s.Role)
	}
}

func TestManager_SameUserEventsAreSerialized(t *testing.T) {
	m := NewManager(newTestMachine(), &memoryShifts{})

	for round := range 50 {
		feed(m, 7, "Начать смену", "Сегодня", "EVS", "ЛЧ", "1830", "2100")
		state, _, ok := m.Current(7)
		require.True(t, ok)
		require.Equal(t, StateTypingSalary, state)

		const presses = 8
		start := make(chan struct{})
		var wg sync.WaitGroup
		for range presses {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				m.Handle(7, ParseEvent("5"))
			}()
		}
		close(start)
		wg.Wait()

		_, draft, ok := m.Current(7)
		require.True(t, ok)
		require.Equal(t, strings.Repeat("5", presses), draft.Buffer, "round %d", round)
	}
}
