package conversation

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/utils"
)

// ShiftCreator persists a finished shift, filling in its ID and creation time.
type ShiftCreator interface {
	CreateShift(shift *domain.Shift) error
}

type session struct {
	mu    sync.Mutex
	state State
	draft Draft
}

// Manager keeps one conversation per chat user. Events of one user are processed in
// arrival order; different users never block each other beyond a map lookup.
type Manager struct {
	machine *Machine
	shifts  ShiftCreator

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewManager(machine *Machine, shifts ShiftCreator) *Manager {
	return &Manager{
		machine:  machine,
		shifts:   shifts,
		sessions: make(map[int64]*session),
	}
}

func (m *Manager) lookup(userID int64) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

func (m *Manager) isCurrent(userID int64, s *session) bool {
	return m.lookup(userID) == s
}

func (m *Manager) drop(userID int64, s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[userID] == s {
		delete(m.sessions, userID)
	}
}

// Active reports whether userID has an unfinished add-shift flow.
func (m *Manager) Active(userID int64) bool {
	return m.lookup(userID) != nil
}

// Current returns the state and draft of the user's flow, if any.
func (m *Manager) Current(userID int64) (State, Draft, bool) {
	s := m.lookup(userID)
	if s == nil {
		return StateStart, Draft{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.draft, true
}

// Handle feeds ev into the user's flow. A start event replaces any existing flow. handled is
// false when the user has no flow and ev is not a start, so the caller can route the message
// elsewhere.
func (m *Manager) Handle(userID int64, ev Event) (out []domain.Outbound, handled bool) {
	if ev.Kind == EventStart {
		s := &session{state: StateStart}
		s.mu.Lock()
		defer s.mu.Unlock()

		m.mu.Lock()
		m.sessions[userID] = s
		m.mu.Unlock()

		return m.step(userID, s, ev), true
	}

	s := m.lookup(userID)
	if s == nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// replaced by a newer start while waiting for the lock
	if !m.isCurrent(userID, s) {
		return nil, false
	}
	return m.step(userID, s, ev), true
}

func (m *Manager) step(userID int64, s *session, ev Event) (out []domain.Outbound) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("conversation step panicked", "userID", userID, "state", s.state, "panic", r, "stack", string(debug.Stack()))
			m.drop(userID, s)
			out = []domain.Outbound{message(utils.EmojiWarning+" Произошла ошибка. Начни заново.", MainMenuKeyboard)}
		}
	}()

	next, draft, out := m.machine.Transition(s.state, s.draft, ev)
	s.state, s.draft = next, draft

	switch next {
	case StateCancelled:
		m.drop(userID, s)
	case StateDone:
		m.drop(userID, s)
		out = append(out, m.commit(userID, draft)...)
	}
	return out
}

func (m *Manager) commit(userID int64, draft Draft) []domain.Outbound {
	shift := draft.Shift(userID)
	if err := m.shifts.CreateShift(shift); err != nil {
		slog.Error("failed to save shift", "userID", userID, "error", err)
		return []domain.Outbound{message(MessageSaveError, MainMenuKeyboard)}
	}

	slog.Info("shift saved", "userID", userID, "shiftID", shift.ID, "empty", shift.IsEmpty())
	return []domain.Outbound{
		{Text: utils.FormatShift(shift)},
		message(MessageSaved, MainMenuKeyboard),
	}
}
