package conversation

import (
	"github.com/shift-tracker/backend/internal/domain"
)

type State int

const (
	StateStart State = iota
	StateSelectDate
	StateSelectRole
	StateSelectProgram
	StateTypingStartTime
	StateTypingEndTime
	StateTypingSalary
	StateDone
	StateCancelled
)

var stateNames = map[State]string{
	StateStart:           "START",
	StateSelectDate:      "SELECT_DATE",
	StateSelectRole:      "SELECT_ROLE",
	StateSelectProgram:   "SELECT_PROGRAM",
	StateTypingStartTime: "TYPING_START_TIME",
	StateTypingEndTime:   "TYPING_END_TIME",
	StateTypingSalary:    "TYPING_SALARY",
	StateDone:            "DONE",
	StateCancelled:       "CANCELLED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether no further input is accepted in s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

type EventKind int

const (
	EventText EventKind = iota
	EventStart
	EventCancel
)

type Event struct {
	Kind EventKind
	Text string
}

// ParseEvent classifies raw chat text into a flow-level signal or a plain text token.
func ParseEvent(text string) Event {
	switch MatchKeyword(text) {
	case KeywordStart:
		return Event{Kind: EventStart, Text: text}
	case KeywordCancel:
		return Event{Kind: EventCancel, Text: text}
	}
	return Event{Kind: EventText, Text: text}
}

// Draft is the in-progress shift of one conversation. Pointer fields are never mutated in
// place, so copying a Draft by value is safe.
type Draft struct {
	Date      *domain.Date
	Role      *string
	Program   *string
	StartTime *string
	EndTime   *string
	Salary    *int64

	Buffer       string
	CurrentField FieldKind
}

// Shift converts the collected fields into a record owned by userID.
func (d Draft) Shift(userID int64) *domain.Shift {
	return &domain.Shift{
		UserID:    userID,
		Date:      d.Date,
		Role:      d.Role,
		Program:   d.Program,
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
		Salary:    d.Salary,
	}
}
