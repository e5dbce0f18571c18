package conversation

import (
	"strings"

	"github.com/shift-tracker/backend/internal/utils"
)

// FieldKind names the field a Collector is buffering.
type FieldKind int

const (
	FieldNone FieldKind = iota
	FieldStartTime
	FieldEndTime
	FieldSalary
)

func (k FieldKind) String() string {
	switch k {
	case FieldStartTime:
		return "start_time"
	case FieldEndTime:
		return "end_time"
	case FieldSalary:
		return "salary"
	}
	return "none"
}

// Value is a confirmed collector result; Time is set for time fields, Amount for salary.
type Value struct {
	Time   string
	Amount int64
}

// Collector accumulates keypad presses for the time and salary fields.
type Collector struct {
	Kind   FieldKind
	Buffer string
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func isKeypadKey(s string) bool {
	return len(s) == 1 && (s[0] >= '0' && s[0] <= '9' || s[0] == '.')
}

// Append adds input to the buffer and reports whether the value is complete and should be
// confirmed right away. Time fields complete at four digits. For salary a single keypad key
// is buffered while a longer message is taken as the whole amount.
func (c *Collector) Append(input string) bool {
	input = strings.TrimSpace(input)

	if c.Kind == FieldSalary {
		if isKeypadKey(input) {
			c.Buffer += input
			return false
		}
		c.Buffer = input
		return true
	}

	c.Buffer += input
	return countDigits(c.Buffer) >= 4
}

// Confirm parses the buffer. The buffer is cleared whatever the outcome.
func (c *Collector) Confirm() (Value, error) {
	raw := c.Buffer
	c.Buffer = ""

	if strings.TrimSpace(raw) == "" {
		return Value{}, utils.ErrEmptyInput
	}

	switch c.Kind {
	case FieldStartTime, FieldEndTime:
		t, err := utils.ParseTime(raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Time: t}, nil
	case FieldSalary:
		amount, err := utils.ParseAmount(raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Amount: amount}, nil
	}
	return Value{}, utils.ErrEmptyInput
}

func (c *Collector) Skip() {
	c.Buffer = ""
}

func (c *Collector) Clear() {
	c.Buffer = ""
}
