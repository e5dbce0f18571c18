package utils

import (
	"strconv"
	"strings"

	"github.com/shift-tracker/backend/internal/domain"
)

const (
	EmojiDate    = "🗓️"
	EmojiRole    = "🛠️"
	EmojiProgram = "📺"
	EmojiTime    = "⏱️"
	EmojiSalary  = "💰"
	EmojiCancel  = "❌"
	EmojiSuccess = "✅"
	EmojiWarning = "⚠️"
	EmojiInfo    = "ℹ️"
	EmojiUser    = "👤"
	EmojiLink    = "🔗"
)

// EmptyShiftText is shown instead of an empty message when a shift has no fields.
const EmptyShiftText = "Смена без данных"

// FormatAmount groups thousands with spaces: 1234567 -> "1 234 567".
func FormatAmount(n int64) string {
	digits := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

// FormatShift renders the present fields one per line in fixed order.
func FormatShift(s *domain.Shift) string {
	lines := make([]string, 0, 5)

	if s.Date != nil {
		lines = append(lines, EmojiDate+" "+s.Date.Format("02.01.2006"))
	}
	if s.Role != nil && *s.Role != "" {
		lines = append(lines, EmojiRole+" "+*s.Role)
	}
	if s.Program != nil && *s.Program != "" {
		lines = append(lines, EmojiProgram+" "+*s.Program)
	}

	switch {
	case s.StartTime != nil && s.EndTime != nil:
		lines = append(lines, EmojiTime+" "+*s.StartTime+"–"+*s.EndTime)
	case s.StartTime != nil:
		lines = append(lines, EmojiTime+" с "+*s.StartTime)
	case s.EndTime != nil:
		lines = append(lines, EmojiTime+" до "+*s.EndTime)
	}

	if s.Salary != nil {
		lines = append(lines, EmojiSalary+" "+FormatAmount(*s.Salary)+" ₽")
	}

	if len(lines) == 0 {
		return EmptyShiftText
	}
	return strings.Join(lines, "\n")
}
