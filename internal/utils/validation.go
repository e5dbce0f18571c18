package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shift-tracker/backend/internal/domain"
)

// DateWindowDays bounds how far from today a shift date may lie, inclusive on both ends.
const DateWindowDays = 365

var (
	ErrEmptyInput     = errors.New("пустой ввод")
	ErrInvalidTime    = errors.New("неправильный формат времени")
	ErrDateFormat     = errors.New("дата должна состоять из 4 цифр: день и месяц")
	ErrInvalidDate    = errors.New("неверная дата")
	ErrDateOutOfRange = errors.New("дата слишком далеко в прошлом или будущем")
	ErrInvalidAmount  = errors.New("неверный формат суммы")
	ErrNegativeAmount = errors.New("гонорар не может быть отрицательным")
)

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanTimeInput turns loosely typed time into HH:MM without range checks.
// 1 digit is an hour, 2 digits an hour, 3 digits H+MM, 4 digits HH+MM.
func CleanTimeInput(raw string) (string, error) {
	cleaned := digitsOnly(raw)

	switch len(cleaned) {
	case 0:
		return "", ErrEmptyInput
	case 1:
		return "0" + cleaned + ":00", nil
	case 2:
		return cleaned + ":00", nil
	case 3:
		return "0" + cleaned[:1] + ":" + cleaned[1:], nil
	case 4:
		return cleaned[:2] + ":" + cleaned[2:], nil
	}
	return "", ErrInvalidTime
}

// ValidateTime checks an HH:MM string for hour 0-23 and minute 0-59.
func ValidateTime(s string) error {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) == 0 || len(mm) != 2 {
		return ErrInvalidTime
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return ErrInvalidTime
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return ErrInvalidTime
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return ErrInvalidTime
	}
	return nil
}

func ParseTime(raw string) (string, error) {
	t, err := CleanTimeInput(raw)
	if err != nil {
		return "", err
	}
	if err := ValidateTime(t); err != nil {
		return "", err
	}
	return t, nil
}

// ParseDate reads exactly four digits as DDMM in the year of now and checks the date window.
func ParseDate(raw string, now time.Time) (domain.Date, error) {
	cleaned := digitsOnly(raw)
	if len(cleaned) != 4 {
		return domain.Date{}, ErrDateFormat
	}

	day, _ := strconv.Atoi(cleaned[:2])
	month, _ := strconv.Atoi(cleaned[2:])
	if month < 1 || month > 12 || day < 1 {
		return domain.Date{}, ErrInvalidDate
	}

	d := domain.NewDate(now.Year(), time.Month(month), day)
	// time.Date silently rolls 31.02 over into March
	if d.Day() != day || int(d.Month()) != month {
		return domain.Date{}, ErrInvalidDate
	}

	if err := ValidateDate(&d, now); err != nil {
		return domain.Date{}, err
	}
	return d, nil
}

// ValidateDate accepts an absent date and any date within DateWindowDays of today.
func ValidateDate(d *domain.Date, now time.Time) error {
	if d == nil {
		return nil
	}
	today := domain.DateOf(now)
	if d.Before(today.AddDays(-DateWindowDays).Time) || d.After(today.AddDays(DateWindowDays).Time) {
		return ErrDateOutOfRange
	}
	return nil
}

// ParseAmount accepts digits with an optional "." or "," fraction and truncates to roubles.
func ParseAmount(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrEmptyInput
	}
	if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "−") {
		return 0, ErrNegativeAmount
	}

	var b strings.Builder
	for _, r := range trimmed {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ",", ".")
	if cleaned == "" {
		return 0, ErrInvalidAmount
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if value < 0 {
		return 0, ErrNegativeAmount
	}
	if value >= math.MaxInt64 {
		return 0, ErrInvalidAmount
	}
	return int64(value), nil
}

var relativeDays = map[string]int{
	"сегодня":            0,
	"today":              0,
	"завтра":             1,
	"tomorrow":           1,
	"послезавтра":        2,
	"day after tomorrow": 2,
	"вчера":              -1,
	"yesterday":          -1,
}

// ResolveRelativeDate maps today/tomorrow/day-after-tomorrow/yesterday onto a date.
// The keyword must match the whole input.
func ResolveRelativeDate(raw string, now time.Time) (domain.Date, bool) {
	offset, ok := relativeDays[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return domain.Date{}, false
	}
	return domain.DateOf(now).AddDays(offset), true
}

// NormalizeFieldValue validates free text for a single field and returns the typed value
// expected by domain.Shift.Apply.
func NormalizeFieldValue(f domain.Field, raw string, now time.Time) (any, error) {
	switch f {
	case domain.FieldDate:
		if d, ok := ResolveRelativeDate(raw, now); ok {
			return d, nil
		}
		return ParseDate(raw, now)
	case domain.FieldStartTime, domain.FieldEndTime:
		return ParseTime(raw)
	case domain.FieldSalary:
		return ParseAmount(raw)
	case domain.FieldRole, domain.FieldProgram:
		value := strings.TrimSpace(raw)
		if value == "" {
			return nil, ErrEmptyInput
		}
		return value, nil
	}
	return nil, fmt.Errorf("unknown shift field %q", f)
}

// ValidateShift runs the field validators over an already typed shift, as received from the
// web API or a CSV import.
func ValidateShift(s *domain.Shift, now time.Time) error {
	if err := ValidateDate(s.Date, now); err != nil {
		return err
	}
	if s.StartTime != nil {
		if err := ValidateTime(*s.StartTime); err != nil {
			return fmt.Errorf("время начала: %w", err)
		}
	}
	if s.EndTime != nil {
		if err := ValidateTime(*s.EndTime); err != nil {
			return fmt.Errorf("время окончания: %w", err)
		}
	}
	if s.Salary != nil && *s.Salary < 0 {
		return ErrNegativeAmount
	}
	return nil
}
