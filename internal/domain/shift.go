package domain

import (
	"fmt"
	"time"
)

type Shift struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Date      *Date     `json:"date"`
	Role      *string   `json:"role"`
	Program   *string   `json:"program"`
	StartTime *string   `json:"startTime"`
	EndTime   *string   `json:"endTime"`
	Salary    *int64    `json:"salary"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsEmpty reports whether none of the user-entered fields is present.
func (s *Shift) IsEmpty() bool {
	return s.Date == nil && s.Role == nil && s.Program == nil && s.StartTime == nil && s.EndTime == nil && s.Salary == nil
}

// Field is the closed set of shift attributes that can be edited one at a time.
type Field string

const (
	FieldDate      Field = "date"
	FieldRole      Field = "role"
	FieldProgram   Field = "program"
	FieldStartTime Field = "start_time"
	FieldEndTime   Field = "end_time"
	FieldSalary    Field = "salary"
)

// Fields lists every Field in display order.
var Fields = []Field{FieldDate, FieldRole, FieldProgram, FieldStartTime, FieldEndTime, FieldSalary}

func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown shift field %q", name)
}

// Label is the Russian name of the field used in prompts.
func (f Field) Label() string {
	switch f {
	case FieldDate:
		return "дату (формат ДДММ, например: 1503)"
	case FieldRole:
		return "роль"
	case FieldProgram:
		return "программу"
	case FieldStartTime:
		return "время начала (формат ЧЧММ, например: 1830)"
	case FieldEndTime:
		return "время окончания (формат ЧЧММ, например: 2100)"
	case FieldSalary:
		return "гонорар в рублях (например: 10000 или 7500)"
	}
	return string(f)
}

// Apply sets the field on s. value must be nil (clears the field) or the field's typed value:
// Date for date, int64 for salary, string otherwise.
func (s *Shift) Apply(f Field, value any) error {
	if value == nil {
		switch f {
		case FieldDate:
			s.Date = nil
		case FieldRole:
			s.Role = nil
		case FieldProgram:
			s.Program = nil
		case FieldStartTime:
			s.StartTime = nil
		case FieldEndTime:
			s.EndTime = nil
		case FieldSalary:
			s.Salary = nil
		default:
			return fmt.Errorf("unknown shift field %q", f)
		}
		return nil
	}

	switch f {
	case FieldDate:
		d, ok := value.(Date)
		if !ok {
			return fmt.Errorf("field %s expects a date, got %T", f, value)
		}
		s.Date = &d
	case FieldSalary:
		n, ok := value.(int64)
		if !ok {
			return fmt.Errorf("field %s expects an integer, got %T", f, value)
		}
		s.Salary = &n
	case FieldRole, FieldProgram, FieldStartTime, FieldEndTime:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %s expects a string, got %T", f, value)
		}
		switch f {
		case FieldRole:
			s.Role = &str
		case FieldProgram:
			s.Program = &str
		case FieldStartTime:
			s.StartTime = &str
		default:
			s.EndTime = &str
		}
	default:
		return fmt.Errorf("unknown shift field %q", f)
	}
	return nil
}

type MonthlyStatistics struct {
	Month  string `json:"month"` // YYYY-MM
	Count  int64  `json:"count"`
	Salary int64  `json:"salary"`
}

type Statistics struct {
	TotalShifts  int64               `json:"totalShifts"`
	TotalSalary  int64               `json:"totalSalary"`
	MonthlyStats []MonthlyStatistics `json:"monthlyStats"`
}

// AverageSalary is the integer mean per shift; zero when there are no shifts.
func (s *Statistics) AverageSalary() int64 {
	if s.TotalShifts == 0 {
		return 0
	}
	return s.TotalSalary / s.TotalShifts
}

// CalendarEvent is the read-only view of a dated shift published through the calendar link.
type CalendarEvent struct {
	Date   Date    `json:"date"`
	Title  string  `json:"title"`
	Role   *string `json:"role"`
	Time   string  `json:"time,omitempty"` // HH:MM-HH:MM when both ends are known
	Salary *int64  `json:"salary"`
}

// CalendarEvents keeps only dated shifts, ordered as given.
func CalendarEvents(shifts []*Shift) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(shifts))
	for _, s := range shifts {
		if s.Date == nil {
			continue
		}
		e := CalendarEvent{
			Date:   *s.Date,
			Title:  "Смена",
			Role:   s.Role,
			Salary: s.Salary,
		}
		if s.Program != nil {
			e.Title = *s.Program
		}
		if s.StartTime != nil && s.EndTime != nil {
			e.Time = *s.StartTime + "-" + *s.EndTime
		}
		events = append(events, e)
	}
	return events
}
