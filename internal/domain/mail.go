package domain

import (
	"fmt"
	"time"
)

// MailQueue is the durable queue the API publishes to and the mail worker consumes.
const MailQueue = "email_queue"

const (
	MailTypeShiftExport = "shift_export"
	MailTypeWelcome     = "welcome"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type ShiftExportMailData struct {
	FullName   string `json:"fullName"`
	ShiftCount int    `json:"shiftCount"`
	Filename   string `json:"filename"`
	Export     Export `json:"export"`
}

type WelcomeMailData struct {
	FullName string `json:"fullName"`
	APIToken string `json:"apiToken"`
}

// Export is the downloadable snapshot of a user's shifts.
type Export struct {
	UserID     int64         `json:"user_id"`
	ExportDate string        `json:"export_date"`
	Shifts     []ExportShift `json:"shifts"`
}

type ExportShift struct {
	Date      *Date   `json:"date"`
	Role      *string `json:"role"`
	Program   *string `json:"program"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Salary    *int64  `json:"salary"`
}

func NewExport(userID int64, shifts []*Shift, now time.Time) Export {
	export := Export{
		UserID:     userID,
		ExportDate: now.Format(time.RFC3339),
		Shifts:     make([]ExportShift, 0, len(shifts)),
	}
	for _, s := range shifts {
		export.Shifts = append(export.Shifts, ExportShift{
			Date:      s.Date,
			Role:      s.Role,
			Program:   s.Program,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			Salary:    s.Salary,
		})
	}
	return export
}

// ExportFilename names an export file as shifts_<user>_<YYYYMMDD_HHMMSS>.json.
func ExportFilename(userID int64, now time.Time) string {
	return fmt.Sprintf("shifts_%d_%s.json", userID, now.Format("20060102_150405"))
}
