package seed

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shift-tracker/backend/internal/config"
	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/repository"
	"github.com/shift-tracker/backend/internal/utils"
)

// Header is the column set an import file must carry, in any order.
var Header = []string{"date", "role", "program", "start_time", "end_time", "salary"}

// RowError describes a CSV row that was skipped. Line counts the header as line 1.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

// EnsureChatUser finds the user behind a chat identifier or registers a fresh one.
func EnsureChatUser(r *repository.Repository, telegramID string) (*domain.User, error) {
	user, err := r.GetUserByTelegramID(telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	user = &domain.User{
		TelegramID: &telegramID,
		APIToken:   utils.GenerateAPIToken(),
	}
	if err := r.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func parseCell(f domain.Field, raw string, now time.Time) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if f == domain.FieldDate {
		if d, err := domain.ParseISODate(raw); err == nil {
			if err := utils.ValidateDate(&d, now); err != nil {
				return nil, err
			}
			return d, nil
		}
	}
	return utils.NormalizeFieldValue(f, raw, now)
}

// ReadShiftsCSV parses an export-style CSV. Each cell is normalized like chat input, so "1830"
// and "15.03" are accepted. Rows that fail are reported and left out.
func ReadShiftsCSV(in io.Reader, userID int64, now time.Time) ([]*domain.Shift, []RowError, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[domain.Field]int, len(headers))
	for i, h := range headers {
		f, err := domain.ParseField(strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))))
		if err != nil {
			return nil, nil, fmt.Errorf("header: %w", err)
		}
		columns[f] = i
	}
	for _, name := range Header {
		if _, ok := columns[domain.Field(name)]; !ok {
			return nil, nil, fmt.Errorf("header: missing column %q", name)
		}
	}

	var (
		shifts  []*domain.Shift
		skipped []RowError
	)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Err: err})
			continue
		}

		shift := &domain.Shift{UserID: userID}
		var rowErr error
		for _, f := range domain.Fields {
			i := columns[f]
			if i >= len(row) {
				continue
			}
			value, err := parseCell(f, row[i], now)
			if err != nil {
				rowErr = fmt.Errorf("%s: %w", f, err)
				break
			}
			if err := shift.Apply(f, value); err != nil {
				rowErr = err
				break
			}
		}
		if rowErr != nil {
			skipped = append(skipped, RowError{Line: line, Err: rowErr})
			continue
		}
		shifts = append(shifts, shift)
	}

	return shifts, skipped, nil
}

// ImportCSV reads the file and stores every valid row in one transaction.
func ImportCSV(r *repository.Repository, in io.Reader, userID int64, now time.Time) (int, error) {
	shifts, skipped, err := ReadShiftsCSV(in, userID, now)
	if err != nil {
		return 0, err
	}
	for _, e := range skipped {
		slog.Warn("skipping csv row", "line", e.Line, "error", e.Err)
	}
	if len(shifts) == 0 {
		return 0, nil
	}

	if err := r.ImportShifts(shifts); err != nil {
		return 0, err
	}
	return len(shifts), nil
}

// SeedRandomShifts inserts n generated shifts built from the preset labels.
func SeedRandomShifts(r *repository.Repository, userID int64, n int, presets config.Presets, now time.Time) error {
	roles := config.Flatten(presets.Roles)
	programs := config.Flatten(presets.Programs)

	shifts := make([]*domain.Shift, 0, n)
	for range n {
		shifts = append(shifts, utils.GenerateRandomShift(userID, roles, programs, now))
	}
	return r.ImportShifts(shifts)
}
