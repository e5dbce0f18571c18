package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/utils"
)

var monthParam = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// patchKeys maps the JSON keys of a shift onto editable fields, in canonical order.
var patchKeys = []struct {
	key   string
	field domain.Field
}{
	{"date", domain.FieldDate},
	{"role", domain.FieldRole},
	{"program", domain.FieldProgram},
	{"startTime", domain.FieldStartTime},
	{"endTime", domain.FieldEndTime},
	{"salary", domain.FieldSalary},
}

func (h *Handler) GetMyShifts(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var (
		shifts []*domain.Shift
		err    error
	)
	if month := r.URL.Query().Get("month"); month != "" {
		if !monthParam.MatchString(month) {
			h.errorResponse(w, r, "Месяц должен быть в формате ГГГГ-ММ")
			return
		}
		shifts, err = h.repository.GetShiftsByMonth(myInfo.ID, month)
	} else {
		shifts, err = h.repository.GetShiftsByUser(myInfo.ID)
	}
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Смены получены", shifts)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		Date      *domain.Date `json:"date"`
		Role      *string      `json:"role" validate:"omitempty,max=100"`
		Program   *string      `json:"program" validate:"omitempty,max=100"`
		StartTime *string      `json:"startTime"`
		EndTime   *string      `json:"endTime"`
		Salary    *int64       `json:"salary" validate:"omitempty,min=0"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shift := &domain.Shift{
		UserID:  myInfo.ID,
		Date:    req.Date,
		Role:    trimmed(req.Role),
		Program: trimmed(req.Program),
		Salary:  req.Salary,
	}

	// times are as forgiving as in the chat: "1830" becomes "18:30"
	for _, t := range []struct {
		in  *string
		out **string
	}{{req.StartTime, &shift.StartTime}, {req.EndTime, &shift.EndTime}} {
		if v := trimmed(t.in); v != nil {
			parsed, err := utils.ParseTime(*v)
			if err != nil {
				h.errorResponse(w, r, "Неверный формат времени: "+*v)
				return
			}
			*t.out = &parsed
		}
	}

	if err := utils.ValidateShift(shift, time.Now()); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	if err := h.repository.CreateShift(shift); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	slog.Info("shift created", "userID", myInfo.ID, "shiftID", shift.ID, "empty", shift.IsEmpty())
	h.successResponse(w, r, "Смена добавлена", shift)
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)
	h.successResponse(w, r, "Смена получена", shift)
}

// decodeFieldValue turns one JSON value of a PATCH body into the typed value for f. JSON null
// and empty strings clear the field.
func decodeFieldValue(f domain.Field, raw json.RawMessage, now time.Time) (any, error) {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if f == domain.FieldSalary && len(raw) > 0 && raw[0] != '"' {
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, utils.ErrInvalidAmount
		}
		return utils.ParseAmount(fmt.Sprintf("%.2f", n))
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("ожидается строка")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if f == domain.FieldDate {
		if d, err := domain.ParseISODate(s); err == nil {
			if err := utils.ValidateDate(&d, now); err != nil {
				return nil, err
			}
			return d, nil
		}
	}
	return utils.NormalizeFieldValue(f, s, now)
}

// UpdateShift applies the given fields one by one in canonical order. The first failing field
// is reported by name; fields applied before it stay applied.
func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	var req map[string]json.RawMessage
	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	known := make(map[string]bool, len(patchKeys))
	for _, pk := range patchKeys {
		known[pk.key] = true
	}
	for key := range req {
		if !known[key] {
			h.errorResponse(w, r, fmt.Sprintf("Неизвестное поле: %s", key))
			return
		}
	}

	now := time.Now()
	for _, pk := range patchKeys {
		raw, ok := req[pk.key]
		if !ok {
			continue
		}

		value, err := decodeFieldValue(pk.field, raw, now)
		if err != nil {
			h.errorResponse(w, r, fmt.Sprintf("Поле %s: %s", pk.key, err))
			return
		}

		if err := h.repository.UpdateShiftField(myInfo.ID, shift.ID, pk.field, value); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.errorResponse(w, r, fmt.Sprintf("Поле %s: смена не найдена", pk.key))
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
	}

	updated, err := h.repository.GetShift(myInfo.ID, shift.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Смена обновлена", updated)
}

func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	if err := h.repository.DeleteShift(myInfo.ID, shift.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "Смена не найдена")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "Смена удалена", nil)
}

func (h *Handler) ExportShifts(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	shifts, err := h.repository.GetShiftsByUser(myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	now := time.Now()
	h.writeAttachment(w, r, domain.ExportFilename(myInfo.ID, now), domain.NewExport(myInfo.ID, shifts, now))
}

// EmailShiftExport queues the export for the mail worker, which sends it as an attachment.
func (h *Handler) EmailShiftExport(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	if myInfo.Email == nil || *myInfo.Email == "" {
		h.errorResponse(w, r, "В профиле не указан email")
		return
	}
	if h.mailChannel == nil {
		h.errorResponse(w, r, "Отправка почты недоступна")
		return
	}

	shifts, err := h.repository.GetShiftsByUser(myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(shifts) == 0 {
		h.errorResponse(w, r, "Нет смен для экспорта")
		return
	}

	now := time.Now()
	msg := domain.MailMessage{
		Type: domain.MailTypeShiftExport,
		To:   *myInfo.Email,
		Data: domain.ShiftExportMailData{
			FullName:   myInfo.DisplayName(),
			ShiftCount: len(shifts),
			Filename:   domain.ExportFilename(myInfo.ID, now),
			Export:     domain.NewExport(myInfo.ID, shifts, now),
		},
	}
	if err := h.publishMail(msg); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Экспорт будет отправлен на "+*myInfo.Email, nil)
}
