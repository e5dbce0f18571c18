package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/utils"
)

// myInfoResponse exposes the api token, which domain.User keeps out of JSON.
type myInfoResponse struct {
	*domain.User
	APIToken string `json:"apiToken"`
}

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	h.successResponse(w, r, "Профиль получен", myInfoResponse{User: myInfo, APIToken: myInfo.APIToken})
}

func (h *Handler) RegenerateAPIToken(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	token := utils.GenerateAPIToken()
	if err := h.repository.UpdateAPIToken(myInfo.ID, token); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "Пользователь не найден")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	myInfo.APIToken = token
	h.successResponse(w, r, "Новый API токен сгенерирован, старый больше не работает", myInfoResponse{User: myInfo, APIToken: token})
}

func (h *Handler) GetMyStatistics(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	stats, err := h.repository.GetUserStatistics(myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Статистика получена", struct {
		*domain.Statistics
		AverageSalary int64 `json:"averageSalary"`
	}{stats, stats.AverageSalary()})
}
