package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/otp"
	"github.com/shift-tracker/backend/internal/repository"
	"github.com/shift-tracker/backend/internal/utils"
)

const sessionCookieName = "__shift_tracker_token"

// startSession signs a JWT for user and hands it back as an http-only cookie.
func (h *Handler) startSession(w http.ResponseWriter, user *domain.User) error {
	expiration := time.Now().Add(time.Duration(h.config.JWT.Expiration) * time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiration),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		NotBefore: jwt.NewNumericDate(time.Now()),
		Subject:   strconv.FormatInt(user.ID, 10),
	})
	ss, err := token.SignedString([]byte(h.config.JWT.Secret))
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    ss,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)
	return nil
}

// publishMail queues a message for the mail worker.
func (h *Handler) publishMail(msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return h.mailChannel.PublishWithContext(
		ctx,
		"",
		domain.MailQueue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6,max=72"`
		FullName string `json:"fullName" validate:"max=100"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	hash := string(passwordHash)
	user := &domain.User{
		Email:        &email,
		PasswordHash: &hash,
		APIToken:     utils.GenerateAPIToken(),
	}
	if fullName := strings.TrimSpace(req.FullName); fullName != "" {
		user.FullName = &fullName
	}

	if err := h.repository.CreateUser(user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			h.errorResponse(w, r, "Пользователь с таким email уже существует")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// the account exists either way, a lost welcome mail is only logged
	if h.mailChannel != nil {
		welcome := domain.MailMessage{
			Type: domain.MailTypeWelcome,
			To:   email,
			Data: domain.WelcomeMailData{FullName: user.DisplayName(), APIToken: user.APIToken},
		}
		if err := h.publishMail(welcome); err != nil {
			slog.Error("failed to queue welcome mail", "userID", user.ID, "error", err)
		}
	}

	if err := h.startSession(w, user); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Регистрация прошла успешно", user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIToken string `json:"apiToken" validate:"required_without=Email"`
		Email    string `json:"email" validate:"omitempty,email"`
		Password string `json:"password" validate:"required_with=Email"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	var (
		user *domain.User
		err  error
	)
	if req.APIToken != "" {
		user, err = h.repository.GetUserByAPIToken(req.APIToken)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.errorResponse(w, r, "Неверный API токен")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
	} else {
		user, err = h.repository.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.errorResponse(w, r, "Неверный email или пароль")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		if user.PasswordHash == nil || !user.IsActive {
			h.errorResponse(w, r, "Неверный email или пароль")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
			switch {
			case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
				h.errorResponse(w, r, "Неверный email или пароль")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
	}

	if err := h.startSession(w, user); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Вход выполнен", user)
}

// LoginWithCode signs in with a one-time code requested from the chat profile. The code is only
// checked against the account named by telegramId.
func (h *Handler) LoginWithCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TelegramID string `json:"telegramId" validate:"required,max=64"`
		Code       string `json:"code" validate:"required,len=6,numeric"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if h.loginCodes == nil {
		h.errorResponse(w, r, "Вход по коду недоступен")
		return
	}

	user, err := h.repository.GetUserByTelegramID(req.TelegramID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "Неверный или истекший код")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	if err := h.loginCodes.ConsumeLoginCode(ctx, user.ID, req.Code); err != nil {
		switch {
		case errors.Is(err, otp.ErrCodeNotFound):
			h.errorResponse(w, r, "Неверный или истекший код")
		case errors.Is(err, otp.ErrTooManyAttempts):
			h.errorResponse(w, r, "Слишком много попыток. Запроси новый код в профиле бота")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if !user.IsActive {
		h.errorResponse(w, r, "Неверный или истекший код")
		return
	}

	if err := h.startSession(w, user); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Вход выполнен", user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:    sessionCookieName,
		Value:   "",
		Expires: time.Now().Add(-time.Hour),
		Path:    "/",
	})

	h.successResponse(w, r, "Выход выполнен", nil)
}
