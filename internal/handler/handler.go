package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/ru"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	ru_translations "github.com/go-playground/validator/v10/translations/ru"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shift-tracker/backend/internal/config"
	"github.com/shift-tracker/backend/internal/domain"
	"github.com/shift-tracker/backend/internal/repository"
)

// MailPublisher is satisfied by *amqp.Channel.
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// LoginCodes resolves one-time codes issued by the chat bot.
type LoginCodes interface {
	ConsumeLoginCode(ctx context.Context, userID int64, code string) error
}

// ChatBot turns one inbound chat event into the messages to display.
type ChatBot interface {
	Handle(ctx context.Context, upd domain.Update) []domain.Outbound
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	mailChannel MailPublisher
	loginCodes  LoginCodes
	chat        ChatBot

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailCh MailPublisher, codes LoginCodes, chat ChatBot) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	ru := ru.New()
	uni := ut.New(ru, ru)
	trans, _ := uni.GetTranslator("ru")
	if err := ru_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		loginCodes:  codes,
		chat:        chat,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/health", h.Health)

	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/login-code", h.LoginWithCode)
		r.Post("/logout", h.Logout)
	})

	h.Mux.Get("/public/calendar/{token}", h.GetPublicCalendar)

	h.Mux.With(h.chatSecret).Post("/chat/updates", h.HandleChatUpdate)

	// everything below requires a signed in user
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)

		r.Route("/my-info", func(r chi.Router) {
			r.Get("/", h.GetMyInfo)
			r.Post("/api-token", h.RegenerateAPIToken)
		})

		r.Get("/statistics", h.GetMyStatistics)

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.GetMyShifts)
			r.Post("/", h.CreateShift)
			r.Get("/export", h.ExportShifts)
			r.Post("/export/email", h.EmailShiftExport)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.shift)
				r.Get("/", h.GetShift)
				r.Patch("/", h.UpdateShift)
				r.Delete("/", h.DeleteShift)
			})
		})
	})
}
