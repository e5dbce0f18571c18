package domain

import (
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	TelegramID   *string   `json:"telegramId"`
	Username     *string   `json:"username"`
	FullName     *string   `json:"fullName"`
	Email        *string   `json:"email"`
	PasswordHash *string   `json:"-"`
	APIToken     string    `json:"-"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DisplayName prefers the full name, then the username.
func (u *User) DisplayName() string {
	switch {
	case u.FullName != nil && *u.FullName != "":
		return *u.FullName
	case u.Username != nil && *u.Username != "":
		return *u.Username
	}
	return "Не указано"
}
