package models

import "time"

// Credential: пароль аккаунта (только bcrypt-хэш). Роль отсюда не следует.
type Credential struct {
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
