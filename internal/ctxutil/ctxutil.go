package ctxutil

import (
	"context"
	"sync/atomic"
	"time"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keyChatID key = iota
	keySessionToken
	keyOpName
)

// WithChatID /ChatID: chatID телеграм-апдейта
func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, keyChatID, chatID)
}

func ChatID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(keyChatID).(int64)
	return id, ok
}

// WithSessionToken /SessionToken: токен сессии, под которой идёт запрос
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keySessionToken, token)
}

func SessionToken(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keySessionToken).(string)
	return s, ok && s != ""
}

// WithOp /Op: имя операции (для логов и тегов sentry)
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyOpName).(string)
	return s, ok
}

// Таймаут БД задаётся из конфига (DB_TIMEOUT) один раз при старте.
var dbTimeout atomic.Int64

func init() { dbTimeout.Store(int64(5 * time.Second)) }

func SetDBTimeout(d time.Duration) {
	if d > 0 {
		dbTimeout.Store(int64(d))
	}
}

func DBTimeout() time.Duration { return time.Duration(dbTimeout.Load()) }

// WithDBTimeout: стандартный таймаут для БД; короче, если у родителя дедлайн ближе.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	d := DBTimeout()
	if dl, ok := parent.Deadline(); ok {
		if remain := time.Until(dl); remain < d {
			return context.WithDeadline(parent, dl)
		}
	}
	return context.WithTimeout(parent, d)
}
