package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/metrics"
	"github.com/Spok95/course-feedback/internal/models"
)

// Session: явный контекст входа (роль и профиль). Создаётся в Login, уничтожается в Logout.
type Session struct {
	Token     string         `json:"token"`
	Account   models.Account `json:"account"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type AccountResolver interface {
	Resolve(ctx context.Context, email, password string) (models.Account, error)
}

type entry struct {
	sess    Session
	wizards map[int64]*feedback.Wizard // formID -> мастер
}

func (e *entry) closeWizards() {
	for id, w := range e.wizards {
		w.Close()
		delete(e.wizards, id)
	}
}

type Manager struct {
	resolver AccountResolver
	ttl      time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

func NewManager(resolver AccountResolver, ttl time.Duration, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		resolver: resolver,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// SetClock: для тестов.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Login разрешает роль и открывает новую сессию вместо prevToken.
// При ErrAccountNotFound prevToken тоже закрывается.
func (m *Manager) Login(ctx context.Context, prevToken, email, password string) (Session, error) {
	acc, err := m.resolver.Resolve(ctx, email, password)
	switch {
	case errors.Is(err, ErrAuthFailure):
		metrics.Logins.WithLabelValues(metrics.LoginBadCreds).Inc()
		return Session{}, err
	case errors.Is(err, ErrAccountNotFound):
		metrics.Logins.WithLabelValues(metrics.LoginNoRole).Inc()
		m.Logout(prevToken)
		return Session{}, err
	case err != nil:
		metrics.Logins.WithLabelValues(metrics.LoginError).Inc()
		return Session{}, err
	}

	now := m.now()
	sess := Session{
		Token:     uuid.NewString(),
		Account:   acc,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	if prev, ok := m.sessions[prevToken]; ok {
		prev.closeWizards()
		delete(m.sessions, prevToken)
	}
	m.sessions[sess.Token] = &entry{sess: sess, wizards: make(map[int64]*feedback.Wizard)}
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.Logins.WithLabelValues(metrics.LoginOK).Inc()
	metrics.ActiveSessions.Set(float64(n))
	m.log.Info("login", zap.String("role", string(acc.Role)), zap.String("email", acc.Email()))
	return sess, nil
}

func (m *Manager) Get(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[token]
	if !ok || !m.now().Before(e.sess.ExpiresAt) {
		return Session{}, false
	}
	return e.sess, true
}

// Logout закрывает сессию и все её мастера.
func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	e, ok := m.sessions[token]
	if ok {
		e.closeWizards()
		delete(m.sessions, token)
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if ok {
		metrics.ActiveSessions.Set(float64(n))
	}
}

// Sweep удаляет просроченные сессии; возвращает сколько удалено.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	removed := 0
	for tok, e := range m.sessions {
		if !now.Before(e.sess.ExpiresAt) {
			e.closeWizards()
			delete(m.sessions, tok)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return removed
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Wizard: активный мастер сессии по форме.
func (m *Manager) Wizard(token string, formID int64) (*feedback.Wizard, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[token]
	if !ok || !m.now().Before(e.sess.ExpiresAt) {
		return nil, false
	}
	w, ok := e.wizards[formID]
	return w, ok
}

// SetWizard запоминает мастер; прежний мастер по этой форме закрывается.
func (m *Manager) SetWizard(token string, formID int64, w *feedback.Wizard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[token]
	if !ok || !m.now().Before(e.sess.ExpiresAt) {
		return ErrNoSession
	}
	if old, ok := e.wizards[formID]; ok && old != w {
		old.Close()
	}
	e.wizards[formID] = w
	return nil
}

func (m *Manager) DropWizard(token string, formID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[token]
	if !ok {
		return
	}
	if w, ok := e.wizards[formID]; ok {
		w.Close()
		delete(e.wizards, formID)
	}
}
