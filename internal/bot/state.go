package bot

import "sync"

// ChatState: к какой сессии привязан чат.
type ChatState struct {
	Token string
	Email string
}

type StateManager struct {
	mu     sync.RWMutex
	byChat map[int64]ChatState
}

func NewStateManager() *StateManager {
	return &StateManager{byChat: make(map[int64]ChatState)}
}

// Get возвращает копию состояния.
func (m *StateManager) Get(chatID int64) (ChatState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.byChat[chatID]
	return st, ok
}

func (m *StateManager) Set(chatID int64, st ChatState) {
	m.mu.Lock()
	m.byChat[chatID] = st
	m.mu.Unlock()
}

func (m *StateManager) Clear(chatID int64) {
	m.mu.Lock()
	delete(m.byChat, chatID)
	m.mu.Unlock()
}
