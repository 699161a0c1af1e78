package storage

import (
	"sync"
	"time"
)

// MemoryStorage is the ephemeral backend: same semantics as the durable
// stores, shared by every session in the process, gone on exit.
type MemoryStorage struct {
	mutex sync.RWMutex
	users map[int64]*User
	turns map[int64][]Turn
	cap   int
	now   func() time.Time
}

func NewMemoryStorage(historyTurns int) *MemoryStorage {
	return &MemoryStorage{
		users: make(map[int64]*User),
		turns: make(map[int64][]Turn),
		cap:   historyTurns * 2,
		now:   time.Now,
	}
}

func (m *MemoryStorage) GetOrCreateUser(userID int64, username string) (User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	today := m.now().UTC().Format(dateLayout)
	u, ok := m.users[userID]
	if !ok {
		u = &User{ID: userID, Username: username, LastReset: today}
		m.users[userID] = u
	}
	if u.LastReset != today {
		u.MessagesToday = 0
		u.LastReset = today
	}
	return *u, nil
}

func (m *MemoryStorage) IncrementCounter(userID int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if u, ok := m.users[userID]; ok {
		u.MessagesToday++
	}
	return nil
}

func (m *MemoryStorage) AppendTurn(userID int64, role, content string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	turns := append(m.turns[userID], Turn{Role: role, Content: content})
	if len(turns) > m.cap {
		turns = turns[len(turns)-m.cap:]
	}
	m.turns[userID] = turns
	return nil
}

func (m *MemoryStorage) GetHistory(userID int64) ([]Turn, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	turns := m.turns[userID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MemoryStorage) ClearHistory(userID int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.turns, userID)
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
