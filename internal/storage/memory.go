package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/models"
)

// MemoryStore is an in-memory Store used in tests and for running the
// service without a database.
type MemoryStore struct {
	mu         sync.RWMutex
	scans      map[string]models.Scan
	users      map[int]models.User
	nextUserID int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scans:      make(map[string]models.Scan),
		users:      make(map[int]models.User),
		nextUserID: 1,
	}
}

func (m *MemoryStore) CreateScan(scan *models.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[scan.ID] = *scan
	return nil
}

func (m *MemoryStore) GetScan(id string) (*models.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scan, ok := m.scans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &scan, nil
}

func (m *MemoryStore) UpdateScan(id string, update ScanUpdate) (*models.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scan, ok := m.scans[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Status != nil {
		scan.Status = *update.Status
	}
	if update.Result != nil {
		scan.Result = update.Result
	}
	m.scans[id] = scan
	return &scan, nil
}

func (m *MemoryStore) ScansByUser(userID, limit int) ([]models.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var scans []models.Scan
	for _, scan := range m.scans {
		if scan.UserID == userID {
			scans = append(scans, scan)
		}
	}
	sort.Slice(scans, func(i, j int) bool {
		return scans[i].CreatedAt.After(scans[j].CreatedAt)
	})
	if len(scans) > limit {
		scans = scans[:limit]
	}
	return scans, nil
}

func (m *MemoryStore) CreateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = m.nextUserID
	m.nextUserID++
	user.CreatedAt = time.Now()
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) UserByUsername(username string) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.Username == username })
}

func (m *MemoryStore) UserByEmail(email string) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.Email == email })
}

func (m *MemoryStore) UserByResetToken(token string) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return token != "" && u.ResetToken == token })
}

func (m *MemoryStore) findUser(match func(models.User) bool) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if match(user) {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) SetResetToken(email, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, user := range m.users {
		if user.Email == email {
			user.ResetToken = token
			user.ResetTokenExpires = &expires
			m.users[id] = user
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) UpdatePassword(userID int, hashedPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.Password = hashedPassword
	user.ResetToken = ""
	user.ResetTokenExpires = nil
	m.users[userID] = user
	return nil
}
