package credentials

import (
	"sync"

	"github.com/taskflow/taskflow-go/users"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps credentials in process memory. Suitable for tests and for
// ephemeral sessions that should not outlive the process.
type MemoryStore struct {
	lock    sync.RWMutex
	access  string
	refresh string
	user    *users.UserProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AccessToken() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.access
}

func (s *MemoryStore) RefreshToken() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.refresh
}

func (s *MemoryStore) User() *users.UserProfile {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *MemoryStore) SetTokens(access, refresh string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.access = access
	s.refresh = refresh
}

func (s *MemoryStore) SetUser(user *users.UserProfile) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if user == nil {
		s.user = nil
		return
	}
	u := *user
	s.user = &u
}

func (s *MemoryStore) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.access = ""
	s.refresh = ""
	s.user = nil
}
