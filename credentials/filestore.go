package credentials

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/taskflow/taskflow-go/users"
	"gopkg.in/yaml.v3"
)

const credentialsFileName = "credentials.yaml"

var _ Store = (*FileStore)(nil)

// storedCredentials is the on-disk layout of the credential file.
type storedCredentials struct {
	AccessToken  string             `yaml:"access_token,omitempty"`
	RefreshToken string             `yaml:"refresh_token,omitempty"`
	User         *users.UserProfile `yaml:"user,omitempty"`
}

// FileStore persists credentials to a YAML file in the data folder so a
// session survives process restarts. Writes go to a temp file first and are
// renamed into place, so a crash mid-write never leaves a half-written file.
type FileStore struct {
	path  string
	lock  sync.RWMutex
	state storedCredentials
}

// NewFileStore loads any existing credential file from folder, creating the
// folder if needed. A missing or unreadable file starts the store empty.
func NewFileStore(folder string) (*FileStore, error) {
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] create data folder")
	}

	fs := &FileStore{path: filepath.Join(folder, credentialsFileName)}
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return fs, nil // No stored session yet
	}
	if err := yaml.Unmarshal(data, &fs.state); err != nil {
		// Corrupt file: treat as logged out rather than failing startup.
		fs.state = storedCredentials{}
	}
	return fs, nil
}

func (s *FileStore) AccessToken() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.AccessToken
}

func (s *FileStore) RefreshToken() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.RefreshToken
}

func (s *FileStore) User() *users.UserProfile {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

func (s *FileStore) SetTokens(access, refresh string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state.AccessToken = access
	s.state.RefreshToken = refresh
	s.persist()
}

func (s *FileStore) SetUser(user *users.UserProfile) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if user == nil {
		s.state.User = nil
	} else {
		u := *user
		s.state.User = &u
	}
	s.persist()
}

func (s *FileStore) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state = storedCredentials{}
	s.persist()
}

// persist writes the current state to disk. Callers hold the write lock.
// Storage failures are swallowed: the in-memory view stays authoritative and
// the next successful write repairs the file.
func (s *FileStore) persist() {
	data, err := yaml.Marshal(&s.state)
	if err != nil {
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return
	}
	_ = os.Rename(tmp, s.path)
}
