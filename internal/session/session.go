// Package session holds the bearer credential and profile snapshot for
// the current user. The session is an explicit object injected into
// whatever needs it; there is no package-level singleton. Credential and
// profile live and die together: Establish stores both, Logout clears
// both.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"secureshare/internal/model"
	"secureshare/internal/token"
)

type persisted struct {
	Credential string        `json:"credential"`
	Profile    model.Profile `json:"profile"`
}

// Session is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	path     string
	cred     string
	profile  model.Profile
	onLogout []func()
}

// Load opens the session persisted at path. A missing or unreadable
// file yields an empty (logged-out) session, not an error: the user
// simply has to log in again.
func Load(path string) *Session {
	s := &Session{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var p persisted
	if err := json.Unmarshal(raw, &p); err != nil {
		return s
	}
	s.cred = p.Credential
	s.profile = p.Profile
	return s
}

// Credential returns the stored bearer credential, empty when logged
// out. Implements api.CredentialSource.
func (s *Session) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

// Profile returns the stored profile snapshot.
func (s *Session) Profile() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Identity re-decodes the stored credential on every call. The
// credential is the single source of truth for who is acting; no
// decoded identity is ever cached.
func (s *Session) Identity() model.Identity {
	return token.Decode(s.Credential())
}

// Active reports whether a credential is stored.
func (s *Session) Active() bool {
	return s.Credential() != ""
}

// Establish stores and persists a credential with its profile snapshot.
func (s *Session) Establish(cred string, profile model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = cred
	s.profile = profile

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	raw, err := json.Marshal(persisted{Credential: cred, Profile: profile})
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// OnLogout registers a hook run synchronously whenever the session is
// cleared, so dependents drop state derived from the old identity.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Logout clears the in-memory state and the persisted file together,
// then notifies dependents. Called on explicit logout and on any
// authorization failure from the store.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.cred = ""
	s.profile = model.Profile{}
	hooks := make([]func(), len(s.onLogout))
	copy(hooks, s.onLogout)
	path := s.path
	s.mu.Unlock()

	var err error
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		err = fmt.Errorf("clear session file: %w", rmErr)
	}
	for _, fn := range hooks {
		fn()
	}
	return err
}
