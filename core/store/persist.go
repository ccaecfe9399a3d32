package store

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core/school"
)

// Persistence keys.
const (
	StateKey   = "saber_pedagogico_state_v2"
	SessionKey = "saber_pedagogico_session"
	RevokedKey = "saber_pedagogico_revoked_sessions"
)

// ErrNotFound is returned by Storage.Load when nothing is stored under the key.
var ErrNotFound = errors.New("key not found")

// Storage is the key-value layer snapshots and session tokens are written to.
// Implementations may fail at any time; the store keeps working in memory when they do.
type Storage interface {
	Save(key, value string) error
	Load(key string) (string, error)
	Remove(key string) error
}

// snapshot is the persisted form of the state. The current user is never part of
// it: the session is restored from the token stored under SessionKey.
type snapshot struct {
	Users    []school.User      `json:"users"`
	Classes  []school.ClassRoom `json:"classes"`
	Students []school.Student   `json:"students"`
}

func encodeSnapshot(st school.AppState) (string, error) {
	data, err := json.Marshal(snapshot{
		Users:    st.Users,
		Classes:  st.Classes,
		Students: st.Students,
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding snapshot")
	}
	return string(data), nil
}

// decodeSnapshot returns a logged out state. A snapshot without users cannot be
// logged into and is treated as malformed.
func decodeSnapshot(raw string) (school.AppState, error) {
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return school.AppState{}, errors.Wrap(err, "decoding snapshot")
	}
	if len(snap.Users) == 0 {
		return school.AppState{}, errors.New("snapshot has no users")
	}
	st := school.AppState{
		Users:    snap.Users,
		Classes:  snap.Classes,
		Students: snap.Students,
	}
	if st.Classes == nil {
		st.Classes = []school.ClassRoom{}
	}
	if st.Students == nil {
		st.Students = []school.Student{}
	}
	return st, nil
}

// persist writes the whole state, then the session token. Called with s.mu held.
func (s *Store) persist() {
	if s.storage == nil || s.closed {
		return
	}

	raw, err := encodeSnapshot(s.state)
	if err == nil {
		err = s.storage.Save(StateKey, raw)
	}
	if err != nil {
		s.log.Warn("could not persist state, keeping it in memory only", errors.Wrap(err, "saving state"))
	}

	if s.token == "" {
		err = s.storage.Remove(SessionKey)
	} else {
		err = s.storage.Save(SessionKey, s.token)
	}
	if err != nil {
		s.log.Warn("could not persist session", errors.Wrap(err, "saving session"))
	}
}

// persistRevoked writes the revocation list. Called with s.mu held.
func (s *Store) persistRevoked() {
	if s.storage == nil || s.closed {
		return
	}
	var err error
	if len(s.revoked) == 0 {
		err = s.storage.Remove(RevokedKey)
	} else {
		var data []byte
		if data, err = json.Marshal(s.revoked); err == nil {
			err = s.storage.Save(RevokedKey, string(data))
		}
	}
	if err != nil {
		s.log.Warn("could not persist revoked sessions", errors.Wrap(err, "saving revoked sessions"))
	}
}

// loadRevoked replaces the revocation list with the persisted one.
// Called with s.mu held.
func (s *Store) loadRevoked() {
	raw, err := s.storage.Load(RevokedKey)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			s.log.Warn("could not load revoked sessions", errors.Wrap(err, "loading revoked sessions"))
		}
		return
	}
	revoked := make(map[string]int64)
	if err = json.Unmarshal([]byte(raw), &revoked); err != nil {
		s.log.Warn("discarding malformed revoked sessions", errors.Wrap(err, "decoding revoked sessions"))
		return
	}
	s.revoked = revoked
	s.pruneRevoked()
}

// load reads the persisted state and resolves the stored session. Called with s.mu held.
func (s *Store) load() {
	st := school.SeedState()
	if s.storage != nil {
		raw, err := s.storage.Load(StateKey)
		switch {
		case err == nil:
			if restored, derr := decodeSnapshot(raw); derr == nil {
				st = restored
			} else {
				s.log.Warn("discarding malformed snapshot", derr)
			}
		case errors.Cause(err) != ErrNotFound:
			s.log.Warn("could not load state, using seed data", errors.Wrap(err, "loading state"))
		}
	}
	s.state = st
	s.token = ""

	if s.storage == nil {
		return
	}
	s.loadRevoked()
	token, err := s.storage.Load(SessionKey)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			s.log.Warn("could not load session", errors.Wrap(err, "loading session"))
		}
		return
	}
	usr, ok := s.resolve(token)
	if !ok {
		s.log.Info("stored session is no longer valid, logging out")
		if err = s.storage.Remove(SessionKey); err != nil {
			s.log.Warn("could not remove session", errors.Wrap(err, "removing session"))
		}
		return
	}
	s.state.CurrentUser = &usr
	s.state.IsAuthenticated = true
	s.token = token
}
