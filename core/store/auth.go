package store

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core/school"
	"github.com/saber-pedagogico/saber/core/session"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("a user with this email already exists")
)

// Login logs in the known user with exactly this email.
// An unknown email leaves the state untouched and returns false.
func (s *Store) Login(email string) bool {
	_, _, ok := s.LoginSession(email)
	return ok
}

// LoginSession is Login returning the logged in user and their session token.
func (s *Store) LoginSession(email string) (school.User, string, bool) {
	s.wait()

	s.mu.Lock()
	usr, ok := s.state.UserByEmail(email)
	if !ok {
		s.mu.Unlock()
		return school.User{}, "", false
	}
	s.setCurrentUser(usr)
	token := s.token
	s.commit()
	s.mu.Unlock()
	s.flush()
	return usr, token, true
}

// Register adds a user and logs them in. It returns false, changing nothing,
// when a user with this email already exists.
func (s *Store) Register(name, email string, role school.Role) bool {
	_, _, ok := s.RegisterSession(name, email, role)
	return ok
}

// RegisterSession is Register returning the new user and their session token.
func (s *Store) RegisterSession(name, email string, role school.Role) (school.User, string, bool) {
	s.wait()

	s.mu.Lock()
	if _, exists := s.state.UserByEmail(email); exists {
		s.mu.Unlock()
		return school.User{}, "", false
	}
	usr := school.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Role:  role,
	}
	s.state.Users = append(s.state.Users, usr)
	s.setCurrentUser(usr)
	token := s.token
	s.commit()
	s.mu.Unlock()
	s.flush()
	return usr, token, true
}

// Logout ends the current session and revokes its token.
// Users, classes and students are kept.
func (s *Store) Logout() {
	s.update(s.endSession)
}

// LogoutToken revokes token. The current session also ends when it belongs to
// the same user. Invalid tokens are ignored.
func (s *Store) LogoutToken(token string) {
	s.mu.Lock()
	claims, err := s.codec.VerifyToken(token)
	if err != nil {
		s.mu.Unlock()
		return
	}
	s.revoke(token)
	if cur := s.state.CurrentUser; cur == nil || cur.ID != claims.Subject {
		s.mu.Unlock()
		return
	}
	s.endSession()
	s.commit()
	s.mu.Unlock()
	s.flush()
}

// endSession logs out and revokes the session token. Called with s.mu held.
func (s *Store) endSession() {
	s.revoke(s.token)
	s.state.CurrentUser = nil
	s.state.IsAuthenticated = false
	s.token = ""
}

// revoke makes token unusable until it expires. Expired entries are dropped on
// the way. Called with s.mu held.
func (s *Store) revoke(token string) {
	claims, err := s.codec.VerifyToken(token)
	if err != nil {
		return
	}
	if s.revoked == nil {
		s.revoked = make(map[string]int64)
	}
	s.pruneRevoked()
	s.revoked[session.RevocationKey(token, claims)] = claims.ExpiresAt
	s.persistRevoked()
}

func (s *Store) pruneRevoked() {
	now := s.codec.Now().Unix()
	for key, exp := range s.revoked {
		if exp <= now {
			delete(s.revoked, key)
		}
	}
}

// resolve maps a valid, unrevoked token to a known user. Called with s.mu held.
func (s *Store) resolve(token string) (school.User, bool) {
	claims, err := s.codec.VerifyToken(token)
	if err != nil {
		return school.User{}, false
	}
	if _, revoked := s.revoked[session.RevocationKey(token, claims)]; revoked {
		return school.User{}, false
	}
	return s.state.UserByID(claims.Subject)
}

// SetUserData replaces the user with the same id in place, or appends it,
// and makes it the current user.
func (s *Store) SetUserData(usr school.User) {
	s.update(func() {
		s.upsertUser(usr)
		s.setCurrentUser(usr)
	})
}

// SetUserRole changes the role (plan) of the user with exactly this email.
// The current session follows the change when it belongs to that user.
func (s *Store) SetUserRole(email string, role school.Role) (school.User, bool) {
	s.mu.Lock()
	usr, ok := s.state.UserByEmail(email)
	if !ok {
		s.mu.Unlock()
		return school.User{}, false
	}
	usr.Role = role
	s.upsertUser(usr)
	if cur := s.state.CurrentUser; cur != nil && cur.ID == usr.ID {
		s.setCurrentUser(usr)
	}
	s.commit()
	s.mu.Unlock()
	s.flush()
	return usr, true
}

// UpdateProfile edits the user with this id. Empty name and email and a nil
// avatar are left unchanged. Unlike SetUserData it never opens a session; the
// current session only follows the change when it belongs to that user.
func (s *Store) UpdateProfile(id, name, email string, avatar *string) (school.User, error) {
	s.mu.Lock()
	usr, ok := s.state.UserByID(id)
	if !ok {
		s.mu.Unlock()
		return school.User{}, ErrUserNotFound
	}
	if email != "" && email != usr.Email {
		if _, taken := s.state.UserByEmail(email); taken {
			s.mu.Unlock()
			return school.User{}, ErrEmailTaken
		}
		usr.Email = email
	}
	if name != "" {
		usr.Name = name
	}
	if avatar != nil {
		usr.Avatar = *avatar
	}
	s.upsertUser(usr)
	if cur := s.state.CurrentUser; cur != nil && cur.ID == usr.ID {
		s.setCurrentUser(usr)
	}
	s.commit()
	s.mu.Unlock()
	s.flush()
	return usr, nil
}

// Authenticate resolves a session token to a known user without touching the state.
// Revoked tokens are rejected.
func (s *Store) Authenticate(token string) (school.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolve(token)
}

// IssueToken returns a fresh session token for the user with this email.
func (s *Store) IssueToken(email string) (string, bool) {
	s.mu.Lock()
	usr, ok := s.state.UserByEmail(email)
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	token, err := s.codec.CreateToken(usr)
	if err != nil {
		s.log.Error("creating session token", err, usr)
		return "", false
	}
	return token, true
}

// Token returns the token of the current session, if any.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Reset puts the seed state back and logs out.
func (s *Store) Reset() {
	s.update(func() {
		s.revoke(s.token)
		s.state = school.SeedState()
		s.token = ""
	})
}

func (s *Store) upsertUser(usr school.User) {
	for i := range s.state.Users {
		if s.state.Users[i].ID == usr.ID {
			s.state.Users[i] = usr
			return
		}
	}
	s.state.Users = append(s.state.Users, usr)
}

// setCurrentUser opens a session for usr. Called with s.mu held.
func (s *Store) setCurrentUser(usr school.User) {
	s.state.CurrentUser = &usr
	s.state.IsAuthenticated = true

	token, err := s.codec.CreateToken(usr)
	if err != nil {
		// the session still works in memory, it just won't survive a restart
		s.log.Warn("could not create session token", err, usr)
		token = ""
	}
	s.token = token
}

// AddUser adds a user without opening a session. It returns false, changing
// nothing, when a user with this email already exists.
func (s *Store) AddUser(name, email string, role school.Role) (school.User, bool) {
	s.mu.Lock()
	if _, exists := s.state.UserByEmail(email); exists {
		s.mu.Unlock()
		return school.User{}, false
	}
	usr := school.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Role:  role,
	}
	s.state.Users = append(s.state.Users, usr)
	s.commit()
	s.mu.Unlock()
	s.flush()
	return usr, true
}
