// Package session keeps per-visitor UI state: language, admin unlock,
// department unlock and the session-scoped department list.
//
// State lives in memory on the server. The browser only holds a signed
// cookie naming the session, so nothing here survives a restart.
package session

import (
	"context"
	"sync"
	"time"
)

// Session is one visitor's state. All methods are safe for concurrent use.
type Session struct {
	ID string

	mu          sync.Mutex
	lang        string
	authOK      bool
	deptOK      string
	departments []string
	expires     time.Time
}

func newSession(id, lang string, departments []string, expires time.Time) *Session {
	return &Session{
		ID:          id,
		lang:        lang,
		departments: append([]string(nil), departments...),
		expires:     expires,
	}
}

// Lang returns the selected language code.
func (s *Session) Lang() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// SetLang changes the selected language.
func (s *Session) SetLang(lang string) {
	s.mu.Lock()
	s.lang = lang
	s.mu.Unlock()
}

// Authenticated reports whether the admin gate was passed.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authOK
}

// SetAuthenticated marks the admin gate as passed.
func (s *Session) SetAuthenticated() {
	s.mu.Lock()
	s.authOK = true
	s.mu.Unlock()
}

// UnlockedDepartment returns the department unlocked in this session, if any.
func (s *Session) UnlockedDepartment() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deptOK
}

// UnlockDepartment records a successful department unlock.
func (s *Session) UnlockDepartment(dept string) {
	s.mu.Lock()
	s.deptOK = dept
	s.mu.Unlock()
}

// Logout clears both unlock flags. Language and departments are kept.
func (s *Session) Logout() {
	s.mu.Lock()
	s.authOK = false
	s.deptOK = ""
	s.mu.Unlock()
}

// Departments returns the department list offered in this session.
func (s *Session) Departments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.departments...)
}

// AddDepartment appends dept unless it is blank or already present.
// It reports whether the list changed.
func (s *Session) AddDepartment(dept string) bool {
	if dept == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.departments {
		if d == dept {
			return false
		}
	}
	s.departments = append(s.departments, dept)
	return true
}

// ResetDepartments restores the configured department list.
func (s *Session) ResetDepartments(defaults []string) {
	s.mu.Lock()
	s.departments = append([]string(nil), defaults...)
	s.mu.Unlock()
}

// copyTo gives dst the language, unlocks and department list of s.
func (s *Session) copyTo(dst *Session) {
	s.mu.Lock()
	lang, authOK, deptOK := s.lang, s.authOK, s.deptOK
	departments := append([]string(nil), s.departments...)
	s.mu.Unlock()

	dst.mu.Lock()
	dst.lang, dst.authOK, dst.deptOK = lang, authOK, deptOK
	dst.departments = departments
	dst.mu.Unlock()
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.expires)
}

func (s *Session) touch(expires time.Time) {
	s.mu.Lock()
	s.expires = expires
	s.mu.Unlock()
}

type contextKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session placed by the store middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
