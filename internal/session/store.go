package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieName is the session cookie.
const CookieName = "pc_session"

const issuer = "peopleconnect"

// Options configures a Store.
type Options struct {
	Secret      string
	TTL         time.Duration
	DefaultLang string
	Departments []string
}

// Store issues session cookies and holds the matching state.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	secret   []byte
	ttl      time.Duration
	lang     string
	depts    []string
	logger   *zap.Logger
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore(opts Options, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultLang == "" {
		opts.DefaultLang = "en"
	}
	return &Store{
		sessions: make(map[string]*Session),
		secret:   []byte(opts.Secret),
		ttl:      opts.TTL,
		lang:     opts.DefaultLang,
		depts:    append([]string(nil), opts.Departments...),
		logger:   logger,
		now:      time.Now,
	}
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Middleware attaches the visitor's session to the request context,
// starting a new one when the cookie is missing, invalid or expired.
func (st *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := st.lookup(r)
		if s == nil {
			var err error
			s, err = st.create()
			if err != nil {
				st.logger.Error("❌ Failed to start session", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}

		// Sliding expiry: every request pushes the deadline out and reissues
		// the cookie.
		if err := st.issue(w, r, s); err != nil {
			st.logger.Error("❌ Failed to sign session cookie", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// Renew moves the state of the request's session to a fresh id and
// reissues the cookie; the old id stops working. Handlers call it before
// raising the session's privileges and keep using the returned session.
func (st *Store) Renew(w http.ResponseWriter, r *http.Request) (*Session, error) {
	s, err := st.create()
	if err != nil {
		return nil, err
	}
	if old := FromContext(r.Context()); old != nil {
		old.copyTo(s)
		st.mu.Lock()
		delete(st.sessions, old.ID)
		st.mu.Unlock()
	}
	if err := st.issue(w, r, s); err != nil {
		st.mu.Lock()
		delete(st.sessions, s.ID)
		st.mu.Unlock()
		return nil, fmt.Errorf("issue renewed session: %w", err)
	}
	st.logger.Debug("🍪 Session renewed")
	return s, nil
}

// issue extends s and sets its cookie, replacing a session cookie set
// earlier in the same response.
func (st *Store) issue(w http.ResponseWriter, r *http.Request, s *Session) error {
	expires := st.now().Add(st.ttl)
	s.touch(expires)
	token, err := st.sign(s.ID, expires)
	if err != nil {
		return err
	}

	h := w.Header()
	kept := h["Set-Cookie"][:0]
	for _, c := range h["Set-Cookie"] {
		if !strings.HasPrefix(c, CookieName+"=") {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		h.Del("Set-Cookie")
	} else {
		h["Set-Cookie"] = kept
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (st *Store) lookup(r *http.Request) *Session {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	id, err := st.parse(c.Value)
	if err != nil {
		st.logger.Debug("🍪 Ignoring session cookie", zap.Error(err))
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil
	}
	if s.expired(st.now()) {
		delete(st.sessions, id)
		return nil
	}
	return s
}

func (st *Store) create() (*Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := st.now()
	s := newSession(id.String(), st.lang, st.depts, now.Add(st.ttl))

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s, nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (st *Store) Sweep() int {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for id, s := range st.sessions {
		if s.expired(now) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (st *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				st.logger.Debug("🧹 Expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

func (st *Store) sign(id string, expires time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        id,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(st.now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(st.secret)
}

func (st *Store) parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return st.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(st.now),
	)
	if err != nil {
		return "", err
	}
	if claims.ID == "" {
		return "", errors.New("session cookie without id")
	}
	return claims.ID, nil
}
