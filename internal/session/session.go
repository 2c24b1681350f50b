// Package session owns the authenticated lifetime of the client: the bearer
// token, the user it belongs to, and a context that is cancelled when the
// user logs out or the backend rejects the token.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoSession is returned when an action needs a token and none is
	// available.
	ErrNoSession = errors.New("no active session")

	// ErrExpired is returned when the stored token is past its expiry.
	ErrExpired = errors.New("session expired")
)

// Session is one authenticated lifetime. It is created on login or resume
// and ended on logout or token loss; an ended session never becomes active
// again.
type Session struct {
	id        string
	token     string
	userID    string
	expiresAt time.Time
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	ended   bool
	expired bool
	onEnd   []func(*Session)
}

// New starts a session for token. userID may be empty when the caller
// does not know it; it is then taken from the token claims if possible.
func New(parent context.Context, token, userID string) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:     uuid.NewString(),
		token:  token,
		userID: userID,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	if claims, ok := ParseClaims(token); ok {
		s.expiresAt = claims.ExpiresAt
		if s.userID == "" {
			s.userID = claims.Subject
		}
	}
	return s
}

// ID uniquely identifies this session instance.
func (s *Session) ID() string { return s.id }

// UserID returns the authenticated user's id, if known.
func (s *Session) UserID() string { return s.userID }

// ExpiresAt returns the token expiry, or the zero time for opaque tokens.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Token returns the bearer token, or "" once the session is no longer
// active. Callers treat "" as a missing session.
func (s *Session) Token() string {
	if s == nil || !s.Active() {
		return ""
	}
	return s.token
}

// Active reports whether the session can still issue requests.
func (s *Session) Active() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	ended := s.ended
	s.mu.Unlock()

	if ended || s.token == "" {
		return false
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		return false
	}
	return true
}

// Context is cancelled when the session ends.
func (s *Session) Context() context.Context { return s.ctx }

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Expired reports whether the session ended because the token was lost.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// OnEnd registers fn to run once when the session ends. If the session has
// already ended fn runs immediately.
func (s *Session) OnEnd(fn func(*Session)) {
	s.mu.Lock()
	if !s.ended {
		s.onEnd = append(s.onEnd, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn(s)
}

// End terminates the session: in-flight requests bound to its context are
// cancelled and OnEnd hooks run. It is safe to call more than once.
func (s *Session) End() {
	s.finish(false)
}

// Expire ends the session because the backend rejected the token.
func (s *Session) Expire() {
	s.finish(true)
}

func (s *Session) finish(expired bool) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.expired = expired
	hooks := s.onEnd
	s.onEnd = nil
	s.mu.Unlock()

	s.cancel()
	for _, fn := range hooks {
		fn(s)
	}
}
