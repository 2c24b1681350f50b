package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/swapdesk/internal/api"
	"github.com/nhle/swapdesk/internal/credential"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/store"
)

// Authenticator is the auth subset of the backend API.
type Authenticator interface {
	Login(ctx context.Context, email, password string) api.Result[model.LoginResult]
	ForgotPassword(ctx context.Context, email string) api.Result[struct{}]
	CurrentUser(ctx context.Context, token string) api.Result[model.User]
}

// TokenVault persists the bearer token.
type TokenVault interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Manager creates and tears down sessions and keeps the persisted token
// and user id in step with them.
type Manager struct {
	auth   Authenticator
	vault  TokenVault
	state  store.LocalState
	logger *zap.Logger
}

// NewManager wires a Manager. logger may be nil.
func NewManager(
	auth Authenticator,
	vault TokenVault,
	state store.LocalState,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{auth: auth, vault: vault, state: state, logger: logger}
}

// Resume starts a session from the persisted token. It returns ErrNoSession
// when nothing is stored and ErrExpired (after clearing the stale token)
// when the token's expiry has passed.
func (m *Manager) Resume(ctx context.Context) (*Session, error) {
	token, err := m.vault.Get(credential.TokenKey)
	if errors.Is(err, credential.ErrNotFound) || (err == nil && token == "") {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}

	userID, err := m.state.GetValue(ctx, store.KeyUserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading user id: %w", err)
	}

	claims, _ := ParseClaims(token)
	if !claims.ExpiresAt.IsZero() && !time.Now().Before(claims.ExpiresAt) {
		m.logger.Info("stored token expired", zap.Time("expires_at", claims.ExpiresAt))
		if err := m.clear(ctx); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		res := m.auth.CurrentUser(ctx, token)
		if res.Unauthorized() {
			if err := m.clear(ctx); err != nil {
				return nil, err
			}
			return nil, ErrExpired
		}
		if res.Success && res.Data != nil {
			userID = res.Data.ID
			if err := m.state.SetValue(ctx, store.KeyUserID, userID); err != nil {
				return nil, err
			}
		}
	}

	s := New(context.Background(), token, userID)
	m.watch(s)
	m.logger.Info("session resumed", zap.String("session_id", s.ID()), zap.String("user_id", s.UserID()))
	return s, nil
}

// Login exchanges credentials for a token, persists it and starts a
// session. Backend messages are returned verbatim as *api.Error.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &api.Error{Message: "Email and password are required"}
	}

	res := m.auth.Login(ctx, email, password)
	if err := res.Err(); err != nil {
		m.logger.Warn("login failed", zap.String("email", email), zap.String("error", res.Error))
		return nil, err
	}
	if res.Data == nil || res.Data.Token == "" {
		return nil, &api.Error{Status: res.Status, Message: api.MsgInvalidResponse}
	}

	if err := m.vault.Set(credential.TokenKey, res.Data.Token); err != nil {
		return nil, err
	}
	if res.Data.User.ID != "" {
		if err := m.state.SetValue(ctx, store.KeyUserID, res.Data.User.ID); err != nil {
			return nil, err
		}
	}

	s := New(context.Background(), res.Data.Token, res.Data.User.ID)
	m.watch(s)
	m.logger.Info("logged in", zap.String("session_id", s.ID()), zap.String("user_id", s.UserID()))
	return s, nil
}

// Logout ends s (when non-nil) and forgets the persisted token and user id.
func (m *Manager) Logout(ctx context.Context, s *Session) error {
	if s != nil {
		s.End()
	}
	if err := m.clear(ctx); err != nil {
		return err
	}
	m.logger.Info("logged out")
	return nil
}

// RequestPasswordReset asks the backend to send a reset email and records
// a one-shot flag so the next start can show a notice.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	res := m.auth.ForgotPassword(ctx, strings.TrimSpace(email))
	if err := res.Err(); err != nil {
		return err
	}
	return m.state.SetValue(ctx, store.KeyPasswordResetSent, "1")
}

// TakePasswordResetNotice reports whether a reset email was just sent and
// clears the flag, so the notice is shown once.
func (m *Manager) TakePasswordResetNotice(ctx context.Context) bool {
	_, ok, err := m.state.TakeValue(ctx, store.KeyPasswordResetSent)
	if err != nil {
		m.logger.Warn("reading password reset flag", zap.Error(err))
		return false
	}
	return ok
}

// watch clears persisted credentials when s ends because of token loss.
func (m *Manager) watch(s *Session) {
	s.OnEnd(func(s *Session) {
		if !s.Expired() {
			return
		}
		m.logger.Warn("session expired by backend", zap.String("session_id", s.ID()))
		if err := m.clear(context.Background()); err != nil {
			m.logger.Error("clearing expired credentials", zap.Error(err))
		}
	})
}

func (m *Manager) clear(ctx context.Context) error {
	if err := m.vault.Delete(credential.TokenKey); err != nil {
		return err
	}
	return m.state.DeleteValue(ctx, store.KeyUserID)
}
