// Package inbox keeps a session-scoped copy of the user's notifications,
// unread count and notification preferences in step with the backend.
//
// Every mutation is sent to the backend first and applied locally only
// when the backend confirms it. Mutations of the same notification are
// applied in the order they were issued; responses that arrive after the
// store was closed are dropped.
package inbox

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nhle/swapdesk/internal/api"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/session"
)

// DefaultPageSize is used when Load is called with a non-positive size.
const DefaultPageSize = 20

// Backend is the notification subset of the backend API.
type Backend interface {
	ListNotifications(ctx context.Context, token string, opts api.ListOptions) api.Result[model.NotificationPage]
	UnreadCount(ctx context.Context, token string) api.Result[model.UnreadCount]
	MarkNotificationRead(ctx context.Context, token string, id string) api.Result[model.Notification]
	MarkAllNotificationsRead(ctx context.Context, token string) api.Result[struct{}]
	DeleteNotification(ctx context.Context, token string, id string) api.Result[struct{}]
	GetPreferences(ctx context.Context, token string) api.Result[model.Preferences]
	UpdatePreferences(ctx context.Context, token string, u model.PreferencesUpdate) api.Result[model.Preferences]
}

// Query records the arguments of the last Load.
type Query struct {
	Page       int
	PageSize   int
	UnreadOnly bool
}

// State is a point-in-time copy of the store's contents.
type State struct {
	Notifications     []model.Notification
	UnreadCount       int
	Preferences       model.Preferences
	PreferencesLoaded bool
	Pagination        model.Pagination
	Query             Query
	Loading           bool

	// Err is the message of the last failed Load, cleared by the next
	// successful one.
	Err string
}

// Store owns the local notification list for one session.
type Store struct {
	backend Backend
	sess    *session.Session
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	queue  *keyedQueue
	flight singleflight.Group

	changes chan struct{}

	mu          sync.Mutex
	gen         uint64
	closed      bool
	items       []model.Notification
	unread      int
	prefs       model.Preferences
	prefsLoaded bool
	pagination  model.Pagination
	query       Query
	loading     bool
	err         string
}

// New creates a store bound to sess. The store closes itself when the
// session ends. logger may be nil.
func New(backend Backend, sess *session.Session, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	parent := context.Background()
	if sess != nil {
		parent = sess.Context()
	}
	ctx, cancel := context.WithCancel(parent)

	s := &Store{
		backend: backend,
		sess:    sess,
		logger:  logger.Named("inbox"),
		ctx:     ctx,
		cancel:  cancel,
		queue:   newKeyedQueue(),
		changes: make(chan struct{}, 1),
		query:   Query{Page: 1, PageSize: DefaultPageSize},
	}

	if sess != nil {
		sess.OnEnd(func(*session.Session) { s.Close() })
	}
	return s
}

// Changes delivers a signal after any change of state. Signals coalesce.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.Notification, len(s.items))
	for i, n := range s.items {
		items[i] = n.Clone()
	}
	return State{
		Notifications:     items,
		UnreadCount:       s.unread,
		Preferences:       s.prefs,
		PreferencesLoaded: s.prefsLoaded,
		Pagination:        s.pagination,
		Query:             s.query,
		Loading:           s.loading,
		Err:               s.err,
	}
}

// Get returns the local copy of a notification.
func (s *Store) Get(id string) (model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	return model.Notification{}, false
}

// Pending reports whether a mutation of id is queued or in flight.
func (s *Store) Pending(id string) bool {
	return s.queue.busy(id)
}

// Close discards all local state and cancels in-flight requests. Responses
// that arrive afterwards are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	s.items = nil
	s.unread = 0
	s.prefs = model.Preferences{}
	s.prefsLoaded = false
	s.pagination = model.Pagination{}
	s.loading = false
	s.err = ""
	s.mu.Unlock()

	s.cancel()
	s.notify()
	s.logger.Debug("inbox closed")
}

// Mount loads the first page and the preferences concurrently, then
// replaces the page-derived counter with the server's unread count. It is
// the entry point after a session starts.
func (s *Store) Mount(ctx context.Context, pageSize int) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Load(gctx, 1, pageSize, false)
		s.RefreshUnreadCount(gctx)
		return nil
	})
	g.Go(func() error {
		s.LoadPreferences(gctx, false)
		return nil
	})
	_ = g.Wait()
}

// Load fetches one page and replaces the local list with it. Without a
// token it only clears the loading flag. On failure the previous list is
// kept and Err is set.
func (s *Store) Load(ctx context.Context, page, pageSize int, unreadOnly bool) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	token, gen, ok := s.begin()
	if !ok {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
		return
	}

	s.apply(gen, func() { s.loading = true })

	reqCtx, done := s.requestContext(ctx)
	defer done()

	res := s.backend.ListNotifications(reqCtx, token, api.ListOptions{
		Page:       page,
		PageSize:   pageSize,
		UnreadOnly: unreadOnly,
	})
	s.checkAuth(res.Status)

	s.apply(gen, func() {
		s.loading = false
		if !res.Success {
			s.err = res.Error
			s.logger.Warn("loading notifications failed",
				zap.Int("page", page),
				zap.String("error", res.Error),
			)
			return
		}

		s.query = Query{Page: page, PageSize: pageSize, UnreadOnly: unreadOnly}
		s.err = ""

		var data model.NotificationPage
		if res.Data != nil {
			data = *res.Data
		}
		s.items = dedupe(data.Notifications)
		s.pagination = data.Pagination
		if data.UnreadCount != nil {
			s.unread = *data.UnreadCount
		} else {
			s.unread = model.CountUnread(s.items)
		}
	})
}

// Reload repeats the last Load.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	q := s.query
	s.mu.Unlock()
	s.Load(ctx, q.Page, q.PageSize, q.UnreadOnly)
}

// RefreshUnreadCount replaces the counter with the backend's count.
// Concurrent calls share one request.
func (s *Store) RefreshUnreadCount(ctx context.Context) bool {
	token, gen, ok := s.begin()
	if !ok {
		return false
	}

	ch := s.flight.DoChan(fmt.Sprintf("unread-count-%d", gen), func() (interface{}, error) {
		res := s.backend.UnreadCount(s.ctx, token)
		s.checkAuth(res.Status)
		return res, nil
	})

	var res api.Result[model.UnreadCount]
	select {
	case r := <-ch:
		res = r.Val.(api.Result[model.UnreadCount])
	case <-ctx.Done():
		return false
	}

	if !res.Success || res.Data == nil {
		s.logger.Warn("refreshing unread count failed", zap.String("error", res.Error))
		return false
	}
	count := res.Data.Count
	return s.apply(gen, func() { s.unread = count })
}

// MarkAsRead marks one notification read. On success exactly that entry
// is flipped and the counter drops by one, never below zero; an entry that
// was already read locally leaves the counter alone. On failure nothing
// changes and the error is only logged.
func (s *Store) MarkAsRead(ctx context.Context, id string) bool {
	token, gen, ok := s.begin()
	if !ok {
		return false
	}

	release, err := s.queue.acquire(ctx, id)
	if err != nil {
		return false
	}
	defer release()

	reqCtx, done := s.requestContext(ctx)
	defer done()

	res := s.backend.MarkNotificationRead(reqCtx, token, id)
	s.checkAuth(res.Status)
	if !res.Success {
		s.logger.Warn("marking notification read failed",
			zap.String("id", id),
			zap.String("error", res.Error),
		)
		return false
	}

	return s.apply(gen, func() {
		if i := s.indexOf(id); i >= 0 {
			if s.items[i].IsRead {
				return
			}
			s.items[i].IsRead = true
			if res.Data != nil && !res.Data.UpdatedAt.IsZero() {
				s.items[i].UpdatedAt = res.Data.UpdatedAt
			}
		}
		if s.unread > 0 {
			s.unread--
		}
	})
}

// MarkAllAsRead marks every notification read. On success every local
// entry is read and the counter is zero.
func (s *Store) MarkAllAsRead(ctx context.Context) bool {
	token, gen, ok := s.begin()
	if !ok {
		return false
	}

	reqCtx, done := s.requestContext(ctx)
	defer done()

	res := s.backend.MarkAllNotificationsRead(reqCtx, token)
	s.checkAuth(res.Status)
	if !res.Success {
		s.logger.Warn("marking all notifications read failed", zap.String("error", res.Error))
		return false
	}

	return s.apply(gen, func() {
		for i := range s.items {
			s.items[i].IsRead = true
		}
		s.unread = 0
	})
}

// Delete removes a notification. On success the entry leaves the local
// list and the counter is refreshed from the backend, since the local list
// cannot tell whether the entry still counted as unread there.
func (s *Store) Delete(ctx context.Context, id string) bool {
	token, gen, ok := s.begin()
	if !ok {
		return false
	}

	release, err := s.queue.acquire(ctx, id)
	if err != nil {
		return false
	}

	reqCtx, done := s.requestContext(ctx)
	res := s.backend.DeleteNotification(reqCtx, token, id)
	done()
	s.checkAuth(res.Status)

	if !res.Success {
		release()
		s.logger.Warn("deleting notification failed",
			zap.String("id", id),
			zap.String("error", res.Error),
		)
		return false
	}

	applied := s.apply(gen, func() {
		if i := s.indexOf(id); i >= 0 {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
		}
	})
	release()

	if applied {
		s.RefreshUnreadCount(ctx)
	}
	return applied
}

// LoadPreferences fetches the preferences once per session; force fetches
// again. It returns whether preferences are loaded afterwards.
func (s *Store) LoadPreferences(ctx context.Context, force bool) bool {
	s.mu.Lock()
	loaded := s.prefsLoaded
	s.mu.Unlock()
	if loaded && !force {
		return true
	}

	token, gen, ok := s.begin()
	if !ok {
		return false
	}

	reqCtx, done := s.requestContext(ctx)
	defer done()

	res := s.backend.GetPreferences(reqCtx, token)
	s.checkAuth(res.Status)
	if !res.Success || res.Data == nil {
		s.logger.Warn("loading preferences failed", zap.String("error", res.Error))
		return false
	}

	prefs := *res.Data
	return s.apply(gen, func() {
		s.prefs = prefs
		s.prefsLoaded = true
	})
}

// UpdatePreferences sends the set fields of u. On success they are merged
// into the local preferences (the backend's echo wins when present); on
// failure the local preferences stay as they were and false is returned.
func (s *Store) UpdatePreferences(ctx context.Context, u model.PreferencesUpdate) bool {
	if u.Empty() {
		return true
	}

	token, gen, ok := s.begin()
	if !ok {
		return false
	}

	reqCtx, done := s.requestContext(ctx)
	defer done()

	res := s.backend.UpdatePreferences(reqCtx, token, u)
	s.checkAuth(res.Status)
	if !res.Success {
		s.logger.Warn("updating preferences failed", zap.String("error", res.Error))
		return false
	}

	return s.apply(gen, func() {
		if res.Data != nil {
			s.prefs = *res.Data
		} else {
			s.prefs = s.prefs.Apply(u)
		}
		s.prefsLoaded = true
	})
}

// begin captures the token and generation for a new operation. ok is
// false when there is no usable session or the store is closed.
func (s *Store) begin() (token string, gen uint64, ok bool) {
	token = s.sess.Token()
	if token == "" {
		return "", 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", 0, false
	}
	return token, s.gen, true
}

// apply runs fn under the lock if the store is still on generation gen.
func (s *Store) apply(gen uint64, fn func()) bool {
	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("dropping stale response", zap.Uint64("generation", gen))
		return false
	}
	fn()
	s.mu.Unlock()

	s.notify()
	return true
}

// requestContext ties a caller context to the store lifetime.
func (s *Store) requestContext(ctx context.Context) (context.Context, func()) {
	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return reqCtx, func() {
		stop()
		cancel()
	}
}

// checkAuth ends the session when the backend rejected its token.
func (s *Store) checkAuth(status int) {
	if status == 401 && s.sess != nil {
		s.logger.Warn("token rejected, ending session")
		s.sess.Expire()
	}
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// dedupe copies ns keeping the first occurrence of each id.
func dedupe(ns []model.Notification) []model.Notification {
	out := make([]model.Notification, 0, len(ns))
	seen := make(map[string]bool, len(ns))
	for _, n := range ns {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n.Clone())
	}
	return out
}
