package inbox

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/swapdesk/internal/api"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/session"
)

// gatedBackend answers every call successfully, blocking each call until
// the test lets it through.
type gatedBackend struct {
	mu      sync.Mutex
	log     []string
	entered chan string
	gate    chan struct{}
	counts  atomic.Int32
}

func newGatedBackend() *gatedBackend {
	return &gatedBackend{
		entered: make(chan string, 16),
		gate:    make(chan struct{}),
	}
}

func (b *gatedBackend) wait(call string) {
	b.entered <- call
	<-b.gate
	b.mu.Lock()
	b.log = append(b.log, call)
	b.mu.Unlock()
}

func (b *gatedBackend) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.log...)
}

func (b *gatedBackend) ListNotifications(context.Context, string, api.ListOptions) api.Result[model.NotificationPage] {
	return api.Result[model.NotificationPage]{Success: true, Data: &model.NotificationPage{
		Notifications: []model.Notification{{ID: "n1"}, {ID: "n2"}},
	}}
}

func (b *gatedBackend) UnreadCount(context.Context, string) api.Result[model.UnreadCount] {
	b.counts.Add(1)
	b.wait("count")
	return api.Result[model.UnreadCount]{Success: true, Data: &model.UnreadCount{Count: 7}}
}

func (b *gatedBackend) MarkNotificationRead(_ context.Context, _ string, id string) api.Result[model.Notification] {
	b.wait("read " + id)
	return api.Result[model.Notification]{Success: true, Data: &model.Notification{ID: id, IsRead: true}}
}

func (b *gatedBackend) MarkAllNotificationsRead(context.Context, string) api.Result[struct{}] {
	return api.Result[struct{}]{Success: true}
}

func (b *gatedBackend) DeleteNotification(_ context.Context, _ string, id string) api.Result[struct{}] {
	b.wait("delete " + id)
	return api.Result[struct{}]{Success: true}
}

func (b *gatedBackend) GetPreferences(context.Context, string) api.Result[model.Preferences] {
	return api.Result[model.Preferences]{Success: true, Data: &model.Preferences{}}
}

func (b *gatedBackend) UpdatePreferences(context.Context, string, model.PreferencesUpdate) api.Result[model.Preferences] {
	return api.Result[model.Preferences]{Success: true}
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for backend call")
		return ""
	}
}

func newGatedStore(t *testing.T) (*gatedBackend, *session.Session, *Store) {
	t.Helper()
	b := newGatedBackend()
	sess := session.New(context.Background(), "tok", "user-1")
	s := New(b, sess, nil)
	s.Load(context.Background(), 1, 20, false)
	t.Cleanup(s.Close)
	return b, sess, s
}

func TestKeyedQueue_SameKeyRunsInOrder(t *testing.T) {
	q := newKeyedQueue()

	first, err := q.acquire(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, q.busy("a"))

	acquired := make(chan struct{})
	go func() {
		second, err := q.acquire(context.Background(), "a")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder ran before the first released")
	case <-time.After(50 * time.Millisecond):
	}

	other, err := q.acquire(context.Background(), "b")
	require.NoError(t, err)
	other()

	first()
	<-acquired
	assert.False(t, q.busy("a"))
}

func TestKeyedQueue_CancelledWaiterKeepsChain(t *testing.T) {
	q := newKeyedQueue()
	first, err := q.acquire(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.acquire(ctx, "a")
	require.ErrorIs(t, err, context.Canceled)

	third := make(chan struct{})
	go func() {
		release, err := q.acquire(context.Background(), "a")
		if err == nil {
			release()
		}
		close(third)
	}()

	select {
	case <-third:
		t.Fatal("third holder skipped the first")
	case <-time.After(50 * time.Millisecond):
	}
	first()
	<-third
}

func TestStore_SameIDMutationsApplyInIssueOrder(t *testing.T) {
	b, _, s := newGatedStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.MarkAsRead(ctx, "n1")
	}()
	require.Equal(t, "read n1", receive(t, b.entered))
	assert.True(t, s.Pending("n1"))

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Delete(ctx, "n1")
	}()

	select {
	case call := <-b.entered:
		t.Fatalf("%q reached the backend before the earlier mutation finished", call)
	case <-time.After(50 * time.Millisecond):
	}

	b.gate <- struct{}{}
	require.Equal(t, "delete n1", receive(t, b.entered))
	b.gate <- struct{}{}
	require.Equal(t, "count", receive(t, b.entered))
	b.gate <- struct{}{}
	wg.Wait()

	assert.Equal(t, []string{"read n1", "delete n1", "count"}, b.calls())
	_, found := s.Get("n1")
	assert.False(t, found)
	assert.False(t, s.Pending("n1"))
	assert.Equal(t, 7, s.Snapshot().UnreadCount)
}

func TestStore_DifferentIDsDoNotWait(t *testing.T) {
	b, _, s := newGatedStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"n1", "n2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.MarkAsRead(ctx, id)
		}()
	}

	got := []string{receive(t, b.entered), receive(t, b.entered)}
	assert.ElementsMatch(t, []string{"read n1", "read n2"}, got)

	close(b.gate)
	wg.Wait()
}

func TestStore_ResponseAfterCloseIsDropped(t *testing.T) {
	b, _, s := newGatedStore(t)

	done := make(chan bool, 1)
	go func() { done <- s.MarkAsRead(context.Background(), "n1") }()
	receive(t, b.entered)

	s.Close()
	close(b.gate)

	assert.False(t, <-done)
	assert.Empty(t, s.Snapshot().Notifications)
}

func TestStore_ConcurrentCountRefreshesShareOneRequest(t *testing.T) {
	b, _, s := newGatedStore(t)
	ctx := context.Background()

	results := make(chan bool, 3)
	go func() { results <- s.RefreshUnreadCount(ctx) }()
	receive(t, b.entered)

	for range 2 {
		go func() { results <- s.RefreshUnreadCount(ctx) }()
	}
	time.Sleep(50 * time.Millisecond)
	close(b.gate)

	for range 3 {
		assert.True(t, <-results)
	}
	assert.Equal(t, int32(1), b.counts.Load())
	assert.Equal(t, 7, s.Snapshot().UnreadCount)
}
