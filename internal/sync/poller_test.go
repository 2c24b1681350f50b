package sync

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nhle/swapdesk/internal/inbox"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTarget mirrors the store: count is the server's unread count and
// only reaches the snapshot on a successful refresh.
type fakeTarget struct {
	mu      gosync.Mutex
	count   int
	local   int
	fail    bool
	reloads int
	err     string
}

func (f *fakeTarget) RefreshUnreadCount(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	f.local = f.count
	return true
}

func (f *fakeTarget) Reload(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
}

func (f *fakeTarget) Snapshot() inbox.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return inbox.State{UnreadCount: f.local, Err: f.err}
}

func (f *fakeTarget) set(count int, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count = count
	f.fail = fail
}

// readLocally lowers the local count as a mark-as-read would.
func (f *fakeTarget) readLocally(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local -= n
}

func (f *fakeTarget) reloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloads
}

// next runs cmd with a deadline.
func next(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poller message")
		return nil
	}
}

func TestPoller_InitialPoll(t *testing.T) {
	target := &fakeTarget{count: 3}
	p := New(target, time.Hour, nil)
	defer p.Stop()

	msg := next(t, p.Start())

	res, ok := msg.(SyncResultMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, 3, res.UnreadCount)
	assert.False(t, res.Reloaded)
	assert.Empty(t, res.Error)
	assert.Equal(t, SyncIdle, p.Status().State)
	assert.False(t, p.Status().LastSync.IsZero())
	assert.Zero(t, target.reloadCount())
}

func TestPoller_StartTwice(t *testing.T) {
	p := New(&fakeTarget{}, time.Hour, nil)
	defer p.Stop()

	require.NotNil(t, p.Start())
	assert.Nil(t, p.Start())
}

func TestPoller_GrowingCountReloads(t *testing.T) {
	target := &fakeTarget{count: 1}
	p := New(target, 20*time.Millisecond, nil)
	defer p.Stop()

	_ = next(t, p.Start())
	target.set(4, false)

	var got *NewNotificationsMsg
	for i := 0; i < 20 && got == nil; i++ {
		if m, ok := next(t, p.WaitForNextResult()).(NewNotificationsMsg); ok {
			got = &m
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, 1, target.reloadCount())

	res, ok := next(t, p.WaitForNextResult()).(SyncResultMsg)
	require.True(t, ok)
	assert.True(t, res.Reloaded)
	assert.Equal(t, 4, res.UnreadCount)
}

func TestPoller_LocalReadLowersBaseline(t *testing.T) {
	target := &fakeTarget{count: 2}
	p := New(target, 20*time.Millisecond, nil)
	defer p.Stop()

	_ = next(t, p.Start())
	target.readLocally(1)
	target.set(2, false)

	var got *NewNotificationsMsg
	for i := 0; i < 20 && got == nil; i++ {
		if m, ok := next(t, p.WaitForNextResult()).(NewNotificationsMsg); ok {
			got = &m
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, 1, target.reloadCount())
}

func TestPoller_RefreshForcesReload(t *testing.T) {
	target := &fakeTarget{count: 2}
	p := New(target, time.Hour, nil)
	defer p.Stop()

	_ = next(t, p.Start())
	assert.Nil(t, p.Refresh())

	res, ok := next(t, p.WaitForNextResult()).(SyncResultMsg)
	require.True(t, ok)
	assert.True(t, res.Reloaded)
	assert.Equal(t, 1, target.reloadCount())
}

func TestPoller_ReportsFailure(t *testing.T) {
	target := &fakeTarget{fail: true}
	p := New(target, time.Hour, nil)
	defer p.Stop()

	res, ok := next(t, p.Start()).(SyncResultMsg)
	require.True(t, ok)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, SyncError, p.Status().State)
}

func TestPoller_ReportsReloadError(t *testing.T) {
	target := &fakeTarget{count: 1, err: "Database unavailable"}
	p := New(target, time.Hour, nil)
	defer p.Stop()

	_ = next(t, p.Start())
	p.Refresh()

	res, ok := next(t, p.WaitForNextResult()).(SyncResultMsg)
	require.True(t, ok)
	assert.Equal(t, "Database unavailable", res.Error)
	assert.Equal(t, SyncError, p.Status().State)
}

func TestPoller_StopEndsWaiters(t *testing.T) {
	p := New(&fakeTarget{}, time.Hour, nil)
	_ = next(t, p.Start())

	wait := p.WaitForNextResult()
	p.Stop()
	p.Stop()

	assert.Nil(t, next(t, wait))
}
