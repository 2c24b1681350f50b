package sync

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/swapdesk/internal/api"
	"github.com/nhle/swapdesk/internal/inbox"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/session"
	"github.com/nhle/swapdesk/tests/testutil"
)

func unread(id string) model.Notification {
	return model.Notification{ID: id, UserID: "user-1", Title: "Order " + id, Type: model.NotificationOrderPlaced}
}

// newLiveInbox returns a loaded inbox backed by the fake backend.
func newLiveInbox(t *testing.T, ns ...model.Notification) (*inbox.Store, *testutil.FakeAPI) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.SetNotifications(ns...)

	tr := &http.Transport{}
	t.Cleanup(tr.CloseIdleConnections)
	client := api.NewClient(fake.URL(), api.WithHTTPClient(&http.Client{Transport: tr}))

	sess := session.New(context.Background(), testutil.FakeToken, "user-1")
	t.Cleanup(sess.End)

	st := inbox.New(client, sess, nil)
	st.Load(context.Background(), 1, 20, false)
	require.Empty(t, st.Snapshot().Err)
	return st, fake
}

// waitForNew drains poller messages until new notifications are reported.
func waitForNew(t *testing.T, p *Poller) NewNotificationsMsg {
	t.Helper()
	for i := 0; i < 50; i++ {
		if m, ok := next(t, p.WaitForNextResult()).(NewNotificationsMsg); ok {
			return m
		}
	}
	t.Fatal("no new notifications reported")
	return NewNotificationsMsg{}
}

func TestPoller_ArrivalAfterLocalReadReloadsStore(t *testing.T) {
	st, fake := newLiveInbox(t, unread("n2"), unread("n1"))
	p := New(st, 20*time.Millisecond, nil)
	defer p.Stop()

	_ = next(t, p.Start())
	require.True(t, st.MarkAsRead(context.Background(), "n1"))
	require.Equal(t, 1, st.Snapshot().UnreadCount)

	fake.Push(unread("n3"))

	got := waitForNew(t, p)
	assert.Equal(t, 1, got.Count)

	_, ok := st.Get("n3")
	assert.True(t, ok, "arrival missing from the list")
	assert.Equal(t, 2, st.Snapshot().UnreadCount)
	assert.Len(t, st.Snapshot().Notifications, 3)
}

func TestPoller_ArrivalsAfterMarkAllReadAreReported(t *testing.T) {
	st, fake := newLiveInbox(t, unread("n2"), unread("n1"))
	p := New(st, 20*time.Millisecond, nil)
	defer p.Stop()

	_ = next(t, p.Start())
	require.True(t, st.MarkAllAsRead(context.Background()))

	fake.SetNotifications(append([]model.Notification{unread("n4"), unread("n3")}, fake.Notifications()...)...)

	got := waitForNew(t, p)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 2, st.Snapshot().UnreadCount)
	for _, id := range []string{"n3", "n4"} {
		n, ok := st.Get(id)
		require.True(t, ok, id)
		assert.False(t, n.IsRead)
	}
}

func TestPoller_DeleteAloneIsNotAnArrival(t *testing.T) {
	st, _ := newLiveInbox(t, unread("n2"), unread("n1"))
	p := New(st, time.Hour, nil)
	defer p.Stop()

	_ = next(t, p.Start())
	require.True(t, st.Delete(context.Background(), "n1"))

	p.Refresh()
	msg := next(t, p.WaitForNextResult())
	res, ok := msg.(SyncResultMsg)
	require.True(t, ok, "got %T", msg)
	assert.True(t, res.Reloaded)
	assert.Equal(t, 1, res.UnreadCount)
	assert.Len(t, st.Snapshot().Notifications, 1)
}
