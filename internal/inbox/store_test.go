package inbox_test

import (
	"context"
	"fmt"
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

const (
	routeList      = "GET /api/notifications"
	routeCount     = "GET /api/notifications/unread-count"
	routeRead      = "PATCH /api/notifications/:id/read"
	routeReadAll   = "PATCH /api/notifications/read-all"
	routeDelete    = "DELETE /api/notifications/:id"
	routeGetPrefs  = "GET /api/notifications/preferences"
	routeSavePrefs = "PUT /api/notifications/preferences"
)

func note(id string, read bool) model.Notification {
	return model.Notification{
		ID:        id,
		UserID:    "user-1",
		Title:     "Title " + id,
		Message:   "Message " + id,
		Type:      model.NotificationGeneral,
		IsRead:    read,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func setup(t *testing.T, ns ...model.Notification) (*testutil.FakeAPI, *session.Session, *inbox.Store) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.SetNotifications(ns...)

	sess := session.New(context.Background(), testutil.FakeToken, "user-1")
	st := inbox.New(api.NewClient(fake.URL()), sess, nil)
	t.Cleanup(st.Close)
	return fake, sess, st
}

func loaded(t *testing.T, ns ...model.Notification) (*testutil.FakeAPI, *session.Session, *inbox.Store) {
	t.Helper()
	fake, sess, st := setup(t, ns...)
	st.Load(context.Background(), 1, 20, false)
	require.Empty(t, st.Snapshot().Err)
	return fake, sess, st
}

func byID(s inbox.State, id string) (model.Notification, bool) {
	for _, n := range s.Notifications {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}

func TestLoad_ReplacesListAndCounter(t *testing.T) {
	_, _, st := loaded(t, note("n1", false), note("n2", true), note("n3", false))

	s := st.Snapshot()
	assert.Len(t, s.Notifications, 3)
	assert.Equal(t, 2, s.UnreadCount)
	assert.Equal(t, 1, s.Pagination.Page)
	assert.Equal(t, 1, s.Pagination.Pages)
	assert.Equal(t, inbox.Query{Page: 1, PageSize: 20}, s.Query)
	assert.False(t, s.Loading)
}

func TestLoad_Paging(t *testing.T) {
	_, _, st := setup(t, note("n1", false), note("n2", false), note("n3", false))

	st.Load(context.Background(), 2, 2, false)

	s := st.Snapshot()
	require.Len(t, s.Notifications, 1)
	assert.Equal(t, "n3", s.Notifications[0].ID)
	assert.Equal(t, 3, s.UnreadCount)
	assert.Equal(t, 2, s.Pagination.Pages)
	assert.False(t, s.Pagination.HasNext())
}

func TestLoad_UnreadOnly(t *testing.T) {
	fake, _, st := setup(t, note("n1", false), note("n2", true))

	st.Load(context.Background(), 1, 20, true)

	s := st.Snapshot()
	require.Len(t, s.Notifications, 1)
	assert.Equal(t, "n1", s.Notifications[0].ID)
	assert.True(t, s.Query.UnreadOnly)
	assert.Equal(t, 1, fake.Calls(routeList))
}

func TestLoad_FailureKeepsPreviousList(t *testing.T) {
	fake, _, st := loaded(t, note("n1", false))

	fake.FailNext(routeList, http.StatusInternalServerError, "Database unavailable")
	st.Load(context.Background(), 1, 20, false)

	s := st.Snapshot()
	assert.Equal(t, "Database unavailable", s.Err)
	assert.Len(t, s.Notifications, 1)
	assert.Equal(t, 1, s.UnreadCount)
	assert.False(t, s.Loading)

	st.Reload(context.Background())
	assert.Empty(t, st.Snapshot().Err)
}

func TestLoad_WithoutTokenMakesNoRequest(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	st := inbox.New(api.NewClient(fake.URL()), nil, nil)

	st.Load(context.Background(), 1, 20, false)

	assert.Zero(t, fake.TotalCalls())
	assert.False(t, st.Snapshot().Loading)
	assert.False(t, st.MarkAsRead(context.Background(), "n1"))
	assert.False(t, st.RefreshUnreadCount(context.Background()))
	assert.Zero(t, fake.TotalCalls())
}

func TestLoad_DropsDuplicateIDs(t *testing.T) {
	_, _, st := loaded(t, note("n1", false), note("n1", false), note("n2", true))

	assert.Len(t, st.Snapshot().Notifications, 2)
}

func TestMarkAsRead_FlipsOnlyThatEntry(t *testing.T) {
	_, _, st := loaded(t, note("n1", false), note("n2", false))

	require.True(t, st.MarkAsRead(context.Background(), "n1"))

	s := st.Snapshot()
	n1, _ := byID(s, "n1")
	n2, _ := byID(s, "n2")
	assert.True(t, n1.IsRead)
	assert.False(t, n1.UpdatedAt.IsZero())
	assert.False(t, n2.IsRead)
	assert.Equal(t, 1, s.UnreadCount)
}

func TestMarkAsRead_FailureChangesNothing(t *testing.T) {
	fake, _, st := loaded(t, note("n1", false))
	before := st.Snapshot()

	fake.FailNext(routeRead, http.StatusInternalServerError, "boom")
	assert.False(t, st.MarkAsRead(context.Background(), "n1"))

	assert.Equal(t, before, st.Snapshot())
}

func TestMarkAsRead_UnknownIDFails(t *testing.T) {
	_, _, st := loaded(t, note("n1", false))

	assert.False(t, st.MarkAsRead(context.Background(), "missing"))
	assert.Equal(t, 1, st.Snapshot().UnreadCount)
}

func TestMarkAsRead_AlreadyReadKeepsCounter(t *testing.T) {
	_, _, st := loaded(t, note("n1", true), note("n2", false))

	require.True(t, st.MarkAsRead(context.Background(), "n1"))

	assert.Equal(t, 1, st.Snapshot().UnreadCount)
}

func TestMarkAsRead_DistinctIDsDecrementEach(t *testing.T) {
	_, _, st := loaded(t, note("n1", false), note("n2", false), note("n3", false), note("n4", false))

	for _, id := range []string{"n1", "n3", "n4"} {
		require.True(t, st.MarkAsRead(context.Background(), id))
	}

	s := st.Snapshot()
	assert.Equal(t, 1, s.UnreadCount)
	assert.Equal(t, s.UnreadCount, model.CountUnread(s.Notifications))
}

func TestMarkAllAsRead(t *testing.T) {
	fake, _, st := loaded(t, note("n1", false), note("n2", false), note("n3", true))

	require.True(t, st.MarkAllAsRead(context.Background()))

	s := st.Snapshot()
	assert.Zero(t, s.UnreadCount)
	for _, n := range s.Notifications {
		assert.True(t, n.IsRead, n.ID)
	}
	assert.Equal(t, 1, fake.Calls(routeReadAll))
}

func TestMarkAllAsRead_FailureChangesNothing(t *testing.T) {
	fake, _, st := loaded(t, note("n1", false))
	before := st.Snapshot()

	fake.FailNext(routeReadAll, http.StatusBadGateway, "")
	assert.False(t, st.MarkAllAsRead(context.Background()))
	assert.Equal(t, before, st.Snapshot())
}

func TestDelete_RemovesAndRefreshesCounter(t *testing.T) {
	fake, _, st := loaded(t, note("n1", false), note("n2", false))

	require.True(t, st.Delete(context.Background(), "n1"))

	s := st.Snapshot()
	_, found := byID(s, "n1")
	assert.False(t, found)
	assert.Len(t, s.Notifications, 1)
	assert.Equal(t, 1, s.UnreadCount)
	assert.Equal(t, 1, fake.Calls(routeCount))
}

func TestDelete_FailureKeepsEntry(t *testing.T) {
	fake, _, st := loaded(t, note("n1", false))

	fake.FailNext(routeDelete, http.StatusForbidden, "Not allowed")
	assert.False(t, st.Delete(context.Background(), "n1"))

	_, found := byID(st.Snapshot(), "n1")
	assert.True(t, found)
	assert.Zero(t, fake.Calls(routeCount))
}

func TestMarkThenDeleteReadEntry(t *testing.T) {
	_, _, st := loaded(t, note("n1", false), note("n2", true))
	require.Equal(t, 1, st.Snapshot().UnreadCount)

	require.True(t, st.MarkAsRead(context.Background(), "n1"))
	assert.Equal(t, 0, st.Snapshot().UnreadCount)

	require.True(t, st.Delete(context.Background(), "n2"))

	s := st.Snapshot()
	assert.Equal(t, 0, s.UnreadCount)
	require.Len(t, s.Notifications, 1)
	assert.Equal(t, "n1", s.Notifications[0].ID)
	assert.True(t, s.Notifications[0].IsRead)
}

func TestRefreshUnreadCount_UsesServerValue(t *testing.T) {
	fake, _, st := loaded(t, note("n1", false))

	fake.SetNotifications(note("n1", false), note("n9", false), note("n8", false))
	require.True(t, st.RefreshUnreadCount(context.Background()))

	assert.Equal(t, 3, st.Snapshot().UnreadCount)
}

func TestRefreshUnreadCount_FailureKeepsCounter(t *testing.T) {
	fake, _, st := loaded(t, note("n1", false))

	fake.FailNext(routeCount, http.StatusInternalServerError, "")
	assert.False(t, st.RefreshUnreadCount(context.Background()))
	assert.Equal(t, 1, st.Snapshot().UnreadCount)
}

func TestPreferences_LoadedOncePerSession(t *testing.T) {
	fake, _, st := setup(t)
	fake.SetPreferences(model.Preferences{EmailNotifications: true, PushNotifications: true})

	require.True(t, st.LoadPreferences(context.Background(), false))
	require.True(t, st.LoadPreferences(context.Background(), false))
	assert.Equal(t, 1, fake.Calls(routeGetPrefs))

	s := st.Snapshot()
	assert.True(t, s.PreferencesLoaded)
	assert.True(t, s.Preferences.PushNotifications)

	require.True(t, st.LoadPreferences(context.Background(), true))
	assert.Equal(t, 2, fake.Calls(routeGetPrefs))
}

func TestUpdatePreferences_SendsOnlyChangedField(t *testing.T) {
	fake, _, st := setup(t)
	fake.SetPreferences(model.Preferences{EmailNotifications: true})
	require.True(t, st.LoadPreferences(context.Background(), false))

	on := true
	require.True(t, st.UpdatePreferences(context.Background(), model.PreferencesUpdate{PushNotifications: &on}))

	body := fake.LastBody(routeSavePrefs)
	assert.Equal(t, map[string]any{"pushNotifications": true}, body)
	assert.Equal(t, model.Preferences{EmailNotifications: true, PushNotifications: true}, st.Snapshot().Preferences)
}

func TestUpdatePreferences_FailureLeavesPreferences(t *testing.T) {
	fake, _, st := setup(t)
	fake.SetPreferences(model.Preferences{EmailNotifications: true})
	require.True(t, st.LoadPreferences(context.Background(), false))

	fake.FailNext(routeSavePrefs, http.StatusInternalServerError, "Could not save")
	on := true
	assert.False(t, st.UpdatePreferences(context.Background(), model.PreferencesUpdate{PushNotifications: &on}))

	assert.Equal(t, model.Preferences{EmailNotifications: true}, st.Snapshot().Preferences)
}

func TestUpdatePreferences_EmptyIsNoop(t *testing.T) {
	fake, _, st := setup(t)

	assert.True(t, st.UpdatePreferences(context.Background(), model.PreferencesUpdate{}))
	assert.Zero(t, fake.TotalCalls())
}

func TestUnauthorizedExpiresSessionAndClears(t *testing.T) {
	fake, sess, st := loaded(t, note("n1", false))

	fake.SetToken("rotated")
	assert.False(t, st.MarkAsRead(context.Background(), "n1"))

	assert.True(t, sess.Expired())
	assert.False(t, sess.Active())

	s := st.Snapshot()
	assert.Empty(t, s.Notifications)
	assert.Zero(t, s.UnreadCount)
	assert.False(t, s.PreferencesLoaded)

	st.Load(context.Background(), 1, 20, false)
	assert.Equal(t, 1, fake.Calls(routeList))
}

func TestSessionEndDropsInFlightResponse(t *testing.T) {
	fake, sess, st := loaded(t, note("n1", false))
	release := fake.Hold(routeCount)
	defer release()

	done := make(chan bool, 1)
	go func() { done <- st.RefreshUnreadCount(context.Background()) }()

	require.Eventually(t, func() bool { return fake.Calls(routeCount) == 1 }, time.Second, 5*time.Millisecond)
	sess.End()
	release()

	select {
	case applied := <-done:
		assert.False(t, applied)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not return")
	}
	assert.Empty(t, st.Snapshot().Notifications)
	assert.Zero(t, st.Snapshot().UnreadCount)
}

func TestMount_LoadsListAndPreferences(t *testing.T) {
	fake, _, st := setup(t, note("n1", false), note("n2", true))

	st.Mount(context.Background(), 10)

	s := st.Snapshot()
	assert.Len(t, s.Notifications, 2)
	assert.Equal(t, 1, s.UnreadCount)
	assert.True(t, s.PreferencesLoaded)
	assert.Equal(t, 10, s.Query.PageSize)
	assert.Equal(t, 1, fake.Calls(routeList))
	assert.Equal(t, 1, fake.Calls(routeGetPrefs))
	assert.Equal(t, 1, fake.Calls(routeCount))
}

func TestMount_CountsBeyondFirstPage(t *testing.T) {
	var ns []model.Notification
	for i := 0; i < 25; i++ {
		ns = append(ns, note(fmt.Sprintf("n%02d", i), false))
	}
	fake, _, st := setup(t, ns...)
	fake.OmitPageUnreadCount()

	st.Mount(context.Background(), 10)

	s := st.Snapshot()
	assert.Len(t, s.Notifications, 10)
	assert.Equal(t, 25, s.UnreadCount)
}

func TestChangesSignalled(t *testing.T) {
	_, _, st := setup(t, note("n1", false))

	st.Load(context.Background(), 1, 20, false)

	select {
	case <-st.Changes():
	default:
		t.Fatal("expected a change signal")
	}
}

func TestGetAndSnapshotAreCopies(t *testing.T) {
	n := note("n1", false)
	n.Data = map[string]any{"orderId": "o-1"}
	_, _, st := loaded(t, n)

	got, ok := st.Get("n1")
	require.True(t, ok)
	got.Data["orderId"] = "changed"
	got.IsRead = true

	again, _ := st.Get("n1")
	assert.Equal(t, "o-1", again.Data["orderId"])
	assert.False(t, again.IsRead)

	_, ok = st.Get("missing")
	assert.False(t, ok)
}
