package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nhle/swapdesk/internal/model"
)

// ListOptions controls pagination and filtering of the notification list.
type ListOptions struct {
	Page       int
	PageSize   int
	UnreadOnly bool
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("limit", strconv.Itoa(o.PageSize))
	}
	if o.UnreadOnly {
		q.Set("unreadOnly", "true")
	}
	return q
}

// ListNotifications fetches one page of the user's notifications.
func (c *Client) ListNotifications(
	ctx context.Context,
	token string,
	opts ListOptions,
) Result[model.NotificationPage] {
	return Do[model.NotificationPage](ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/api/notifications",
		Query:  opts.query(),
		Token:  token,
	})
}

// UnreadCount fetches the authoritative unread count.
func (c *Client) UnreadCount(ctx context.Context, token string) Result[model.UnreadCount] {
	return Do[model.UnreadCount](ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/api/notifications/unread-count",
		Token:  token,
	})
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(
	ctx context.Context,
	token string,
	id string,
) Result[model.Notification] {
	return Do[model.Notification](ctx, c, Request{
		Method: http.MethodPatch,
		Path:   "/api/notifications/" + pathID(id) + "/read",
		Token:  token,
	})
}

// MarkAllNotificationsRead marks every notification of the user as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context, token string) Result[struct{}] {
	return Do[struct{}](ctx, c, Request{
		Method: http.MethodPatch,
		Path:   "/api/notifications/read-all",
		Token:  token,
	})
}

// DeleteNotification removes a notification permanently.
func (c *Client) DeleteNotification(ctx context.Context, token string, id string) Result[struct{}] {
	return Do[struct{}](ctx, c, Request{
		Method: http.MethodDelete,
		Path:   "/api/notifications/" + pathID(id),
		Token:  token,
	})
}

// GetPreferences fetches the user's notification channel settings.
func (c *Client) GetPreferences(ctx context.Context, token string) Result[model.Preferences] {
	return Do[model.Preferences](ctx, c, Request{
		Method: http.MethodGet,
		Path:   "/api/notifications/preferences",
		Token:  token,
	})
}

// UpdatePreferences sends only the fields set in u.
func (c *Client) UpdatePreferences(
	ctx context.Context,
	token string,
	u model.PreferencesUpdate,
) Result[model.Preferences] {
	return Do[model.Preferences](ctx, c, Request{
		Method: http.MethodPut,
		Path:   "/api/notifications/preferences",
		Body:   u,
		Token:  token,
	})
}
