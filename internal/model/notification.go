package model

import (
	"encoding/json"
	"time"
)

// NotificationType is the closed set of event kinds the backend emits.
type NotificationType string

const (
	NotificationOrderPlaced     NotificationType = "order_placed"
	NotificationOrderConfirmed  NotificationType = "order_confirmed"
	NotificationOrderShipped    NotificationType = "order_shipped"
	NotificationOrderDelivered  NotificationType = "order_delivered"
	NotificationOrderCancelled  NotificationType = "order_cancelled"
	NotificationPaymentReceived NotificationType = "payment_received"
	NotificationPaymentFailed   NotificationType = "payment_failed"
	NotificationPaymentRefunded NotificationType = "payment_refunded"
	NotificationSwapRequest     NotificationType = "swap_request"
	NotificationSwapAccepted    NotificationType = "swap_accepted"
	NotificationSwapRejected    NotificationType = "swap_rejected"
	NotificationBidPlaced       NotificationType = "bid_placed"
	NotificationBidAccepted     NotificationType = "bid_accepted"
	NotificationBidRejected     NotificationType = "bid_rejected"
	NotificationOutbid          NotificationType = "outbid"
	NotificationWalletFunded    NotificationType = "wallet_funded"
	NotificationGeneral         NotificationType = "general"
)

// Category groups notification types for display and filtering.
type Category string

const (
	CategoryOrder   Category = "order"
	CategoryPayment Category = "payment"
	CategorySwap    Category = "swap"
	CategoryBid     Category = "bid"
	CategoryGeneric Category = "generic"
)

var notificationCategories = map[NotificationType]Category{
	NotificationOrderPlaced:     CategoryOrder,
	NotificationOrderConfirmed:  CategoryOrder,
	NotificationOrderShipped:    CategoryOrder,
	NotificationOrderDelivered:  CategoryOrder,
	NotificationOrderCancelled:  CategoryOrder,
	NotificationPaymentReceived: CategoryPayment,
	NotificationPaymentFailed:   CategoryPayment,
	NotificationPaymentRefunded: CategoryPayment,
	NotificationWalletFunded:    CategoryPayment,
	NotificationSwapRequest:     CategorySwap,
	NotificationSwapAccepted:    CategorySwap,
	NotificationSwapRejected:    CategorySwap,
	NotificationBidPlaced:       CategoryBid,
	NotificationBidAccepted:     CategoryBid,
	NotificationBidRejected:     CategoryBid,
	NotificationOutbid:          CategoryBid,
	NotificationGeneral:         CategoryGeneric,
}

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	_, ok := notificationCategories[t]
	return ok
}

// Category returns the lifecycle group t belongs to.
func (t NotificationType) Category() Category {
	if c, ok := notificationCategories[t]; ok {
		return c
	}
	return CategoryGeneric
}

// UnmarshalJSON maps unknown type strings onto NotificationGeneral so the
// set stays closed on the client side.
func (t *NotificationType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	nt := NotificationType(s)
	if !nt.Valid() {
		nt = NotificationGeneral
	}
	*t = nt
	return nil
}

// Notification is a server-issued record describing an event relevant to
// the signed-in user.
type Notification struct {
	// ID is the server-assigned identifier. It never changes.
	ID string `json:"id"`

	// UserID references the owning user.
	UserID string `json:"userId"`

	Title   string           `json:"title"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`

	// IsRead only ever moves from false to true.
	IsRead bool `json:"isRead"`

	// Data is the free-form payload attached by the backend
	// (order ids, payment references, amounts).
	Data map[string]any `json:"data,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UnmarshalJSON accepts the backend's "_id" as an alias of "id".
func (n *Notification) UnmarshalJSON(data []byte) error {
	type plain Notification
	aux := struct {
		*plain
		MongoID string `json:"_id"`
	}{plain: (*plain)(n)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = aux.MongoID
	}
	if n.Type == "" {
		n.Type = NotificationGeneral
	}
	return nil
}

// Clone returns a copy of n whose Data map is not shared with n.
func (n Notification) Clone() Notification {
	if n.Data != nil {
		data := make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			data[k] = v
		}
		n.Data = data
	}
	return n
}

// Pagination describes the position of a page within a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// HasNext reports whether a page after the current one exists.
func (p Pagination) HasNext() bool {
	return p.Page < p.Pages
}

// NotificationPage is one page of the notification listing.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Pagination    Pagination     `json:"pagination"`

	// UnreadCount is the server's count across all pages, when supplied.
	UnreadCount *int `json:"unreadCount,omitempty"`
}

// UnreadCount is the payload of the unread-count endpoint.
type UnreadCount struct {
	Count int `json:"count"`
}

// CountUnread returns the number of entries in ns that are not read.
func CountUnread(ns []Notification) int {
	n := 0
	for _, x := range ns {
		if !x.IsRead {
			n++
		}
	}
	return n
}
