package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/swapdesk/internal/model"
)

// FakeToken is the bearer token the fake backend accepts by default.
const FakeToken = "test-token"

// failure is a canned error response for the next call to a route.
type failure struct {
	status  int
	message string
}

// FakeAPI is an in-process stand-in for the marketplace backend. Routes are
// keyed as "METHOD /path" using gin's route patterns, e.g.
// "PATCH /api/notifications/:id/read".
type FakeAPI struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	token         string
	user          model.User
	password      string
	notifications []model.Notification
	pageCounts    bool
	prefs         model.Preferences
	wallet        model.Wallet
	deposits      map[string]model.Deposit
	orders        map[string]model.Order
	failures      map[string][]failure
	calls         map[string]int
	lastBodies    map[string]map[string]any
	delays        map[string]chan struct{}
}

// NewFakeAPI starts a fake backend that is shut down when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	gin.SetMode(gin.TestMode)

	f := &FakeAPI{
		t:          t,
		token:      FakeToken,
		pageCounts: true,
		user:       model.User{ID: "user-1", Name: "Ada", Email: "ada@example.com"},
		password:   "secret",
		prefs:      model.Preferences{EmailNotifications: true},
		wallet:     model.Wallet{Balance: 0, Currency: "NGN"},
		deposits:   make(map[string]model.Deposit),
		orders:     make(map[string]model.Order),
		failures:   make(map[string][]failure),
		calls:      make(map[string]int),
		lastBodies: make(map[string]map[string]any),
		delays:     make(map[string]chan struct{}),
	}

	f.server = httptest.NewServer(f.router())
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake backend.
func (f *FakeAPI) URL() string {
	return f.server.URL
}

// SetNotifications replaces the server-side notification list.
func (f *FakeAPI) SetNotifications(ns ...model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append([]model.Notification(nil), ns...)
}

// OmitPageUnreadCount stops list responses from carrying unreadCount, as
// older backends do.
func (f *FakeAPI) OmitPageUnreadCount() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCounts = false
}

// Push adds n to the top of the server-side list, as a new arrival.
func (f *FakeAPI) Push(n model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append([]model.Notification{n}, f.notifications...)
}

// Notifications returns a copy of the server-side notification list.
func (f *FakeAPI) Notifications() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Notification(nil), f.notifications...)
}

// SetPreferences replaces the server-side preferences.
func (f *FakeAPI) SetPreferences(p model.Preferences) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs = p
}

// Preferences returns the server-side preferences.
func (f *FakeAPI) Preferences() model.Preferences {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs
}

// SetToken changes the bearer token the backend accepts and login returns.
func (f *FakeAPI) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// SetBalance sets the wallet balance.
func (f *FakeAPI) SetBalance(balance float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallet.Balance = balance
}

// AddOrder registers an order awaiting payment.
func (f *FakeAPI) AddOrder(o model.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
}

// FailNext makes the next call to route answer with status and message.
// An empty message produces a body without error fields.
func (f *FakeAPI) FailNext(route string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = append(f.failures[route], failure{status: status, message: message})
}

// Hold blocks calls to route until the returned release func is called.
func (f *FakeAPI) Hold(route string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.delays[route] = ch
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.delays, route)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many times route was hit.
func (f *FakeAPI) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// TotalCalls returns the number of requests received on any route.
func (f *FakeAPI) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// LastBody returns the decoded JSON body of the last call to route.
func (f *FakeAPI) LastBody(route string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBodies[route]
}

func (f *FakeAPI) router() *gin.Engine {
	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(f.track())

	r.POST("/api/auth/login", f.login)
	r.POST("/api/auth/forgot-password", f.forgotPassword)

	authed := r.Group("/api", f.requireToken())
	authed.GET("/auth/me", f.me)
	authed.GET("/notifications", f.listNotifications)
	authed.GET("/notifications/unread-count", f.unreadCount)
	authed.PATCH("/notifications/read-all", f.markAllRead)
	authed.PATCH("/notifications/:id/read", f.markRead)
	authed.DELETE("/notifications/:id", f.deleteNotification)
	authed.GET("/notifications/preferences", f.getPreferences)
	authed.PUT("/notifications/preferences", f.updatePreferences)
	authed.GET("/wallet", f.getWallet)
	authed.POST("/wallet/deposit", f.initiateDeposit)
	authed.GET("/wallet/deposit/verify/:reference", f.verifyDeposit)
	authed.GET("/orders/:id/verify-payment", f.verifyOrderPayment)

	return r
}

// track counts calls, records bodies, applies holds and canned failures.
func (f *FakeAPI) track() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.FullPath()

		var body map[string]any
		if c.Request.ContentLength > 0 {
			_ = c.ShouldBindJSON(&body)
		}

		f.mu.Lock()
		f.calls[route]++
		f.lastBodies[route] = body
		hold := f.delays[route]
		var fail *failure
		if queue := f.failures[route]; len(queue) > 0 {
			fail = &queue[0]
			f.failures[route] = queue[1:]
		}
		f.mu.Unlock()

		if hold != nil {
			<-hold
		}

		if fail != nil {
			if fail.message == "" {
				c.AbortWithStatus(fail.status)
				return
			}
			c.AbortWithStatusJSON(fail.status, gin.H{"success": false, "error": fail.message})
			return
		}

		c.Set("body", body)
		c.Next()
	}
}

func (f *FakeAPI) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		f.mu.Lock()
		want := "Bearer " + f.token
		f.mu.Unlock()

		if c.GetHeader("Authorization") != want {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Unauthorized",
			})
			return
		}
		c.Next()
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func bodyOf(c *gin.Context) map[string]any {
	v, _ := c.Get("body")
	body, _ := v.(map[string]any)
	return body
}

func (f *FakeAPI) login(c *gin.Context) {
	body := bodyOf(c)

	f.mu.Lock()
	defer f.mu.Unlock()

	if body["email"] != f.user.Email || body["password"] != f.password {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
		return
	}
	ok(c, model.LoginResult{Token: f.token, User: f.user})
}

func (f *FakeAPI) forgotPassword(c *gin.Context) {
	if email, _ := bodyOf(c)["email"].(string); !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "A valid email is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Reset link sent"})
}

func (f *FakeAPI) me(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok(c, f.user)
}

func (f *FakeAPI) listNotifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	unreadOnly := c.Query("unreadOnly") == "true"
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var filtered []model.Notification
	for _, n := range f.notifications {
		if unreadOnly && n.IsRead {
			continue
		}
		filtered = append(filtered, n)
	}

	start := (page - 1) * limit
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	pages := (len(filtered) + limit - 1) / limit
	res := model.NotificationPage{
		Notifications: append([]model.Notification{}, filtered[start:end]...),
		Pagination: model.Pagination{
			Page:  page,
			Limit: limit,
			Total: len(filtered),
			Pages: pages,
		},
	}
	if f.pageCounts {
		unread := model.CountUnread(f.notifications)
		res.UnreadCount = &unread
	}
	ok(c, res)
}

func (f *FakeAPI) unreadCount(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok(c, model.UnreadCount{Count: model.CountUnread(f.notifications)})
}

func (f *FakeAPI) markRead(c *gin.Context) {
	id := c.Param("id")

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].IsRead = true
			f.notifications[i].UpdatedAt = time.Now().UTC()
			ok(c, f.notifications[i])
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Notification not found"})
}

func (f *FakeAPI) markAllRead(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.notifications {
		f.notifications[i].IsRead = true
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All notifications marked as read"})
}

func (f *FakeAPI) deleteNotification(c *gin.Context) {
	id := c.Param("id")

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification deleted"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Notification not found"})
}

func (f *FakeAPI) getPreferences(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok(c, f.prefs)
}

func (f *FakeAPI) updatePreferences(c *gin.Context) {
	body := bodyOf(c)

	f.mu.Lock()
	defer f.mu.Unlock()

	if v, set := body["emailNotifications"].(bool); set {
		f.prefs.EmailNotifications = v
	}
	if v, set := body["pushNotifications"].(bool); set {
		f.prefs.PushNotifications = v
	}
	ok(c, f.prefs)
}

func (f *FakeAPI) getWallet(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok(c, f.wallet)
}

func (f *FakeAPI) initiateDeposit(c *gin.Context) {
	amount, _ := bodyOf(c)["amount"].(float64)
	if amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Amount must be greater than zero"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ref := fmt.Sprintf("ref-%d", len(f.deposits)+1)
	d := model.Deposit{
		AuthorizationURL: "https://checkout.paystack.test/" + ref,
		AccessCode:       "ac-" + ref,
		Reference:        ref,
		Amount:           amount,
	}
	f.deposits[ref] = d
	ok(c, d)
}

func (f *FakeAPI) verifyDeposit(c *gin.Context) {
	ref := c.Param("reference")

	f.mu.Lock()
	defer f.mu.Unlock()

	d, found := f.deposits[ref]
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Transaction reference not found"})
		return
	}
	f.wallet.Balance += d.Amount
	ok(c, model.DepositVerification{
		Transaction: model.Transaction{
			ID:           "tx-" + ref,
			Type:         "deposit",
			Amount:       d.Amount,
			Reference:    ref,
			Status:       "success",
			BalanceAfter: f.wallet.Balance,
			CreatedAt:    time.Now().UTC(),
		},
		Balance: f.wallet.Balance,
	})
}

func (f *FakeAPI) verifyOrderPayment(c *gin.Context) {
	id := c.Param("id")
	ref := c.Query("reference")

	f.mu.Lock()
	defer f.mu.Unlock()

	o, found := f.orders[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order not found"})
		return
	}
	if ref == "" || (o.PaymentReference != "" && o.PaymentReference != ref) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Payment could not be verified"})
		return
	}
	o.PaymentStatus = "paid"
	o.PaymentReference = ref
	f.orders[id] = o
	ok(c, model.OrderPaymentVerification{
		Order: o,
		Transaction: &model.Transaction{
			ID:        "tx-" + ref,
			Type:      "order_payment",
			Amount:    o.TotalAmount,
			Reference: ref,
			Status:    "success",
			CreatedAt: time.Now().UTC(),
		},
	})
}
