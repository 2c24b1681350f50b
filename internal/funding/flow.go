// Package funding verifies gateway payments for wallet deposits and order
// purchases, and starts new deposits.
package funding

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/swapdesk/internal/api"
	"github.com/nhle/swapdesk/internal/model"
	"github.com/nhle/swapdesk/internal/session"
	"github.com/nhle/swapdesk/internal/store"
)

// User-facing outcome messages.
const (
	MsgMissingReference   = "Payment reference not found"
	MsgSessionExpired     = "Your session has expired. Please log in again."
	MsgOrderNotFound      = "Order not found"
	MsgVerificationFailed = "Payment verification failed"
	MsgDepositVerified    = "Wallet funded successfully"
	MsgOrderPaid          = "Payment verified successfully"
)

// State is the position of a Flow in its lifecycle.
type State int

const (
	Verifying State = iota
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Verifying:
		return "verifying"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Verifier is the payment verification subset of the backend API.
type Verifier interface {
	VerifyDeposit(ctx context.Context, token, reference string) api.Result[model.DepositVerification]
	VerifyOrderPayment(ctx context.Context, token, orderID, reference string) api.Result[model.OrderPaymentVerification]
}

// Outcome is the terminal result of a Flow.
type Outcome struct {
	State     State
	Kind      model.FundingKind
	Reference string
	OrderID   string
	Message   string

	// Transaction and Balance are the backend's figures; the client never
	// computes a balance itself. Balance is only set for deposits.
	Transaction *model.Transaction
	Balance     *float64
	Order       *model.Order
}

// Succeeded reports whether the payment was confirmed.
func (o Outcome) Succeeded() bool { return o.State == Succeeded }

// Option configures a Flow.
type Option func(*Flow)

// WithRecorder records the outcome against the local funding attempt.
func WithRecorder(log store.FundingLog) Option {
	return func(f *Flow) { f.log = log }
}

// WithLogger sets the flow's logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// Flow verifies one gateway reference. It runs at most once.
type Flow struct {
	verifier  Verifier
	sess      *session.Session
	kind      model.FundingKind
	reference string
	orderID   string

	log    store.FundingLog
	logger *zap.Logger

	once    sync.Once
	mu      sync.Mutex
	state   State
	outcome Outcome
}

// NewDepositFlow verifies a wallet deposit reference.
func NewDepositFlow(v Verifier, sess *session.Session, reference string, opts ...Option) *Flow {
	return newFlow(v, sess, model.FundingDeposit, "", reference, opts)
}

// NewOrderFlow verifies a payment made directly for orderID.
func NewOrderFlow(v Verifier, sess *session.Session, orderID, reference string, opts ...Option) *Flow {
	return newFlow(v, sess, model.FundingOrderPayment, orderID, reference, opts)
}

func newFlow(
	v Verifier,
	sess *session.Session,
	kind model.FundingKind,
	orderID, reference string,
	opts []Option,
) *Flow {
	f := &Flow{
		verifier:  v,
		sess:      sess,
		kind:      kind,
		reference: strings.TrimSpace(reference),
		orderID:   strings.TrimSpace(orderID),
		logger:    zap.NewNop(),
		state:     Verifying,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named("funding").With(
		zap.String("kind", string(kind)),
		zap.String("reference", f.reference),
	)
	return f
}

// State returns the current state. It is Verifying until Run completes.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Run performs the verification. Subsequent calls return the first
// outcome without contacting the backend.
func (f *Flow) Run(ctx context.Context) Outcome {
	f.once.Do(func() {
		out := f.verify(ctx)
		f.record(ctx, out)

		f.mu.Lock()
		f.state = out.State
		f.outcome = out
		f.mu.Unlock()
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome
}

func (f *Flow) verify(ctx context.Context) Outcome {
	out := Outcome{Kind: f.kind, Reference: f.reference, OrderID: f.orderID}

	if f.reference == "" {
		return f.fail(out, MsgMissingReference)
	}
	if f.kind == model.FundingOrderPayment && f.orderID == "" {
		return f.fail(out, MsgOrderNotFound)
	}
	token := f.sess.Token()
	if token == "" {
		return f.fail(out, MsgSessionExpired)
	}

	switch f.kind {
	case model.FundingOrderPayment:
		res := f.verifier.VerifyOrderPayment(ctx, token, f.orderID, f.reference)
		if res.Unauthorized() {
			f.sess.Expire()
		}
		if !res.Success || res.Data == nil {
			return f.fail(out, firstNonEmpty(res.Error, MsgVerificationFailed))
		}
		order := res.Data.Order
		out.Order = &order
		out.Transaction = res.Data.Transaction
		out.Message = MsgOrderPaid

	default:
		res := f.verifier.VerifyDeposit(ctx, token, f.reference)
		if res.Unauthorized() {
			f.sess.Expire()
		}
		if !res.Success || res.Data == nil {
			return f.fail(out, firstNonEmpty(res.Error, MsgVerificationFailed))
		}
		tx := res.Data.Transaction
		balance := res.Data.Balance
		out.Transaction = &tx
		out.Balance = &balance
		out.Message = MsgDepositVerified
	}

	out.State = Succeeded
	f.logger.Info("payment verified")
	return out
}

func (f *Flow) fail(out Outcome, msg string) Outcome {
	out.State = Failed
	out.Message = msg
	f.logger.Warn("payment verification failed", zap.String("message", msg))
	return out
}

// record stores the outcome. A reference that was not started from this
// client gets a fresh attempt row.
func (f *Flow) record(ctx context.Context, out Outcome) {
	if f.log == nil || out.Reference == "" {
		return
	}

	status := model.FundingFailed
	if out.Succeeded() {
		status = model.FundingSucceeded
	}

	err := f.log.UpdateAttemptStatus(ctx, out.Reference, status, out.Message)
	if errors.Is(err, store.ErrNotFound) {
		a := model.FundingAttempt{
			Reference: out.Reference,
			UserID:    f.userID(),
			Kind:      out.Kind,
			OrderID:   out.OrderID,
			Status:    status,
			Message:   out.Message,
		}
		if out.Transaction != nil {
			a.Amount = out.Transaction.Amount
		}
		err = f.log.RecordAttempt(ctx, a)
	}
	if err != nil {
		f.logger.Error("recording funding outcome", zap.Error(err))
	}
}

func (f *Flow) userID() string {
	if f.sess == nil {
		return ""
	}
	return f.sess.UserID()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
