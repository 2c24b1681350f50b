package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/swapdesk/internal/inbox"
)

// SyncState represents the current state of the inbox poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the poller's last known state.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    string
}

// SyncResultMsg is a tea.Msg sent after each poll.
type SyncResultMsg struct {
	UnreadCount int
	Reloaded    bool
	Error       string
}

// NewNotificationsMsg is a tea.Msg sent when the unread count grew since
// the previous poll.
type NewNotificationsMsg struct {
	Count int
}

// fetchTimeout is the maximum time allowed for a single poll.
const fetchTimeout = 30 * time.Second

// defaultInterval applies when no interval is configured.
const defaultInterval = 60 * time.Second

// Target is the inbox the poller keeps fresh.
type Target interface {
	RefreshUnreadCount(ctx context.Context) bool
	Reload(ctx context.Context)
	Snapshot() inbox.State
}

// Poller periodically refreshes the unread count and reloads the current
// page when new notifications arrive.
type Poller struct {
	target   Target
	interval time.Duration
	logger   *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	resultCh  chan tea.Msg
	triggerCh chan struct{}
	stopCh    chan struct{}
	wg        gosync.WaitGroup

	mu      gosync.Mutex
	running bool
	status  SyncStatus
	primed  bool
}

// New creates a Poller for target. A non-positive interval uses the
// default. logger may be nil.
func New(target Target, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		target:    target,
		ctx:       ctx,
		cancel:    cancel,
		interval:  interval,
		logger:    logger.Named("poller"),
		resultCh:  make(chan tea.Msg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and waits for
// its first message.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine and waits for it to exit. A stopped
// poller cannot be restarted.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

// Refresh triggers an immediate poll with a full reload.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
	return nil
}

// Status returns the poller's current status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(false)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll(false)
		case <-p.triggerCh:
			p.poll(true)
		}
	}
}

// poll refreshes the unread count and reloads the list when the server
// count rose above the local one or force is set. The baseline is the
// store's own count, so local reads and deletes lower it.
func (p *Poller) poll(force bool) {
	p.setStatus(SyncRunning, "")

	ctx, cancel := context.WithTimeout(p.ctx, fetchTimeout)
	defer cancel()

	before := p.target.Snapshot().UnreadCount
	if !p.target.RefreshUnreadCount(ctx) {
		msg := "could not refresh notifications"
		p.setStatus(SyncError, msg)
		p.logger.Debug("poll failed")
		p.send(SyncResultMsg{UnreadCount: p.target.Snapshot().UnreadCount, Error: msg})
		return
	}

	count := p.target.Snapshot().UnreadCount

	p.mu.Lock()
	grew := p.primed && count > before
	p.primed = true
	p.mu.Unlock()

	reloaded := false
	if grew || force {
		p.target.Reload(ctx)
		reloaded = true
		if s := p.target.Snapshot(); s.Err != "" {
			p.setStatus(SyncError, s.Err)
			p.send(SyncResultMsg{UnreadCount: s.UnreadCount, Reloaded: true, Error: s.Err})
			return
		}
		count = p.target.Snapshot().UnreadCount
	}

	p.setStatus(SyncIdle, "")
	if grew {
		delta := count - before
		if delta < 1 {
			delta = 1
		}
		p.logger.Info("new notifications", zap.Int("count", delta))
		p.send(NewNotificationsMsg{Count: delta})
	}
	p.send(SyncResultMsg{UnreadCount: count, Reloaded: reloaded})
}

func (p *Poller) setStatus(state SyncState, errMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = errMsg
	if state == SyncIdle {
		p.status.LastSync = time.Now()
	}
}

// send delivers msg without blocking; messages are dropped when nobody is
// listening.
func (p *Poller) send(msg tea.Msg) {
	select {
	case p.resultCh <- msg:
	default:
	}
}

// waitForResult returns a tea.Cmd that waits for the next poller message.
// It returns nil once the poller has stopped.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-p.resultCh:
			return msg
		case <-p.stopCh:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poller
// message. Call it after handling each SyncResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
