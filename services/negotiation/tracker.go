package negotiation

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"rentathing/models"
	"rentathing/services/chat"
)

type evaluateFunc func(ctx context.Context, msgs []models.Message) models.NegotiationView

// Tracker keeps one viewer's live negotiation view of a conversation. Every
// message batch triggers a fresh booking fetch and a full recompute. Fetches
// are stamped when they start and a result is only applied if no later
// fetch has been applied already, so a slow stale fetch never overwrites a
// fresher one.
type Tracker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	evaluate evaluateFunc
	onView   func(models.NegotiationView)
	logger   *zap.Logger

	started uint64 // atomic

	mu       sync.Mutex
	applied  uint64
	view     models.NegotiationView
	messages []models.Message
	sub      chat.Subscription
}

func newTracker(ctx context.Context, eval evaluateFunc, onView func(models.NegotiationView), logger *zap.Logger) *Tracker {
	ctx, cancel := context.WithCancel(ctx)
	return &Tracker{ctx: ctx, cancel: cancel, evaluate: eval, onView: onView, logger: logger}
}

// Track subscribes to a conversation and calls onView with every newly
// applied view. onView runs under the tracker's lock and must not block or
// call back into the tracker. Callers must Close the tracker.
func (s *Service) Track(ctx context.Context, sess models.Session, convID string, onView func(models.NegotiationView)) (*Tracker, error) {
	conv, listing, err := s.open(ctx, sess, convID)
	if err != nil {
		return nil, err
	}
	eval := func(ctx context.Context, msgs []models.Message) models.NegotiationView {
		return Reconcile(s.evaluate(ctx, sess, conv, listing, msgs))
	}
	t := newTracker(ctx, eval, onView, s.logger.With(zap.String("conversationID", convID)))
	sub, err := s.Chats.Subscribe(t.ctx, convID, t.OnMessages)
	if err != nil {
		t.cancel()
		return nil, err
	}
	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()
	return t, nil
}

// OnMessages receives a new ordered history and starts a re-fetch.
func (t *Tracker) OnMessages(msgs []models.Message) {
	t.mu.Lock()
	t.messages = msgs
	t.mu.Unlock()
	t.refetch(msgs)
}

// Refresh re-fetches the booking against the last known history, for
// example after an action that changed only the booking record.
func (t *Tracker) Refresh() {
	t.mu.Lock()
	msgs := t.messages
	t.mu.Unlock()
	t.refetch(msgs)
}

func (t *Tracker) refetch(msgs []models.Message) {
	seq := atomic.AddUint64(&t.started, 1)
	go func() {
		v := t.evaluate(t.ctx, msgs)
		if t.ctx.Err() != nil {
			return
		}
		if !t.apply(seq, v) {
			t.logger.Debug("negotiation: dropped stale booking fetch", zap.Uint64("seq", seq))
		}
	}()
}

// apply installs v if it comes from a fetch started after the one currently
// applied.
func (t *Tracker) apply(seq uint64, v models.NegotiationView) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq <= t.applied {
		return false
	}
	t.applied, t.view = seq, v
	if t.onView != nil {
		t.onView(v)
	}
	return true
}

// View returns the most recently applied view.
func (t *Tracker) View() models.NegotiationView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

// Close releases the feed subscription. Fetches still in flight are dropped.
func (t *Tracker) Close() {
	t.cancel()
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}
