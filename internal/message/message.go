// internal/message/message.go
//
// In-process domain event bus.
//
// Context
//   Login, signup, logout, and review handlers announce what happened by
//   publishing an Event.  Subscribers registered at startup (metrics, the
//   audit log) react without the producers knowing about them.  Delivery is
//   synchronous, in subscription order, on the publishing goroutine.  A
//   panicking subscriber is recovered and logged; the rest still run.
//
//   The bus carries facts only.  UI state that must reach a later request
//   (the "please log in" prompt) goes through the session flash instead.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package message

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/logger"
)

// Kind names an event type.
type Kind string

const (
	LoginSucceeded  Kind = "login.succeeded"
	LoginFailed     Kind = "login.failed"
	LoginRequired   Kind = "login.required"
	Logout          Kind = "logout"
	SignupSucceeded Kind = "signup.succeeded"
	SignupFailed    Kind = "signup.failed"
	ReviewSubmitted Kind = "review.submitted"
	ReviewFailed    Kind = "review.failed"
)

// Kinds lists every known kind, for form action validation.
var Kinds = []Kind{
	LoginSucceeded, LoginFailed, LoginRequired, Logout,
	SignupSucceeded, SignupFailed, ReviewSubmitted, ReviewFailed,
}

// Known reports whether k is one of Kinds.
func Known(k Kind) bool {
	for _, x := range Kinds {
		if x == k {
			return true
		}
	}
	return false
}

// Event is one published fact.  Subject is free-form (business id, form id).
type Event struct {
	Kind    Kind
	UserID  string
	Subject string
	Detail  map[string]string
	At      time.Time
}

// Handler consumes events.
type Handler func(ctx context.Context, ev Event)

// Bus is safe for concurrent use.  The zero value is ready.
type Bus struct {
	mu   sync.RWMutex
	subs []Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe appends h.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	b.subs = append(b.subs, h)
	b.mu.Unlock()
}

// Publish delivers ev to every subscriber.  At defaults to now.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	subs := make([]Handler, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, h := range subs {
		deliver(ctx, h, ev)
	}
}

func deliver(ctx context.Context, h Handler, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.FromContext(ctx).Error("event subscriber panicked",
				zap.String("kind", string(ev.Kind)),
				zap.Any("panic", rec))
		}
	}()
	h(ctx, ev)
}

// AuditLog returns a subscriber writing one INFO line per event.
func AuditLog(l *zap.Logger) Handler {
	return func(_ context.Context, ev Event) {
		l.Info("event",
			zap.String("kind", string(ev.Kind)),
			zap.String("user_id", ev.UserID),
			zap.String("subject", ev.Subject),
			zap.Any("detail", ev.Detail),
			zap.Time("at", ev.At))
	}
}
