package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	EventVersionCreated         = "version.created"
	EventVersionLocked          = "version.locked"
	EventTranslationBatchDone   = "translation.batch_completed"
	EventApprovalSubmitted      = "approval.submitted"
	EventPackageExported        = "package.exported"
	notifyAttemptTimeout        = 2 * time.Second
	defaultNotifyAttempts       = 3
	defaultNotifyInitialBackoff = 200 * time.Millisecond
)

// Event is the message pushed to subscribers after a state change commits.
type Event struct {
	Type       string                 `json:"type"`
	DocumentID string                 `json:"document_id,omitempty"`
	VersionID  string                 `json:"version_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	At         time.Time              `json:"at"`
}

// Publisher is the transport side, satisfied by the websocket hub.
type Publisher interface {
	Publish(ctx context.Context, message []byte) error
}

// Notifier sends events without blocking the caller. Delivery failures are
// logged and never reach the operation that triggered them.
type Notifier struct {
	pub      Publisher
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewNotifier(pub Publisher, logger *zap.Logger) *Notifier {
	return &Notifier{
		pub:      pub,
		attempts: defaultNotifyAttempts,
		backoff:  defaultNotifyInitialBackoff,
		logger:   logger.With(zap.String("service", "notifier")),
	}
}

// WithRetry overrides the attempt count and initial backoff.
func (n *Notifier) WithRetry(attempts int, backoff time.Duration) *Notifier {
	if attempts > 0 {
		n.attempts = attempts
	}
	n.backoff = backoff
	return n
}

func (n *Notifier) Notify(ev Event) {
	if n == nil || n.pub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		delay := n.backoff
		for attempt := 1; attempt <= n.attempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), notifyAttemptTimeout)
			err := n.pub.Publish(ctx, msg)
			cancel()
			if err == nil {
				return
			}
			n.logger.Warn("event delivery failed",
				zap.String("type", ev.Type),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt < n.attempts {
				time.Sleep(delay)
				delay *= 2
			}
		}
		n.logger.Error("event dropped", zap.String("type", ev.Type), zap.String("version_id", ev.VersionID))
	}()
}

// Wait blocks until in-flight deliveries finish. Used on shutdown and in tests.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}
