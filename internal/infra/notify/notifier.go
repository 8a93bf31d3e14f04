package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"empire_bot/internal/domain"
	"empire_bot/internal/infra"
)

// Message is one notification waiting for delivery.
type Message struct {
	Text     string
	Category domain.Category
	Ts       time.Time
}

// Sink delivers messages to an external channel.
type Sink interface {
	Send(ctx context.Context, m Message) error
}

// Fanout delivers each message to every sink and joins their errors.
type Fanout []Sink

// Send implements Sink.
func (f Fanout) Send(ctx context.Context, m Message) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notifier logs every enabled notification and forwards it to an optional
// sink through a bounded queue. Notify never blocks: when the queue is full
// the message is dropped and counted.
type Notifier struct {
	enabled map[string]bool
	sink    Sink
	queue   chan Message
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotifier creates a notifier. sink may be nil for log-only operation.
func NewNotifier(cfg infra.NotifyConfig, sink Sink) *Notifier {
	size := cfg.QueueSize
	if size <= 0 {
		size = infra.DefaultNotifyQueueSize
	}
	return &Notifier{
		enabled: cfg.Categories,
		sink:    sink,
		queue:   make(chan Message, size),
		logger:  slog.Default().With("module", "notifier"),
	}
}

var _ domain.Notifier = (*Notifier)(nil)

// Enabled reports whether cat is delivered. Categories missing from the
// configuration are enabled.
func (n *Notifier) Enabled(cat domain.Category) bool {
	on, ok := n.enabled[string(cat)]
	return !ok || on
}

// Notify implements domain.Notifier.
func (n *Notifier) Notify(message string, category domain.Category) {
	if !n.Enabled(category) {
		return
	}

	n.logger.Info(message, slog.String("category", string(category)))

	if n.sink == nil {
		return
	}
	select {
	case n.queue <- Message{Text: message, Category: category, Ts: time.Now()}:
	default:
		infra.NotificationsDropped.Inc()
		n.logger.Warn("Notification queue full, dropping message", slog.String("category", string(category)))
	}
}

// Start runs the delivery worker.
func (n *Notifier) Start(ctx context.Context) {
	if n.sink == nil {
		return
	}
	ctx, n.cancel = context.WithCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-n.queue:
				n.deliver(ctx, m)
			}
		}
	}()
}

// deliver sends one message. A panicking sink loses only that message.
func (n *Notifier) deliver(ctx context.Context, m Message) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Notification sink panic recovered", slog.String("category", string(m.Category)), slog.Any("panic", r))
		}
	}()

	if err := n.sink.Send(ctx, m); err != nil {
		n.logger.Warn("Notification delivery failed", slog.String("category", string(m.Category)), slog.Any("error", err))
	}
}

// Stop stops the delivery worker. Queued messages are discarded.
func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
		n.wg.Wait()
	}
}
