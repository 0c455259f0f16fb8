// Package egress delivers core events to every sink that wants them: the
// websocket hub and, optionally, an outbound webhook.
package egress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/pkg/chessdto"
)

// Sink receives events. Publish must not block the caller for long.
type Sink interface {
	Publish(ctx context.Context, ev chessdto.Event)
}

// Fanout forwards each event to all sinks in order.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Publish(ctx context.Context, ev chessdto.Event) {
	for _, s := range f.sinks {
		s.Publish(ctx, ev)
	}
}

// WebhookEvent is the JSON document posted per event.
type WebhookEvent struct {
	Type    string   `json:"type"`
	GameID  string   `json:"gameId,omitempty"`
	To      []string `json:"to,omitempty"`
	Payload any      `json:"payload,omitempty"`
	SentAt  int64    `json:"sentAt"`
}

// Webhook queues events and posts them from one worker goroutine. When the
// queue is full the event is dropped and logged.
type Webhook struct {
	c      *Client
	queue  chan WebhookEvent
	dryrun bool
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewWebhook(c *Client, buffer int, dryrun bool, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 256
	}
	w := &Webhook{c: c, queue: make(chan WebhookEvent, buffer), dryrun: dryrun, logger: logger, done: make(chan struct{})}
	go w.loop()
	return w
}

func (w *Webhook) Publish(_ context.Context, ev chessdto.Event) {
	msg := WebhookEvent{Type: ev.Type, GameID: ev.GameID, To: ev.To, Payload: ev.Payload, SentAt: time.Now().UnixMilli()}
	w.mu.Lock()
	defer w.mu.Unlock()
	// Close 이후 Publish는 무시
	if w.closed {
		return
	}
	select {
	case w.queue <- msg:
	default:
		w.logger.Warn("webhook_queue_full", zap.String("type", ev.Type), zap.String("game_id", ev.GameID))
	}
}

// Close drains queued events and stops the worker.
func (w *Webhook) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *Webhook) loop() {
	defer close(w.done)
	for msg := range w.queue {
		if w.dryrun || w.c == nil {
			w.logger.Info("webhook_dryrun", zap.String("type", msg.Type), zap.String("game_id", msg.GameID))
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := w.c.PostJSON(ctx, msg); err != nil {
			w.logger.Warn("webhook_post_failed", zap.String("type", msg.Type), zap.String("game_id", msg.GameID), zap.Error(err))
		}
		cancel()
	}
}
