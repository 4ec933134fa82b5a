package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/petalmail/apiserver/internal/metrics"
	"go.uber.org/zap"
)

const (
	JWTError       = "jwt-error"
	UserRegistered = "user.registered"
	EmailSent      = "email.sent"
	EmailDeleted   = "email.deleted"
)

const (
	publishTimeout   = 2 * time.Second
	defaultQueueSize = 256
)

// Event is the JSON document published for every application event.
type Event struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurredAt"`
	RequestID  string    `json:"requestId,omitempty"`
	Data       any       `json:"data,omitempty"`
}

// JWTErrorData describes a request rejected for carrying a bad token.
type JWTErrorData struct {
	Error      string `json:"error"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remoteAddr"`
}

// Publisher is the slice of mq.Backend the bus needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Emitter raises application events.
type Emitter interface {
	Emit(ctx context.Context, name string, data any)
}

// Bus publishes events to a single channel from one background goroutine,
// so a slow broker never holds up the request that raised the event.
// Publishing is best-effort: failures and overflow are logged and counted
// but never returned to the caller.
type Bus struct {
	publisher Publisher
	channel   string
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan outgoing
	done   chan struct{}
}

type outgoing struct {
	name    string
	payload []byte
}

// NewBus starts the publishing goroutine. Close stops it.
func NewBus(publisher Publisher, channel string, logger *zap.Logger) *Bus {
	return newBus(publisher, channel, logger, defaultQueueSize)
}

func newBus(publisher Publisher, channel string, logger *zap.Logger, queueSize int) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
		now:       time.Now,
		queue:     make(chan outgoing, queueSize),
		done:      make(chan struct{}),
	}
	go b.run()
	return b
}

// Emit encodes the event and queues it. It never blocks; when the queue is
// full the event is dropped.
func (b *Bus) Emit(ctx context.Context, name string, data any) {
	event := Event{
		Name:       name,
		OccurredAt: b.now().UTC(),
		RequestID:  middleware.GetReqID(ctx),
		Data:       data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("encode event", zap.String("event", name), zap.Error(err))
		metrics.IncrementEventPublished(name, "encode_error")
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.drop(name, "bus closed")
		return
	}
	select {
	case b.queue <- outgoing{name: name, payload: payload}:
	default:
		b.drop(name, "queue full")
	}
}

// Close stops accepting events and waits until the queued ones are
// published or ctx is done.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) run() {
	defer close(b.done)
	for msg := range b.queue {
		b.publish(msg)
	}
}

func (b *Bus) publish(msg outgoing) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	id, err := b.publisher.Publish(ctx, b.channel, msg.payload, map[string]string{"event": msg.name})
	if err != nil {
		b.logger.Warn("publish event",
			zap.String("event", msg.name),
			zap.String("channel", b.channel),
			zap.Error(err),
		)
		metrics.IncrementEventPublished(msg.name, "error")
		return
	}

	b.logger.Debug("event published",
		zap.String("event", msg.name),
		zap.String("message_id", id),
	)
	metrics.IncrementEventPublished(msg.name, "ok")
}

func (b *Bus) drop(name, reason string) {
	b.logger.Warn("drop event", zap.String("event", name), zap.String("reason", reason))
	metrics.IncrementEventPublished(name, "dropped")
}
