package events

import (
	"context"
	"sync"

	"casino/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange    EventType = "balance_change"
	EventTypeAccountCreated   EventType = "account_created"
	EventTypeWagerResolved    EventType = "wager_resolved"
	EventTypeWagerForfeited   EventType = "wager_forfeited"
	EventTypeRoundStateChange EventType = "round_state_change"
	EventTypeExclusionCreated EventType = "exclusion_created"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	AccountID       int64
	OldBalance      int64
	NewBalance      int64
	TransactionType models.TransactionType
	ChangeAmount    int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountCreatedEvent represents a new gambler account creation
type AccountCreatedEvent struct {
	AccountID      int64
	UserID         int64
	Username       string
	InitialBalance int64
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// WagerResolvedEvent represents a wager reaching its single resolution
type WagerResolvedEvent struct {
	WagerID    int64
	AccountID  int64
	Game       models.GameKind
	Amount     int64
	Effect     int64
	Multiplier float64
}

func (e WagerResolvedEvent) Type() EventType {
	return EventTypeWagerResolved
}

// WagerForfeitedEvent represents a pending wager closed by idle timeout
type WagerForfeitedEvent struct {
	WagerID   int64
	AccountID int64
	Game      models.GameKind
	Amount    int64
}

func (e WagerForfeitedEvent) Type() EventType {
	return EventTypeWagerForfeited
}

// RoundStateChangeEvent represents a round opening, resolving, or cancelling
type RoundStateChangeEvent struct {
	RoundID  string
	Game     models.GameKind
	OldState string
	NewState string
}

func (e RoundStateChangeEvent) Type() EventType {
	return EventTypeRoundStateChange
}

// ExclusionCreatedEvent represents a new responsible-gaming lockout
type ExclusionCreatedEvent struct {
	AccountID int64
	Source    models.ExclusionSource
	ExpiresAt string
}

func (e ExclusionCreatedEvent) Type() EventType {
	return EventTypeExclusionCreated
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Handlers run asynchronously so emitters never block on display work
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and flushes
// them to the underlying bus only after the database commit succeeds.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional bus over the real one
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events; called after a successful commit.
// Events are emitted on a background context since they outlive the
// transaction that produced them.
func (b *TransactionalBus) Flush(ctx context.Context) {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events; called after rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
