package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"pointmarket/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange  EventType = "balance_change"
	EventTypeUserCreated    EventType = "user_created"
	EventTypeMarketCreated  EventType = "market_created"
	EventTypeBetPlaced      EventType = "bet_placed"
	EventTypeBetWithdrawn   EventType = "bet_withdrawn"
	EventTypeMarketResolved EventType = "market_resolved"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          int64
	OldBalance      int64
	NewBalance      int64
	TransactionType models.TransactionType
	ChangeAmount    int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new user creation
type UserCreatedEvent struct {
	UserID         int64
	WalletAddress  string
	InitialBalance int64
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// MarketCreatedEvent represents a newly opened market
type MarketCreatedEvent struct {
	MarketID  int64
	CreatorID int64
	Question  string
	YesPool   int64
	NoPool    int64
}

func (e MarketCreatedEvent) Type() EventType {
	return EventTypeMarketCreated
}

// BetPlacedEvent represents a stake landing in a market pool
type BetPlacedEvent struct {
	BetID      string
	UserID     int64
	MarketID   int64
	Side       models.BetSide
	Amount     int64
	Fee        int64
	NewBalance int64
	YesPool    int64
	NoPool     int64
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// BetWithdrawnEvent represents an early exit from a market
type BetWithdrawnEvent struct {
	BetID        string
	UserID       int64
	MarketID     int64
	RefundAmount int64
	Penalty      int64
	NewBalance   int64
	YesPool      int64
	NoPool       int64
}

func (e BetWithdrawnEvent) Type() EventType {
	return EventTypeBetWithdrawn
}

// MarketResolvedEvent represents a market reaching a terminal state
type MarketResolvedEvent struct {
	MarketID    int64
	Resolution  models.Resolution
	Winners     int
	Losers      int
	TotalPayout int64
}

func (e MarketResolvedEvent) Type() EventType {
	return EventTypeMarketResolved
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
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
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

// A transactional event bus for holding pending events coupled to the Unit of Work.
// Flushes to the underlying event bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// called after successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Use background context for event emission so handlers outlive the
	// transaction context
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// called after db rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
