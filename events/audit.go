package events

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// RegisterAuditLogger subscribes a structured audit record writer to every
// mutating event on the bus. This is the write-only audit side channel:
// actor, market, amounts, and resulting balances for each successful
// placement, withdrawal, and resolution.
func RegisterAuditLogger(bus *Bus) {
	audit := log.WithField("component", "audit")

	bus.Subscribe(EventTypeBetPlaced, func(ctx context.Context, event Event) {
		e := event.(BetPlacedEvent)
		audit.WithFields(log.Fields{
			"event":      e.Type(),
			"betId":      e.BetID,
			"userId":     e.UserID,
			"marketId":   e.MarketID,
			"side":       e.Side,
			"amount":     e.Amount,
			"fee":        e.Fee,
			"newBalance": e.NewBalance,
			"yesPool":    e.YesPool,
			"noPool":     e.NoPool,
		}).Info("bet placed")
	})

	bus.Subscribe(EventTypeBetWithdrawn, func(ctx context.Context, event Event) {
		e := event.(BetWithdrawnEvent)
		audit.WithFields(log.Fields{
			"event":      e.Type(),
			"betId":      e.BetID,
			"userId":     e.UserID,
			"marketId":   e.MarketID,
			"refund":     e.RefundAmount,
			"penalty":    e.Penalty,
			"newBalance": e.NewBalance,
			"yesPool":    e.YesPool,
			"noPool":     e.NoPool,
		}).Info("bet withdrawn")
	})

	bus.Subscribe(EventTypeMarketResolved, func(ctx context.Context, event Event) {
		e := event.(MarketResolvedEvent)
		audit.WithFields(log.Fields{
			"event":       e.Type(),
			"marketId":    e.MarketID,
			"resolution":  e.Resolution,
			"winners":     e.Winners,
			"losers":      e.Losers,
			"totalPayout": e.TotalPayout,
		}).Info("market resolved")
	})

	bus.Subscribe(EventTypeMarketCreated, func(ctx context.Context, event Event) {
		e := event.(MarketCreatedEvent)
		audit.WithFields(log.Fields{
			"event":     e.Type(),
			"marketId":  e.MarketID,
			"creatorId": e.CreatorID,
			"yesPool":   e.YesPool,
			"noPool":    e.NoPool,
		}).Info("market created")
	})

	bus.Subscribe(EventTypeUserCreated, func(ctx context.Context, event Event) {
		e := event.(UserCreatedEvent)
		audit.WithFields(log.Fields{
			"event":          e.Type(),
			"userId":         e.UserID,
			"wallet":         e.WalletAddress,
			"initialBalance": e.InitialBalance,
		}).Info("user created")
	})
}
