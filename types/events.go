package types

import (
	"strconv"

	"github.com/tendermint/tendermint/crypto"
)

// Reserved event types emitted by the pricing and market engines.
const (
	EventTypePriceUpdated     = "price_updated"
	EventTypeVolatilityAlert  = "volatility_alert"
	EventTypeBuyCredit        = "buy_credit"
	EventTypeReturnCredits    = "return_credits"
	EventTypeProjectValidated = "project_validated"
	EventTypePenalty          = "penalty"
)

// Reasons carried by EventPriceUpdated.
const (
	PriceReasonInitialized = "initialized"
	PriceReasonTrade       = "trade"
	PriceReasonModel       = "model_change"
	PriceReasonQuality     = "quality_update"
)

// Attribute is a key/value pair attached to an event.
type Attribute struct {
	Key   string
	Value string
}

// Event is a best-effort notification included with the transaction result.
type Event interface {
	EventType() string
	Attributes() []Attribute
}

type EventPriceUpdated struct {
	ProjectID uint64
	OldPrice  uint64
	NewPrice  uint64
	Reason    string
}

type EventVolatilityAlert struct {
	ProjectID uint64
	// ChangePermille is the absolute one-step price move in parts per thousand.
	ChangePermille uint64
}

// EventTrade is emitted as buy_credit for buys and return_credits for sells.
type EventTrade struct {
	Buy    bool
	Actor  crypto.Address
	Amount uint64
	Price  uint64
	Total  uint64
}

type EventProjectValidated struct {
	Seller    crypto.Address
	ProjectID uint64
	IsValid   bool
}

type EventPenalty struct {
	Seller    crypto.Address
	ProjectID uint64
}

func (EventPriceUpdated) EventType() string     { return EventTypePriceUpdated }
func (EventVolatilityAlert) EventType() string  { return EventTypeVolatilityAlert }
func (EventProjectValidated) EventType() string { return EventTypeProjectValidated }
func (EventPenalty) EventType() string          { return EventTypePenalty }

func (e EventTrade) EventType() string {
	if e.Buy {
		return EventTypeBuyCredit
	}
	return EventTypeReturnCredits
}

func (e EventPriceUpdated) Attributes() []Attribute {
	return []Attribute{
		{"project", u64(e.ProjectID)},
		{"old_price", u64(e.OldPrice)},
		{"new_price", u64(e.NewPrice)},
		{"reason", e.Reason},
	}
}

func (e EventVolatilityAlert) Attributes() []Attribute {
	return []Attribute{
		{"project", u64(e.ProjectID)},
		{"change_permille", u64(e.ChangePermille)},
	}
}

func (e EventTrade) Attributes() []Attribute {
	return []Attribute{
		{"actor", e.Actor.String()},
		{"amount", u64(e.Amount)},
		{"price", u64(e.Price)},
		{"total", u64(e.Total)},
	}
}

func (e EventProjectValidated) Attributes() []Attribute {
	return []Attribute{
		{"seller", e.Seller.String()},
		{"project", u64(e.ProjectID)},
		{"is_valid", strconv.FormatBool(e.IsValid)},
	}
}

func (e EventPenalty) Attributes() []Attribute {
	return []Attribute{
		{"seller", e.Seller.String()},
		{"project", u64(e.ProjectID)},
	}
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

//-----------------------------------------------------------------------------

// EventManager collects the events emitted while executing one transaction.
// A nil *EventManager discards everything.
type EventManager struct {
	events []Event
}

func NewEventManager() *EventManager {
	return &EventManager{}
}

func (em *EventManager) Emit(e Event) {
	if em == nil {
		return
	}
	em.events = append(em.events, e)
}

// Events returns the events emitted so far, oldest first.
func (em *EventManager) Events() []Event {
	if em == nil {
		return nil
	}
	return em.events
}
