package types

import (
	"time"

	"github.com/tendermint/tendermint/crypto"
)

// Context is the environment a state transition executes in: the block it is
// part of and the sink for its events.
type Context struct {
	Height int64
	Time   time.Time
	Events *EventManager
}

// NewContext returns a Context with a fresh EventManager.
func NewContext(height int64, t time.Time) Context {
	return Context{Height: height, Time: t, Events: NewEventManager()}
}

// Call identifies who invoked a market operation and how much native
// currency they attached to it. Attached funds already sit in the market
// account when the operation runs.
type Call struct {
	Sender crypto.Address
	Funds  uint64
}
