package types

import (
	"fmt"
	"strings"

	"github.com/tendermint/tendermint/crypto"
)

const (
	// MinTradeAmount and MaxTradeAmount bound every sell and buy so buyer
	// set iteration at settlement stays bounded.
	MinTradeAmount uint64 = 1
	MaxTradeAmount uint64 = 10000

	// MaxScore is the upper bound of quality, demand and supply scores.
	MaxScore uint64 = 1000
)

// MarketAddress is the account that holds escrowed collateral and payments.
var MarketAddress = crypto.AddressHash([]byte("ecoxchange/market"))

// ReserveAddress funds validation bonuses. It is seeded at genesis and is
// never credited by trading.
var ReserveAddress = crypto.AddressHash([]byte("ecoxchange/reserve"))

// ValidateTradeAmount checks amount against the per-operation bounds.
func ValidateTradeAmount(amount uint64) error {
	if amount < MinTradeAmount || amount > MaxTradeAmount {
		return ErrAmountOutOfRange(amount)
	}
	return nil
}

//-----------------------------------------------------------------------------

// Role is a permission held by an address.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleValidator Role = "validator"
	RoleCompany   Role = "company"
)

func (r Role) ValidateBasic() error {
	switch r {
	case RoleAdmin, RoleValidator, RoleCompany:
		return nil
	}
	return ErrInvalid("role", "unknown role %q", string(r))
}

//-----------------------------------------------------------------------------

// PricingModel selects the strategy used to price a project.
type PricingModel uint8

const (
	ModelFixed PricingModel = iota
	ModelSupplyDemand
	ModelBondingCurve
	ModelAuction
	ModelTWAP
	ModelQualityAdjusted
)

var modelNames = [...]string{
	ModelFixed:           "FIXED",
	ModelSupplyDemand:    "SUPPLY_DEMAND",
	ModelBondingCurve:    "BONDING_CURVE",
	ModelAuction:         "AUCTION",
	ModelTWAP:            "TWAP",
	ModelQualityAdjusted: "QUALITY_ADJUSTED",
}

func (m PricingModel) IsValid() bool {
	return int(m) < len(modelNames)
}

func (m PricingModel) String() string {
	if !m.IsValid() {
		return fmt.Sprintf("PricingModel(%d)", uint8(m))
	}
	return modelNames[m]
}

// ParsePricingModel accepts the canonical upper-case name, case-insensitively.
func ParsePricingModel(s string) (PricingModel, error) {
	for i, name := range modelNames {
		if strings.EqualFold(name, s) {
			return PricingModel(i), nil
		}
	}
	return 0, ErrInvalid("model", "unknown pricing model %q", s)
}

// MarshalText implements encoding.TextMarshaler so models are readable in
// JSON transactions, genesis files and query output.
func (m PricingModel) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, ErrInvalid("model", "unknown pricing model %d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *PricingModel) UnmarshalText(text []byte) error {
	parsed, err := ParsePricingModel(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

//-----------------------------------------------------------------------------

// Bounds of the market-wide conditions, in parts per thousand.
const (
	MultiplierMin   uint64 = 500
	MultiplierMax   uint64 = 2000
	VolatilityMax   uint64 = 1000
	SentimentMax    uint64 = 2000
	NeutralPermille uint64 = 1000
)

// ValidateMarketConditions range-checks a market conditions update.
func ValidateMarketConditions(demand, supply, volatility, sentiment uint64) error {
	switch {
	case demand < MultiplierMin || demand > MultiplierMax:
		return ErrInvalid("demand_multiplier", "%d not in [%d, %d]", demand, MultiplierMin, MultiplierMax)
	case supply < MultiplierMin || supply > MultiplierMax:
		return ErrInvalid("supply_multiplier", "%d not in [%d, %d]", supply, MultiplierMin, MultiplierMax)
	case volatility > VolatilityMax:
		return ErrInvalid("volatility_index", "%d above %d", volatility, VolatilityMax)
	case sentiment > SentimentMax:
		return ErrInvalid("sentiment", "%d above %d", sentiment, SentimentMax)
	}
	return nil
}

// ValidateScore checks a quality score.
func ValidateScore(score uint64) error {
	if score > MaxScore {
		return ErrInvalid("quality_score", "%d above %d", score, MaxScore)
	}
	return nil
}

//-----------------------------------------------------------------------------

// ProjectState is the settlement state of a registered project.
type ProjectState uint8

const (
	ProjectOngoing ProjectState = iota
	ProjectCompleted
)

func (s ProjectState) String() string {
	switch s {
	case ProjectOngoing:
		return "ongoing"
	case ProjectCompleted:
		return "completed"
	}
	return "unknown"
}
