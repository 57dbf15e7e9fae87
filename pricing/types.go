package pricing

import (
	"time"

	ecomath "github.com/ali-3-3-3/EcoXChange/libs/math"
	"github.com/ali-3-3-3/EcoXChange/types"
)

const (
	// BasePrice is the reference price of one credit, in currency units. It
	// is also the price of every project whose pricing is not initialized.
	BasePrice uint64 = 1000

	// DefaultScore is the neutral demand and supply score.
	DefaultScore uint64 = 500

	// MinPriceRatio and MaxPriceRatio bound a project's price relative to its
	// base price.
	MinPriceRatio ecomath.Permille = 500
	MaxPriceRatio ecomath.Permille = 3000

	// VolatilityThreshold is the one-step price move above which a
	// volatility alert is raised.
	VolatilityThreshold ecomath.Permille = 100

	// MaxImpact caps the price impact of a single trade.
	MaxImpact ecomath.Permille = 500

	// DefaultReserveRatio is recorded on new bonding curves.
	DefaultReserveRatio ecomath.Permille = 500

	// MaxHistoryDays bounds a single history query.
	MaxHistoryDays = 366

	scoreStepUp   uint64 = 50
	scoreStepDown uint64 = 25

	twapStoredWeight ecomath.Permille = 700
	twapFreshWeight  ecomath.Permille = 300

	// qualityOffset shifts a quality score into a multiplier: a score of q
	// scales by (qualityOffset+q)/1000, i.e. 50% to 150%.
	qualityOffset uint64 = 500

	curveScale uint64 = 1_000_000

	secondsPerDay = 24 * 60 * 60
)

// MarketConditions are the market-wide multipliers every price computation
// reads. Version increases with every update.
type MarketConditions struct {
	DemandMultiplier uint64    `json:"demand_multiplier"`
	SupplyMultiplier uint64    `json:"supply_multiplier"`
	VolatilityIndex  uint64    `json:"volatility_index"`
	Sentiment        uint64    `json:"sentiment"`
	LastUpdate       time.Time `json:"last_update"`
	Version          uint64    `json:"version"`
}

// DefaultMarketConditions are in effect until the first update.
func DefaultMarketConditions() MarketConditions {
	return MarketConditions{
		DemandMultiplier: types.NeutralPermille,
		SupplyMultiplier: types.NeutralPermille,
		VolatilityIndex:  0,
		Sentiment:        types.NeutralPermille,
	}
}

// ProjectPricing is the pricing record of one project.
type ProjectPricing struct {
	ProjectID     uint64             `json:"project_id"`
	BasePrice     uint64             `json:"base_price"`
	CurrentPrice  uint64             `json:"current_price"`
	MinPrice      uint64             `json:"min_price"`
	MaxPrice      uint64             `json:"max_price"`
	Model         types.PricingModel `json:"model"`
	TotalVolume   uint64             `json:"total_volume"`
	LastTradeTime time.Time          `json:"last_trade_time"`
	QualityScore  uint64             `json:"quality_score"`
	DemandScore   uint64             `json:"demand_score"`
	SupplyScore   uint64             `json:"supply_score"`
}

// BondingCurve prices credits as Intercept + Slope*sold²/1e6.
type BondingCurve struct {
	ReserveRatio ecomath.Permille `json:"reserve_ratio"`
	Slope        uint64           `json:"slope"`
	Intercept    uint64           `json:"intercept"`
}

func defaultCurve(basePrice uint64) BondingCurve {
	return BondingCurve{
		ReserveRatio: DefaultReserveRatio,
		Slope:        basePrice / 10,
		Intercept:    basePrice,
	}
}

// PricingInfo is the read-only view of a project's pricing.
type PricingInfo struct {
	ProjectID    uint64             `json:"project_id"`
	CurrentPrice uint64             `json:"current_price"`
	BasePrice    uint64             `json:"base_price"`
	MinPrice     uint64             `json:"min_price"`
	MaxPrice     uint64             `json:"max_price"`
	Model        types.PricingModel `json:"model"`
	TotalVolume  uint64             `json:"total_volume"`
	QualityScore uint64             `json:"quality_score"`
	DemandScore  uint64             `json:"demand_score"`
	SupplyScore  uint64             `json:"supply_score"`
	// Premium is CurrentPrice/BasePrice as a decimal string, for display.
	Premium string `json:"premium"`
}

// Impact is the projected effect of a trade on a project's price.
type Impact struct {
	ImpactPermille uint64 `json:"impact"`
	ProjectedPrice uint64 `json:"projected_price"`
}

// DailySample aggregates the trades of one project on one UTC day.
type DailySample struct {
	Day       int64  `json:"day"`
	Volume    uint64 `json:"volume"`
	Trades    uint64 `json:"trades"`
	LastPrice uint64 `json:"last_price"`
}

// DayOf returns the day number (days since the Unix epoch) of t.
func DayOf(t time.Time) int64 {
	return t.Unix() / secondsPerDay
}
