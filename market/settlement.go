package market

import (
	"github.com/tendermint/tendermint/crypto"

	ecomath "github.com/ali-3-3-3/EcoXChange/libs/math"
	"github.com/ali-3-3-3/EcoXChange/types"
)

const (
	// CollateralRatio is the collateral a seller escrows per listed credit.
	CollateralRatio ecomath.Permille = 1300

	// BonusRatio is paid on top of returned collateral after a successful
	// validation.
	BonusRatio ecomath.Permille = 3
)

// StakeRequired returns the collateral needed to list amount credits of an
// ongoing project, truncated.
func StakeRequired(amount uint64) (uint64, error) {
	return CollateralRatio.Of(amount)
}

// BuyerShare splits a buyer's stake after a shortfall: the buyer is minted
// floor(stake*actual/sold) credits and compensated in cash for the rest.
func BuyerShare(stake, actual, sold uint64) (share, compensation uint64, err error) {
	if actual >= sold {
		return stake, 0, nil
	}
	share, err = ecomath.MulDiv(stake, actual, sold)
	if err != nil {
		return 0, 0, err
	}
	return share, stake - share, nil
}

// Settlement summarizes what a validation distributed.
type Settlement struct {
	ProjectID uint64
	Seller    crypto.Address
	Valid     bool
	Actual    uint64
	Sold      uint64

	// Collateral is the seller collateral held when the project settled.
	Collateral uint64
	// Minted counts credits minted to buyers.
	Minted uint64
	// SellerMinted counts unsold credits minted to the seller.
	SellerMinted uint64
	// Compensation is cash paid to buyers for credits that were not
	// delivered.
	Compensation uint64
	// Refund is all cash paid to the seller, bonus included.
	Refund uint64
	// Bonus is the part of the validation bonus the reserve could pay;
	// BonusShortfall is the rest.
	Bonus          uint64
	BonusShortfall uint64
	// Supply is the project's resaleable balance after settlement.
	Supply uint64
}

// RetainedPenalty reconciles the settlement: the part of the collateral
// not accounted for by minted credits, compensation and refund. It is not
// stored anywhere and may be negative.
func (s Settlement) RetainedPenalty() int64 {
	out := int64(s.Minted) + int64(s.Compensation) + int64(s.Refund)
	return int64(s.Collateral) - out
}

type payout struct {
	from   crypto.Address
	to     crypto.Address
	amount uint64
}

func addChecked(field string, a, b uint64) (uint64, error) {
	sum, err := ecomath.SafeAddUint64(a, b)
	if err != nil {
		return 0, types.ErrInvalid(field, "%v", err)
	}
	return sum, nil
}
