package market

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/crypto"
	"pgregory.net/rapid"

	"github.com/ali-3-3-3/EcoXChange/types"
)

// Settling a project distributes exactly the stakes buyers hold, whatever
// the outcome: valid settlements mint every stake, invalid ones split each
// stake into credits and compensation.
func TestSettlementConservesStakes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		listed := rapid.Uint64Range(1, 100).Draw(t, "listed").(uint64)
		collateral, err := StakeRequired(listed)
		require.NoError(t, err)
		require.NoError(t, f.sell(seller, collateral, listed, 1))

		var sold uint64
		for _, b := range []crypto.Address{buyer1, buyer2} {
			left := listed - sold
			if left == 0 {
				break
			}
			amount := rapid.Uint64Range(1, left).Draw(t, "amount").(uint64)
			require.NoError(t, f.buy(b, amount*1000, amount, 1))
			sold += amount
		}

		isValid := rapid.Bool().Draw(t, "valid").(bool)
		actual := rapid.Uint64Range(0, 200).Draw(t, "actual").(uint64)
		s, err := f.validate(1, isValid, actual)
		require.NoError(t, err)

		require.Equal(t, sold, s.Sold)
		require.Equal(t, sold, s.Minted+s.Compensation)
		if isValid || actual >= sold {
			require.Equal(t, sold, s.Minted)
			require.Zero(t, s.Compensation)
		} else {
			require.LessOrEqual(t, s.Minted, actual)
		}

		v := f.view()
		var minted uint64
		for _, b := range []crypto.Address{buyer1, buyer2, seller} {
			bal, err := v.credits.BalanceOf(b)
			require.NoError(t, err)
			minted += bal
		}
		total, err := v.credits.TotalSupply()
		require.NoError(t, err)
		require.Equal(t, total, minted)
		require.Equal(t, s.Minted+s.SellerMinted, total)

		p, _, err := v.projects.Get(1)
		require.NoError(t, err)
		require.Equal(t, types.ProjectCompleted, p.State)
		require.Zero(t, p.Listed)
		require.Zero(t, p.Sold)
	})
}
