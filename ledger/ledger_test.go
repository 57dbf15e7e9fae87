package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/crypto"
	dbm "github.com/tendermint/tm-db"

	"github.com/ali-3-3-3/EcoXChange/store"
	"github.com/ali-3-3-3/EcoXChange/types"
)

var (
	alice = crypto.AddressHash([]byte("alice"))
	bob   = crypto.AddressHash([]byte("bob"))
)

func newKV() store.KVStore {
	return store.NewCacheStore(dbm.NewMemDB())
}

func TestProjects(t *testing.T) {
	projects := NewProjects(newKV())

	exists, err := projects.Exists(1)
	require.NoError(t, err)
	assert.False(t, exists)
	supply, err := projects.Supply(1)
	require.NoError(t, err)
	assert.Zero(t, supply)

	require.NoError(t, projects.Register(Project{ID: 1, Owner: alice, Supply: 500, Sold: 9}))
	err = projects.Register(Project{ID: 1, Owner: bob, Supply: 1})
	var stateErr types.StateError
	require.ErrorAs(t, err, &stateErr)
	require.Error(t, projects.Register(Project{ID: 2, Owner: alice[:3]}))

	sold, err := projects.Sold(1)
	require.NoError(t, err)
	assert.Zero(t, sold, "register resets counters")

	owned, err := projects.OwnedBy(1, alice)
	require.NoError(t, err)
	assert.True(t, owned)
	owned, err = projects.OwnedBy(1, bob)
	require.NoError(t, err)
	assert.False(t, owned)

	require.NoError(t, projects.SetListed(1, 100))
	require.NoError(t, projects.SetSold(1, 40))
	require.NoError(t, projects.SetSupply(1, 450))
	require.NoError(t, projects.SetCompleted(1))

	proj, found, err := projects.Get(1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, Project{ID: 1, Owner: alice, Supply: 450, Listed: 100, Sold: 40, State: types.ProjectCompleted}, proj)

	require.ErrorAs(t, projects.SetSold(7, 1), &stateErr)

	require.NoError(t, projects.StakeCollateral(alice, 1, 130))
	c, err := projects.StakedCollateral(alice, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 130, c)
	c, err = projects.StakedCollateral(bob, 1)
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestAuth(t *testing.T) {
	auth := NewAuth(newKV())

	ok, err := auth.HasRole(types.RoleAdmin, alice)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, auth.GrantRole(types.RoleAdmin, alice))
	require.Error(t, auth.GrantRole(types.Role("root"), alice))
	ok, err = auth.HasRole(types.RoleAdmin, alice)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = auth.HasRole(types.RoleValidator, alice)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, auth.RevokeRole(types.RoleAdmin, alice))
	ok, err = auth.HasRole(types.RoleAdmin, alice)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, auth.SetPaused(true))
	paused, err := auth.IsPaused()
	require.NoError(t, err)
	assert.True(t, paused)

	require.NoError(t, auth.SetBlacklisted(bob, true))
	bl, err := auth.IsBlacklisted(bob)
	require.NoError(t, err)
	assert.True(t, bl)
	bl, err = auth.IsBlacklisted(alice)
	require.NoError(t, err)
	assert.False(t, bl)
}

func TestReentrancyGuard(t *testing.T) {
	auth := NewAuth(newKV())

	require.NoError(t, auth.Enter("validate_project"))
	err := auth.Enter("buy")
	var reErr types.ReentrancyError
	require.ErrorAs(t, err, &reErr)
	assert.Equal(t, "buy", reErr.Op)
	assert.Equal(t, "validate_project", reErr.Active)

	auth.Exit()
	require.NoError(t, auth.Enter("buy"))
}

func TestBankSend(t *testing.T) {
	hooks := NewHooks()
	bank := NewBank(newKV(), hooks)
	require.NoError(t, bank.SetBalance(alice, 100))

	_, err := bank.Payee(alice[:10])
	require.Error(t, err)
	toBob, err := bank.Payee(bob)
	require.NoError(t, err)
	assert.Equal(t, bob, toBob.Address())

	require.NoError(t, bank.Send(alice, toBob, 40))
	a, err := bank.Balance(alice)
	require.NoError(t, err)
	b, err := bank.Balance(bob)
	require.NoError(t, err)
	assert.EqualValues(t, 60, a)
	assert.EqualValues(t, 40, b)

	err = bank.Send(alice, toBob, 61)
	var fundsErr types.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.EqualValues(t, 61, fundsErr.Required)
	assert.EqualValues(t, 60, fundsErr.Provided)

	require.Error(t, bank.Send(alice, Payee{}, 1))
	require.NoError(t, bank.Send(alice, Payee{}, 0), "zero amount is a no-op")
}

func TestBankReceiveHook(t *testing.T) {
	hooks := NewHooks()
	bank := NewBank(newKV(), hooks)
	require.NoError(t, bank.SetBalance(alice, 10))
	toBob, err := bank.Payee(bob)
	require.NoError(t, err)

	var got uint64
	hooks.Register(bob, func(from crypto.Address, amount uint64) error {
		// the payment is visible to recipient code
		bal, err := bank.Balance(bob)
		require.NoError(t, err)
		got = bal
		return nil
	})
	require.NoError(t, bank.Send(alice, toBob, 3))
	assert.EqualValues(t, 3, got)

	hookErr := errors.New("rejected")
	hooks.Register(bob, func(crypto.Address, uint64) error { return hookErr })
	require.ErrorIs(t, bank.Send(alice, toBob, 1), hookErr)

	hooks.Register(bob, nil)
	require.NoError(t, bank.Send(alice, toBob, 1))
}

func TestCredits(t *testing.T) {
	credits := NewCredits(newKV())
	require.NoError(t, credits.Mint(alice, 7))
	require.NoError(t, credits.Mint(bob, 3))
	require.NoError(t, credits.Mint(bob, 0))

	a, err := credits.BalanceOf(alice)
	require.NoError(t, err)
	assert.EqualValues(t, 7, a)
	total, err := credits.TotalSupply()
	require.NoError(t, err)
	assert.EqualValues(t, 10, total)
}

func TestAccounts(t *testing.T) {
	accounts := NewAccounts(newKV())
	seq, err := accounts.Sequence(alice)
	require.NoError(t, err)
	assert.Zero(t, seq)
	require.NoError(t, accounts.IncrementSequence(alice))
	require.NoError(t, accounts.IncrementSequence(alice))
	seq, err = accounts.Sequence(alice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, seq)
}
