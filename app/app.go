package app

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/orderedcode"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto/tmhash"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	dbm "github.com/tendermint/tm-db"

	"github.com/ali-3-3-3/EcoXChange/ledger"
	"github.com/ali-3-3-3/EcoXChange/libs/log"
	"github.com/ali-3-3-3/EcoXChange/store"
	"github.com/ali-3-3-3/EcoXChange/types"
	"github.com/ali-3-3-3/EcoXChange/version"
)

const (
	// Name is reported in ResponseInfo.
	Name = "ecoxchange"

	// Codespace qualifies every non-zero response code.
	Codespace = "ecoxchange"

	prefixAppState = int64(1)
)

var _ abci.Application = (*Application)(nil)

// appState is persisted with every commit so a restarted application can
// report where it left off.
type appState struct {
	Height  int64            `json:"height"`
	AppHash tmbytes.HexBytes `json:"app_hash"`
	Time    time.Time        `json:"time"`
}

func appStateKey() []byte {
	key, err := orderedcode.Append(nil, prefixAppState)
	if err != nil {
		panic(err)
	}
	return key
}

func loadAppState(db dbm.DB) (appState, error) {
	var s appState
	if _, err := store.GetJSON(db, appStateKey(), &s); err != nil {
		return appState{}, fmt.Errorf("load app state: %w", err)
	}
	return s, nil
}

// Application is the EcoXChange state machine. Transactions of a block
// execute against a cache of the committed store, each in its own nested
// cache that is discarded if the transaction fails. Commit flushes the
// block cache in one batch.
type Application struct {
	abci.BaseApplication

	mtx   sync.Mutex
	db    dbm.DB
	state appState

	block      *store.CacheStore
	check      *store.CacheStore
	height     int64
	blockTime  time.Time
	blockStart time.Time

	hooks   *ledger.Hooks
	logger  log.Logger
	metrics *Metrics
}

// Option sets an optional parameter on the Application.
type Option func(*Application)

// WithLogger sets the logger. Defaults to a nop logger.
func WithLogger(logger log.Logger) Option {
	return func(app *Application) { app.logger = logger }
}

// WithMetrics sets the metrics. Defaults to NopMetrics.
func WithMetrics(metrics *Metrics) Option {
	return func(app *Application) { app.metrics = metrics }
}

// WithReceiveHooks sets the registry of code run when an account receives
// currency.
func WithReceiveHooks(hooks *ledger.Hooks) Option {
	return func(app *Application) { app.hooks = hooks }
}

// NewApplication returns an Application over db, resuming from the last
// committed state if there is one.
func NewApplication(db dbm.DB, opts ...Option) (*Application, error) {
	app := &Application{
		db:      db,
		hooks:   ledger.NewHooks(),
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
	}
	for _, opt := range opts {
		opt(app)
	}
	state, err := loadAppState(db)
	if err != nil {
		return nil, err
	}
	app.state = state
	app.check = store.NewCacheStore(db)
	app.logger = app.logger.With("module", "app")
	return app, nil
}

// Close closes the underlying database.
func (app *Application) Close() error {
	return app.db.Close()
}

func (app *Application) Info(req abci.RequestInfo) abci.ResponseInfo {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	cur := version.Current()
	return abci.ResponseInfo{
		Data:             Name,
		Version:          cur.Software,
		AppVersion:       cur.Protocol.Uint64(),
		LastBlockHeight:  app.state.Height,
		LastBlockAppHash: app.state.AppHash,
	}
}

// InitChain seeds the store from the genesis app state. The writes become
// part of the first block.
func (app *Application) InitChain(req abci.RequestInitChain) abci.ResponseInitChain {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	gen, err := GenesisStateFromJSON(req.AppStateBytes)
	if err != nil {
		panic(err)
	}
	block := app.blockStore()
	ctx := types.Context{Height: req.InitialHeight, Time: req.Time}
	if err := gen.apply(newKeepers(ctx, block, app.hooks, app.logger)); err != nil {
		panic(fmt.Errorf("apply genesis: %w", err))
	}
	app.logger.Info("initialized chain", "chain_id", req.ChainId,
		"roles", len(gen.Roles), "projects", len(gen.Projects), "pricing", len(gen.Pricing))
	return abci.ResponseInitChain{}
}

func (app *Application) BeginBlock(req abci.RequestBeginBlock) abci.ResponseBeginBlock {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	app.blockStore()
	app.height = req.Header.Height
	app.blockTime = req.Header.Time
	app.blockStart = time.Now()
	return abci.ResponseBeginBlock{}
}

// CheckTx verifies the signature and sequence of a transaction against the
// mempool's view of the state. It does not execute the message.
func (app *Application) CheckTx(req abci.RequestCheckTx) abci.ResponseCheckTx {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	tx, _, err := decodeTx(req.Tx)
	if err != nil {
		app.metrics.FailedCheckTxs.Add(1)
		return abci.ResponseCheckTx{Code: decodeCode(err), Log: err.Error(), Codespace: Codespace}
	}
	if err := app.useSequence(ledger.NewAccounts(app.check), tx); err != nil {
		app.metrics.FailedCheckTxs.Add(1)
		return abci.ResponseCheckTx{Code: types.CodeFromError(err), Log: err.Error(), Codespace: Codespace}
	}
	return abci.ResponseCheckTx{Code: types.CodeTypeOK, GasWanted: 1}
}

// DeliverTx executes a transaction. A failed transaction leaves no trace in
// the state, its sequence number included.
func (app *Application) DeliverTx(req abci.RequestDeliverTx) abci.ResponseDeliverTx {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	tx, msg, err := decodeTx(req.Tx)
	if err != nil {
		code := decodeCode(err)
		app.metrics.Txs.With("type", "unknown", "code", codeLabel(code)).Add(1)
		return abci.ResponseDeliverTx{Code: code, Log: err.Error(), Codespace: Codespace}
	}
	events, err := app.deliver(tx, msg)
	code := types.CodeFromError(err)
	app.metrics.Txs.With("type", msg.Type(), "code", codeLabel(code)).Add(1)
	if err != nil {
		app.logger.Debug("tx failed", "type", msg.Type(), "code", types.HumanCode(code), "err", err)
		return abci.ResponseDeliverTx{Code: code, Log: err.Error(), Codespace: Codespace}
	}
	return abci.ResponseDeliverTx{Code: types.CodeTypeOK, Events: abciEvents(events)}
}

func (app *Application) deliver(tx *types.Tx, msg types.Msg) ([]types.Event, error) {
	signer, err := tx.Signer()
	if err != nil {
		return nil, err
	}
	cache := store.NewCacheStore(app.blockStore())
	ctx := types.NewContext(app.height, app.blockTime)
	k := newKeepers(ctx, cache, app.hooks, app.logger)

	err = app.useSequence(k.accounts, tx)
	if err == nil {
		err = app.execute(k, types.Call{Sender: signer, Funds: tx.Funds}, msg)
	}
	if err != nil {
		cache.Discard()
		return nil, err
	}
	if err := cache.Write(); err != nil {
		return nil, err
	}
	return ctx.Events.Events(), nil
}

func (app *Application) execute(k keepers, call types.Call, msg types.Msg) error {
	if call.Funds > 0 {
		escrow, err := k.bank.Payee(types.MarketAddress)
		if err != nil {
			return err
		}
		if err := k.bank.Send(call.Sender, escrow, call.Funds); err != nil {
			return err
		}
	}
	return app.handle(k, call, msg)
}

// useSequence checks the transaction carries the signer's next sequence
// number and consumes it.
func (app *Application) useSequence(accounts *ledger.Accounts, tx *types.Tx) error {
	signer, err := tx.Signer()
	if err != nil {
		return err
	}
	seq, err := accounts.Sequence(signer)
	if err != nil {
		return err
	}
	if tx.Sequence != seq {
		return types.BadNonceError{Expected: seq, Got: tx.Sequence}
	}
	return accounts.IncrementSequence(signer)
}

// Commit flushes the block to the database and returns the new app hash,
// which chains the previous hash with the hash of the block's writes.
func (app *Application) Commit() abci.ResponseCommit {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	block := app.blockStore()
	appHash := tmhash.Sum(append(append([]byte{}, app.state.AppHash...), block.Hash()...))
	state := appState{Height: app.height, AppHash: appHash, Time: app.blockTime}
	if err := store.SetJSON(block, appStateKey(), state); err != nil {
		panic(err)
	}
	if err := block.Write(); err != nil {
		panic(fmt.Errorf("commit height %d: %w", state.Height, err))
	}

	app.state = state
	app.block = nil
	app.check = store.NewCacheStore(app.db)

	app.metrics.Height.Set(float64(state.Height))
	if !app.blockStart.IsZero() {
		app.metrics.BlockProcessingTime.Observe(time.Since(app.blockStart).Seconds())
		app.blockStart = time.Time{}
	}
	app.logger.Info("committed state", "height", state.Height, "app_hash", log.NewHexadecimal(state.AppHash))
	return abci.ResponseCommit{Data: appHash}
}

// blockStore returns the cache of the block being executed, opening one if
// needed.
func (app *Application) blockStore() *store.CacheStore {
	if app.block == nil {
		app.block = store.NewCacheStore(app.db)
		app.height = app.state.Height + 1
		app.blockTime = app.state.Time
	}
	return app.block
}

// decodeTx parses a transaction and runs its stateless checks.
func decodeTx(bz []byte) (*types.Tx, types.Msg, error) {
	tx, err := types.DecodeTx(bz)
	if err != nil {
		return nil, nil, err
	}
	msg, err := tx.ValidateBasic()
	if err != nil {
		return nil, nil, err
	}
	return tx, msg, nil
}

// decodeCode maps a decoding error to a response code. Errors without a
// type of their own come from parsing or signature checks.
func decodeCode(err error) types.CodeType {
	code := types.CodeFromError(err)
	if code == types.CodeTypeUnknownError {
		return types.CodeTypeEncodingError
	}
	return code
}

func codeLabel(code types.CodeType) string {
	return strconv.FormatUint(uint64(code), 10)
}
