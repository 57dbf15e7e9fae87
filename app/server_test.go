package app

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	abcicli "github.com/tendermint/tendermint/abci/client"
	"github.com/tendermint/tendermint/abci/server"
	abci "github.com/tendermint/tendermint/abci/types"
	tmproto "github.com/tendermint/tendermint/proto/tendermint/types"
	dbm "github.com/tendermint/tm-db"

	"github.com/ali-3-3-3/EcoXChange/libs/log"
	"github.com/ali-3-3-3/EcoXChange/types"
)

func TestSocketServer(t *testing.T) {
	c := &testChain{
		t:         t,
		db:        dbm.NewMemDB(),
		admin:     newAccount(),
		validator: newAccount(),
		seller:    newAccount(),
		buyer:     newAccount(),
	}
	app, err := NewApplication(c.db)
	require.NoError(t, err)

	addr := "unix://" + filepath.Join(t.TempDir(), "abci.sock")
	srv, err := server.NewServer(addr, "socket", app)
	require.NoError(t, err)
	srv.SetLogger(log.NewTMLogger(log.TestingLogger()))
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	client := abcicli.NewSocketClient(addr, true)
	client.SetLogger(log.NewTMLogger(log.TestingLogger()))
	require.NoError(t, client.Start())
	t.Cleanup(func() { _ = client.Stop() })

	bz, err := json.Marshal(testGenesis(c))
	require.NoError(t, err)
	_, err = client.InitChainSync(abci.RequestInitChain{Time: genesisTime, InitialHeight: 1, AppStateBytes: bz})
	require.NoError(t, err)

	_, err = client.BeginBlockSync(abci.RequestBeginBlock{Header: tmproto.Header{Height: 1, Time: genesisTime}})
	require.NoError(t, err)
	tx := c.seller.signTx(t, &types.MsgSell{Amount: 10, ProjectID: 1}, 13)
	check, err := client.CheckTxSync(abci.RequestCheckTx{Tx: tx})
	require.NoError(t, err)
	assert.Equal(t, types.CodeTypeOK, check.Code, check.Log)
	res, err := client.DeliverTxSync(abci.RequestDeliverTx{Tx: tx})
	require.NoError(t, err)
	assert.Equal(t, types.CodeTypeOK, res.Code, res.Log)
	_, err = client.EndBlockSync(abci.RequestEndBlock{Height: 1})
	require.NoError(t, err)
	commit, err := client.CommitSync()
	require.NoError(t, err)
	assert.Len(t, commit.Data, 32)

	info, err := client.InfoSync(abci.RequestInfo{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.LastBlockHeight)
	assert.Equal(t, commit.Data, info.LastBlockAppHash)
	assert.Equal(t, Name, info.Data)

	q, err := client.QuerySync(abci.RequestQuery{Path: "/project/1"})
	require.NoError(t, err)
	require.Equal(t, types.CodeTypeOK, q.Code, q.Log)
	var proj struct {
		Listed uint64 `json:"listed"`
	}
	require.NoError(t, json.Unmarshal(q.Value, &proj))
	assert.EqualValues(t, 10, proj.Listed)
}
