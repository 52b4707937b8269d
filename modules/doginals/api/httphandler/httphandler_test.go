package httphandler

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/internal/kvstore/boltkv"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/datagateway"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/epoch"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	kvrepo "github.com/gaze-network/doginals-indexer/modules/doginals/internal/repository/kv"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/usecase"
	"github.com/gaze-network/doginals-indexer/pkg/errorhandler"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerPkScript = append(append([]byte{0x76, 0xa9, 0x14}, make([]byte, 20)...), 0x88, 0xac)
	blockTime     = time.Unix(1_700_000_000, 0).UTC()

	plainId    = ordinals.NewInscriptionId(chainhash.Hash{0x01}, 0)
	delegateId = ordinals.NewInscriptionId(chainhash.Hash{0x02}, 0)
	cycleId    = ordinals.NewInscriptionId(chainhash.Hash{0x03}, 0)
	unknownId  = ordinals.NewInscriptionId(chainhash.Hash{0x09}, 0)
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()

	store, err := boltkv.Open(filepath.Join(t.TempDir(), "doginals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	repo := kvrepo.NewRepository(store)

	require.NoError(t, repo.Update(ctx, 0, func(dg datagateway.DoginalsDataGatewayWithTx) error {
		require.NoError(t, dg.CreateIndexedBlock(ctx, &entity.IndexedBlock{
			Height:    0,
			Hash:      chainhash.Hash{0xaa},
			Timestamp: blockTime,
		}))
		require.NoError(t, dg.PutStats(ctx, &entity.Stats{NextNumber: 3, LostSats: uint128.From64(5)}))

		newInscription := func(id ordinals.InscriptionId, number uint64, sat uint64, content ordinals.Inscription) *entity.Inscription {
			return &entity.Inscription{
				Id:              id,
				Number:          number,
				Sat:             uint128.From64(sat),
				Inscription:     content,
				CreatedAtHeight: 0,
				CreatedAt:       blockTime,
				TxHash:          id.TxHash,
				SatPoint:        ordinals.SatPoint{OutPoint: wire.OutPoint{Hash: id.TxHash}},
				PkScript:        ownerPkScript,
			}
		}
		require.NoError(t, dg.CreateInscription(ctx, newInscription(plainId, 0, 700, ordinals.Inscription{
			ContentType: "text/plain;charset=utf-8",
			Content:     []byte("much wow"),
		})))
		require.NoError(t, dg.CreateInscription(ctx, newInscription(delegateId, 1, 701, ordinals.Inscription{
			Delegate: &plainId,
		})))
		require.NoError(t, dg.CreateInscription(ctx, newInscription(cycleId, 2, 702, ordinals.Inscription{
			Delegate: &cycleId,
		})))

		require.NoError(t, dg.PutTickEntry(ctx, &entity.TickEntry{
			Tick:                "dogi",
			OriginalTick:        "DOGI",
			TotalSupply:         decimal.NewFromInt(1000),
			LimitPerMint:        decimal.NewFromInt(100),
			MintedAmount:        decimal.NewFromInt(100),
			DeployInscriptionId: plainId,
			DeployedBy:          ownerPkScript,
			DeployedAt:          blockTime,
		}))
		require.NoError(t, dg.PutBalance(ctx, &entity.Balance{
			PkScript:            ownerPkScript,
			Tick:                "dogi",
			OverallBalance:      decimal.NewFromInt(100),
			TransferableBalance: decimal.NewFromInt(40),
		}))
		require.NoError(t, dg.PutTransferableLog(ctx, &entity.TransferableLog{
			InscriptionId:     delegateId,
			InscriptionNumber: 1,
			Tick:              "dogi",
			Amount:            decimal.NewFromInt(40),
			Owner:             ownerPkScript,
		}))
		return nil
	}))

	table, err := epoch.New(nil, []epoch.Era{{StartHeight: 0, Subsidy: 1_000}}, 1_000)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: errorhandler.NewHTTPErrorHandler()})
	handler := New(common.NetworkRegtest, usecase.New(repo, nil, table, 8))
	require.NoError(t, handler.Mount(app))
	return app
}

func get(t *testing.T, app *fiber.App, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var resp common.HttpResponse[T]
	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	require.NotNil(t, resp.Result, string(body))
	return *resp.Result
}

func TestGetCurrentBlock(t *testing.T) {
	app := newTestApp(t)

	resp, body := get(t, app, "/v1/doginals/block")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[getCurrentBlockResult](t, body)
	assert.Equal(t, int64(0), result.Height)
	assert.Equal(t, chainhash.Hash{0xaa}.String(), result.Hash)
	assert.Equal(t, uint64(3), result.Inscriptions)
	assert.Equal(t, "5", result.LostSats)
}

func TestGetInscription(t *testing.T) {
	app := newTestApp(t)

	testCases := []struct {
		name   string
		path   string
		status int
		number uint64
	}{
		{name: "by id", path: "/v1/doginals/inscriptions/" + plainId.String(), status: http.StatusOK, number: 0},
		{name: "by number", path: "/v1/doginals/inscriptions/number/1", status: http.StatusOK, number: 1},
		{name: "unknown id", path: "/v1/doginals/inscriptions/" + unknownId.String(), status: http.StatusNotFound},
		{name: "unknown number", path: "/v1/doginals/inscriptions/number/42", status: http.StatusNotFound},
		{name: "malformed id", path: "/v1/doginals/inscriptions/not-an-id", status: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := get(t, app, tc.path)
			require.Equal(t, tc.status, resp.StatusCode, string(body))
			if tc.status != http.StatusOK {
				return
			}
			result := decode[inscription](t, body)
			assert.Equal(t, tc.number, result.Number)
			assert.Equal(t, hex.EncodeToString(ownerPkScript), result.PkScript)
			assert.NotEmpty(t, result.Address)
		})
	}
}

func TestGetContent(t *testing.T) {
	app := newTestApp(t)

	t.Run("own content", func(t *testing.T) {
		resp, body := get(t, app, "/v1/doginals/content/"+plainId.String())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "much wow", string(body))
		assert.Equal(t, "text/plain;charset=utf-8", resp.Header.Get(fiber.HeaderContentType))
	})
	t.Run("delegated content", func(t *testing.T) {
		resp, body := get(t, app, "/v1/doginals/content/"+delegateId.String())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "much wow", string(body))
	})
	t.Run("delegate cycle", func(t *testing.T) {
		resp, _ := get(t, app, "/v1/doginals/content/"+cycleId.String())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
	t.Run("unknown", func(t *testing.T) {
		resp, _ := get(t, app, "/v1/doginals/content/"+unknownId.String())
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGetSat(t *testing.T) {
	app := newTestApp(t)

	t.Run("inscribed", func(t *testing.T) {
		resp, body := get(t, app, "/v1/doginals/sat/700")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := decode[getSatResult](t, body)
		assert.Equal(t, int64(0), result.Height)
		assert.Equal(t, uint64(700), result.Offset)
		assert.Equal(t, "0.700", result.Decimal)
		assert.Equal(t, "common", result.Rarity)
		require.NotNil(t, result.Inscription)
		assert.Equal(t, plainId, result.Inscription.Id)
	})
	t.Run("not inscribed", func(t *testing.T) {
		resp, body := get(t, app, "/v1/doginals/sat/2500")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := decode[getSatResult](t, body)
		assert.Equal(t, int64(2), result.Height)
		assert.Equal(t, uint64(500), result.Offset)
		assert.Equal(t, "2.500", result.Decimal)
		assert.Nil(t, result.Inscription)
	})
	t.Run("first sat of a block", func(t *testing.T) {
		resp, body := get(t, app, "/v1/doginals/sat/2000")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := decode[getSatResult](t, body)
		assert.Equal(t, int64(2), result.Height)
		assert.Equal(t, "uncommon", result.Rarity)
	})
	t.Run("invalid", func(t *testing.T) {
		resp, _ := get(t, app, "/v1/doginals/sat/-1")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetDrc20(t *testing.T) {
	app := newTestApp(t)
	wallet := hex.EncodeToString(ownerPkScript)

	t.Run("tick is case insensitive", func(t *testing.T) {
		resp, body := get(t, app, "/v1/doginals/drc20/ticks/DOGI")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := decode[tickInfo](t, body)
		assert.Equal(t, "DOGI", result.OriginalTick)
		assert.True(t, decimal.NewFromInt(100).Equal(result.MintedAmount))
		assert.False(t, result.Completed)
	})
	t.Run("unknown tick", func(t *testing.T) {
		resp, _ := get(t, app, "/v1/doginals/drc20/ticks/nope")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
	t.Run("balances", func(t *testing.T) {
		resp, body := get(t, app, "/v1/doginals/drc20/balances/"+wallet)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := decode[getBalancesResult](t, body)
		require.Len(t, result.List, 1)
		assert.True(t, decimal.NewFromInt(60).Equal(result.List[0].AvailableBalance))
	})
	t.Run("balances filtered by tick", func(t *testing.T) {
		resp, body := get(t, app, "/v1/doginals/drc20/balances/"+wallet+"?tick=wow")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, decode[getBalancesResult](t, body).List)
	})
	t.Run("transferable", func(t *testing.T) {
		resp, body := get(t, app, "/v1/doginals/drc20/transferable/"+wallet)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := decode[getTransferableResult](t, body)
		require.Len(t, result.List, 1)
		assert.Equal(t, delegateId, result.List[0].InscriptionId)
	})
	t.Run("bad wallet", func(t *testing.T) {
		resp, _ := get(t, app, "/v1/doginals/drc20/balances/zz")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
