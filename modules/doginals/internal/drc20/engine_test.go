package drc20

import (
	"context"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapState struct {
	ticks     map[string]*entity.TickEntry
	balances  map[string]*entity.Balance
	transfers map[ordinals.InscriptionId]*entity.TransferableLog
}

func newMapState() *mapState {
	return &mapState{
		ticks:     make(map[string]*entity.TickEntry),
		balances:  make(map[string]*entity.Balance),
		transfers: make(map[ordinals.InscriptionId]*entity.TransferableLog),
	}
}

func (s *mapState) GetTickEntry(_ context.Context, tick string) (*entity.TickEntry, error) {
	entry, ok := s.ticks[tick]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	copied := *entry
	return &copied, nil
}

func (s *mapState) PutTickEntry(_ context.Context, entry *entity.TickEntry) error {
	s.ticks[entry.Tick] = entry
	return nil
}

func (s *mapState) GetBalance(_ context.Context, pkScript []byte, tick string) (*entity.Balance, error) {
	balance, ok := s.balances[string(pkScript)+tick]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	copied := *balance
	return &copied, nil
}

func (s *mapState) PutBalance(_ context.Context, balance *entity.Balance) error {
	s.balances[string(balance.PkScript)+balance.Tick] = balance
	return nil
}

func (s *mapState) GetTransferableLog(_ context.Context, id ordinals.InscriptionId) (*entity.TransferableLog, error) {
	log, ok := s.transfers[id]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	return log, nil
}

func (s *mapState) PutTransferableLog(_ context.Context, log *entity.TransferableLog) error {
	s.transfers[log.InscriptionId] = log
	return nil
}

func (s *mapState) DeleteTransferableLog(_ context.Context, log *entity.TransferableLog) error {
	delete(s.transfers, log.InscriptionId)
	return nil
}

func (s *mapState) balance(t *testing.T, pkScript []byte, tick string) (overall, transferable string) {
	t.Helper()
	balance, ok := s.balances[string(pkScript)+tick]
	if !ok {
		return "0", "0"
	}
	return balance.OverallBalance.String(), balance.TransferableBalance.String()
}

type engineTest struct {
	t      *testing.T
	engine *Engine
	state  *mapState
	nextId byte
}

func newEngineTest(t *testing.T) *engineTest {
	return &engineTest{t: t, engine: NewEngine(100), state: newMapState()}
}

func (e *engineTest) newId() ordinals.InscriptionId {
	e.nextId++
	var txHash chainhash.Hash
	txHash[0] = e.nextId
	return ordinals.NewInscriptionId(txHash, 0)
}

func (e *engineTest) inscribe(to []byte, content string) (ordinals.InscriptionId, *entity.Drc20Event) {
	e.t.Helper()
	id := e.newId()
	event, err := e.engine.Inscribe(context.Background(), e.state, Inscribed{
		Id:          id,
		Number:      uint64(e.nextId),
		Height:      100,
		ContentType: "text/plain;charset=utf-8",
		Content:     []byte(content),
		To:          to,
	})
	require.NoError(e.t, err)
	return id, event
}

func (e *engineTest) deploy(to []byte, tick, max, lim string) *entity.Drc20Event {
	e.t.Helper()
	_, event := e.inscribe(to, fmt.Sprintf(`{"p":"drc-20","op":"deploy","tick":%q,"max":%q,"lim":%q}`, tick, max, lim))
	return event
}

func (e *engineTest) mint(to []byte, tick, amt string) *entity.Drc20Event {
	e.t.Helper()
	_, event := e.inscribe(to, fmt.Sprintf(`{"p":"drc-20","op":"mint","tick":%q,"amt":%q}`, tick, amt))
	return event
}

func (e *engineTest) inscribeTransfer(to []byte, tick, amt string) (ordinals.InscriptionId, *entity.Drc20Event) {
	e.t.Helper()
	return e.inscribe(to, fmt.Sprintf(`{"p":"drc-20","op":"transfer","tick":%q,"amt":%q}`, tick, amt))
}

func (e *engineTest) send(id ordinals.InscriptionId, from, to []byte) *entity.Drc20Event {
	e.t.Helper()
	event, err := e.engine.Send(context.Background(), e.state, Sent{Id: id, Height: 101, From: from, To: to})
	require.NoError(e.t, err)
	return event
}

var (
	alice = []byte{0x76, 0xa9, 0x01}
	bob   = []byte{0x76, 0xa9, 0x02}
)

func TestDeploy(t *testing.T) {
	t.Run("creates tick entry", func(t *testing.T) {
		e := newEngineTest(t)
		event := e.deploy(alice, "DOGE", "1000", "100")
		require.NotNil(t, event)
		assert.True(t, event.Valid)
		assert.Equal(t, entity.Drc20EventTypeDeploy, event.Type)

		entry := e.state.ticks["doge"]
		require.NotNil(t, entry)
		assert.Equal(t, "DOGE", entry.OriginalTick)
		assert.True(t, entry.TotalSupply.Equal(decimal.NewFromInt(1000)))
		assert.True(t, entry.LimitPerMint.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, alice, entry.DeployedBy)
	})
	t.Run("duplicate tick is case insensitive", func(t *testing.T) {
		e := newEngineTest(t)
		require.True(t, e.deploy(alice, "DOGE", "1000", "100").Valid)

		event := e.deploy(bob, "doge", "5", "5")
		require.NotNil(t, event)
		assert.False(t, event.Valid)
		assert.Equal(t, ErrTickExists.Error(), event.Reason)
		assert.True(t, e.state.ticks["doge"].TotalSupply.Equal(decimal.NewFromInt(1000)))
	})
	t.Run("inscribed to coinbase", func(t *testing.T) {
		e := newEngineTest(t)
		event := e.deploy(nil, "DOGE", "1000", "100")
		require.NotNil(t, event)
		assert.False(t, event.Valid)
		assert.Empty(t, e.state.ticks)
	})
	t.Run("zero supply", func(t *testing.T) {
		e := newEngineTest(t)
		event := e.deploy(alice, "DOGE", "0", "100")
		require.NotNil(t, event)
		assert.False(t, event.Valid)
		assert.Empty(t, e.state.ticks)
	})
	t.Run("before activation", func(t *testing.T) {
		e := newEngineTest(t)
		event, err := e.engine.Inscribe(context.Background(), e.state, Inscribed{
			Id:          e.newId(),
			Height:      99,
			ContentType: "text/plain",
			Content:     []byte(`{"p":"drc-20","op":"deploy","tick":"DOGE","max":"1000"}`),
			To:          alice,
		})
		require.NoError(t, err)
		assert.Nil(t, event)
	})
	t.Run("not an operation", func(t *testing.T) {
		e := newEngineTest(t)
		_, event := e.inscribe(alice, "such wow, much text, very not a token operation")
		assert.Nil(t, event)
	})
}

func TestMint(t *testing.T) {
	t.Run("exact supply boundary", func(t *testing.T) {
		e := newEngineTest(t)
		require.True(t, e.deploy(alice, "DOGE", "1000", "100").Valid)

		for i := 0; i < 3; i++ {
			require.True(t, e.mint(alice, "DOGE", "100").Valid)
		}
		overall, _ := e.state.balance(t, alice, "doge")
		assert.Equal(t, "300", overall)

		// over the per-mint limit, even though supply remains
		event := e.mint(alice, "DOGE", "800")
		assert.False(t, event.Valid)
		assert.Equal(t, ErrAmountExceedsLimit.Error(), event.Reason)

		for i := 0; i < 7; i++ {
			require.True(t, e.mint(bob, "doge", "100").Valid)
		}
		assert.True(t, e.state.ticks["doge"].MintedAmount.Equal(decimal.NewFromInt(1000)))

		event = e.mint(bob, "doge", "1")
		assert.False(t, event.Valid)
		assert.Equal(t, ErrAmountExceedsSupply.Error(), event.Reason)
	})
	t.Run("mint beyond remaining supply is rejected, not clipped", func(t *testing.T) {
		e := newEngineTest(t)
		require.True(t, e.deploy(alice, "DOGE", "1000", "1000").Valid)
		require.True(t, e.mint(alice, "DOGE", "300").Valid)

		event := e.mint(bob, "DOGE", "701")
		assert.False(t, event.Valid)
		overall, _ := e.state.balance(t, bob, "doge")
		assert.Equal(t, "0", overall)
		assert.True(t, e.state.ticks["doge"].MintedAmount.Equal(decimal.NewFromInt(300)))

		require.True(t, e.mint(bob, "DOGE", "700").Valid)
		overall, _ = e.state.balance(t, bob, "doge")
		assert.Equal(t, "700", overall)
	})
	t.Run("undeployed tick", func(t *testing.T) {
		e := newEngineTest(t)
		event := e.mint(alice, "DOGE", "1")
		assert.False(t, event.Valid)
		assert.Equal(t, ErrTickNotFound.Error(), event.Reason)
	})
	t.Run("zero amount", func(t *testing.T) {
		e := newEngineTest(t)
		require.True(t, e.deploy(alice, "DOGE", "1000", "100").Valid)
		assert.False(t, e.mint(alice, "DOGE", "0").Valid)
	})
	t.Run("too many decimals", func(t *testing.T) {
		e := newEngineTest(t)
		_, event := e.inscribe(alice, `{"p":"drc-20","op":"deploy","tick":"DOGE","max":"1000","dec":"2"}`)
		require.True(t, event.Valid)

		event = e.mint(alice, "DOGE", "1.234")
		assert.False(t, event.Valid)
		assert.Equal(t, ErrTooManyDecimals.Error(), event.Reason)
		require.True(t, e.mint(alice, "DOGE", "1.23").Valid)
	})
}

func TestTransfer(t *testing.T) {
	setup := func(t *testing.T) *engineTest {
		e := newEngineTest(t)
		require.True(t, e.deploy(alice, "DOGE", "1000", "100").Valid)
		require.True(t, e.mint(alice, "DOGE", "100").Valid)
		return e
	}

	t.Run("inscribe and send", func(t *testing.T) {
		e := setup(t)
		id, event := e.inscribeTransfer(alice, "DOGE", "60")
		require.True(t, event.Valid)
		assert.Equal(t, entity.Drc20EventTypeInscribeTransfer, event.Type)

		overall, transferable := e.state.balance(t, alice, "doge")
		assert.Equal(t, "100", overall)
		assert.Equal(t, "60", transferable)

		// only 40 available
		_, event = e.inscribeTransfer(alice, "DOGE", "50")
		assert.False(t, event.Valid)
		assert.Equal(t, ErrInsufficientBalance.Error(), event.Reason)

		event = e.send(id, alice, bob)
		require.NotNil(t, event)
		assert.True(t, event.Valid)
		assert.Equal(t, "DOGE", event.OriginalTick)

		overall, transferable = e.state.balance(t, alice, "doge")
		assert.Equal(t, "40", overall)
		assert.Equal(t, "0", transferable)
		overall, _ = e.state.balance(t, bob, "doge")
		assert.Equal(t, "60", overall)
		assert.Empty(t, e.state.transfers)

		// finalized once
		assert.Nil(t, e.send(id, bob, alice))
		overall, _ = e.state.balance(t, bob, "doge")
		assert.Equal(t, "60", overall)
	})
	t.Run("send to self stays pending", func(t *testing.T) {
		e := setup(t)
		id, event := e.inscribeTransfer(alice, "DOGE", "60")
		require.True(t, event.Valid)

		assert.Nil(t, e.send(id, alice, alice))
		overall, transferable := e.state.balance(t, alice, "doge")
		assert.Equal(t, "100", overall)
		assert.Equal(t, "60", transferable)
		assert.Len(t, e.state.transfers, 1)

		require.True(t, e.send(id, alice, bob).Valid)
		overall, _ = e.state.balance(t, bob, "doge")
		assert.Equal(t, "60", overall)
	})
	t.Run("sent as fee returns to sender", func(t *testing.T) {
		e := setup(t)
		id, event := e.inscribeTransfer(alice, "DOGE", "60")
		require.True(t, event.Valid)

		require.True(t, e.send(id, alice, nil).Valid)
		overall, transferable := e.state.balance(t, alice, "doge")
		assert.Equal(t, "100", overall)
		assert.Equal(t, "0", transferable)
		assert.Empty(t, e.state.transfers)
	})
	t.Run("owner mismatch", func(t *testing.T) {
		e := setup(t)
		id, event := e.inscribeTransfer(alice, "DOGE", "60")
		require.True(t, event.Valid)

		event = e.send(id, bob, alice)
		assert.False(t, event.Valid)
		assert.Equal(t, ErrOwnerMismatch.Error(), event.Reason)
		assert.Len(t, e.state.transfers, 1)
	})
	t.Run("not a transfer inscription", func(t *testing.T) {
		e := setup(t)
		assert.Nil(t, e.send(e.newId(), alice, bob))
	})
}
