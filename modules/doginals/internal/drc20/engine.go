package drc20

import (
	"bytes"
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/shopspring/decimal"
)

// State is the ledger the engine reads and mutates. Getters return errs.NotFound for missing records.
type State interface {
	GetTickEntry(ctx context.Context, tick string) (*entity.TickEntry, error)
	PutTickEntry(ctx context.Context, entry *entity.TickEntry) error
	GetBalance(ctx context.Context, pkScript []byte, tick string) (*entity.Balance, error)
	PutBalance(ctx context.Context, balance *entity.Balance) error
	GetTransferableLog(ctx context.Context, id ordinals.InscriptionId) (*entity.TransferableLog, error)
	PutTransferableLog(ctx context.Context, log *entity.TransferableLog) error
	DeleteTransferableLog(ctx context.Context, log *entity.TransferableLog) error
}

// Rejection reasons. A rejected operation is recorded as an invalid event.
var (
	ErrTickExists          = errors.New("tick already deployed")
	ErrTickNotFound        = errors.New("tick not deployed")
	ErrInscribeToCoinbase  = errors.New("inscribed to coinbase")
	ErrInvalidSupply       = errors.New("invalid max supply")
	ErrInvalidLimit        = errors.New("invalid mint limit")
	ErrZeroAmount          = errors.New("zero amount not allowed")
	ErrTooManyDecimals     = errors.New("amount has more decimals than the tick")
	ErrAmountExceedsLimit  = errors.New("amount exceeds mint limit")
	ErrAmountExceedsSupply = errors.New("amount exceeds remaining supply")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrOwnerMismatch       = errors.New("transferable owner does not match sender")
)

// Inscribed is a newly created inscription.
type Inscribed struct {
	Id          ordinals.InscriptionId
	Number      uint64
	TxHash      chainhash.Hash
	Height      int64
	Timestamp   time.Time
	ContentType string
	Content     []byte
	// To is the owner of the output holding the inscription, nil when inscribed to the coinbase.
	To []byte
}

// Sent is the first move of an inscription after it was created.
type Sent struct {
	Id        ordinals.InscriptionId
	TxHash    chainhash.Hash
	Height    int64
	Timestamp time.Time
	From      []byte
	// To is nil when the inscription was spent as fee.
	To []byte
}

// Engine applies drc-20 operations in inscription order.
type Engine struct {
	startHeight int64
}

func NewEngine(startHeight int64) *Engine {
	return &Engine{startHeight: startHeight}
}

func (e *Engine) IsActive(height int64) bool {
	return height >= e.startHeight
}

// Inscribe applies the operation carried by a new inscription. It returns nil if the inscription
// is not a drc-20 operation.
func (e *Engine) Inscribe(ctx context.Context, state State, in Inscribed) (*entity.Drc20Event, error) {
	if !e.IsActive(in.Height) {
		return nil, nil
	}
	payload, err := ParsePayload(in.ContentType, in.Content)
	if err != nil {
		return nil, nil
	}

	event := &entity.Drc20Event{
		InscriptionId:     in.Id,
		InscriptionNumber: in.Number,
		Tick:              payload.Tick,
		OriginalTick:      payload.OriginalTick,
		TxHash:            in.TxHash,
		BlockHeight:       in.Height,
		Timestamp:         in.Timestamp,
		ToPkScript:        in.To,
	}
	var applyErr error
	switch payload.Op {
	case OperationDeploy:
		event.Type = entity.Drc20EventTypeDeploy
		event.Amount = payload.Max
		applyErr = e.deploy(ctx, state, in, payload)
	case OperationMint:
		event.Type = entity.Drc20EventTypeMint
		event.Amount = payload.Amt
		applyErr = e.mint(ctx, state, in, payload)
	case OperationTransfer:
		event.Type = entity.Drc20EventTypeInscribeTransfer
		event.Amount = payload.Amt
		applyErr = e.inscribeTransfer(ctx, state, in, payload)
	}
	return finishEvent(ctx, event, applyErr)
}

func (e *Engine) deploy(ctx context.Context, state State, in Inscribed, payload *Payload) error {
	if in.To == nil {
		return ErrInscribeToCoinbase
	}
	_, err := state.GetTickEntry(ctx, payload.Tick)
	switch {
	case err == nil:
		return ErrTickExists
	case !errors.Is(err, errs.NotFound):
		return errors.Wrap(err, "failed to get tick entry")
	}
	if !payload.Max.IsPositive() {
		return ErrInvalidSupply
	}
	if !payload.Lim.IsPositive() {
		return ErrInvalidLimit
	}

	entry := &entity.TickEntry{
		Tick:                    payload.Tick,
		OriginalTick:            payload.OriginalTick,
		TotalSupply:             payload.Max,
		LimitPerMint:            payload.Lim,
		Decimals:                payload.Dec,
		MintedAmount:            decimal.Zero,
		DeployInscriptionId:     in.Id,
		DeployInscriptionNumber: in.Number,
		DeployedBy:              in.To,
		DeployedAt:              in.Timestamp,
		DeployedAtHeight:        in.Height,
		LatestMintHeight:        in.Height,
	}
	return errors.Wrap(state.PutTickEntry(ctx, entry), "failed to put tick entry")
}

func (e *Engine) mint(ctx context.Context, state State, in Inscribed, payload *Payload) error {
	if in.To == nil {
		return ErrInscribeToCoinbase
	}
	entry, err := getTickEntry(ctx, state, payload.Tick)
	if err != nil {
		return err
	}
	if err := checkAmount(payload.Amt, entry); err != nil {
		return err
	}
	if payload.Amt.GreaterThan(entry.LimitPerMint) {
		return ErrAmountExceedsLimit
	}
	// a mint for X succeeds iff X <= lim and X <= max - minted
	if payload.Amt.GreaterThan(entry.Remaining()) {
		return ErrAmountExceedsSupply
	}

	balance, err := getBalance(ctx, state, in.To, payload.Tick)
	if err != nil {
		return err
	}
	balance.OverallBalance = balance.OverallBalance.Add(payload.Amt)
	balance.LastUpdatedAtHeight = in.Height
	if err := state.PutBalance(ctx, balance); err != nil {
		return errors.Wrap(err, "failed to put balance")
	}

	entry.MintedAmount = entry.MintedAmount.Add(payload.Amt)
	entry.LatestMintHeight = in.Height
	return errors.Wrap(state.PutTickEntry(ctx, entry), "failed to put tick entry")
}

func (e *Engine) inscribeTransfer(ctx context.Context, state State, in Inscribed, payload *Payload) error {
	if in.To == nil {
		return ErrInscribeToCoinbase
	}
	entry, err := getTickEntry(ctx, state, payload.Tick)
	if err != nil {
		return err
	}
	if err := checkAmount(payload.Amt, entry); err != nil {
		return err
	}
	if payload.Amt.GreaterThan(entry.TotalSupply) {
		return ErrAmountExceedsSupply
	}

	balance, err := getBalance(ctx, state, in.To, payload.Tick)
	if err != nil {
		return err
	}
	if balance.AvailableBalance().LessThan(payload.Amt) {
		return ErrInsufficientBalance
	}
	balance.TransferableBalance = balance.TransferableBalance.Add(payload.Amt)
	balance.LastUpdatedAtHeight = in.Height
	if err := state.PutBalance(ctx, balance); err != nil {
		return errors.Wrap(err, "failed to put balance")
	}

	log := &entity.TransferableLog{
		InscriptionId:     in.Id,
		InscriptionNumber: in.Number,
		Tick:              payload.Tick,
		Amount:            payload.Amt,
		Owner:             in.To,
		CreatedAtHeight:   in.Height,
	}
	return errors.Wrap(state.PutTransferableLog(ctx, log), "failed to put transferable log")
}

// Send finalizes a pending transfer when its inscription moves. It returns nil if the inscription
// is not a pending transfer, or if it was sent back to its owner, which keeps the transfer pending.
func (e *Engine) Send(ctx context.Context, state State, sent Sent) (*entity.Drc20Event, error) {
	log, err := state.GetTransferableLog(ctx, sent.Id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get transferable log")
	}
	if sent.To != nil && bytes.Equal(sent.To, sent.From) {
		logger.DebugContext(ctx, "transfer inscription sent to its owner, transfer stays pending",
			slogx.Stringer("inscriptionId", sent.Id),
			slogx.String("tick", log.Tick),
		)
		return nil, nil
	}

	event := &entity.Drc20Event{
		Type:              entity.Drc20EventTypeTransfer,
		InscriptionId:     sent.Id,
		InscriptionNumber: log.InscriptionNumber,
		Tick:              log.Tick,
		TxHash:            sent.TxHash,
		BlockHeight:       sent.Height,
		Timestamp:         sent.Timestamp,
		FromPkScript:      sent.From,
		ToPkScript:        sent.To,
		Amount:            log.Amount,
	}
	if entry, err := state.GetTickEntry(ctx, log.Tick); err == nil {
		event.OriginalTick = entry.OriginalTick
	}
	return finishEvent(ctx, event, e.send(ctx, state, sent, log))
}

func (e *Engine) send(ctx context.Context, state State, sent Sent, log *entity.TransferableLog) error {
	if !bytes.Equal(log.Owner, sent.From) {
		return ErrOwnerMismatch
	}

	from, err := getBalance(ctx, state, sent.From, log.Tick)
	if err != nil {
		return err
	}
	if from.OverallBalance.LessThan(log.Amount) || from.TransferableBalance.LessThan(log.Amount) {
		return ErrInsufficientBalance
	}
	from.OverallBalance = from.OverallBalance.Sub(log.Amount)
	from.TransferableBalance = from.TransferableBalance.Sub(log.Amount)
	from.LastUpdatedAtHeight = sent.Height
	if err := state.PutBalance(ctx, from); err != nil {
		return errors.Wrap(err, "failed to put sender balance")
	}

	// sent as fee: the amount returns to the sender
	to := sent.To
	if to == nil {
		to = sent.From
	}
	recipient, err := getBalance(ctx, state, to, log.Tick)
	if err != nil {
		return err
	}
	recipient.OverallBalance = recipient.OverallBalance.Add(log.Amount)
	recipient.LastUpdatedAtHeight = sent.Height
	if err := state.PutBalance(ctx, recipient); err != nil {
		return errors.Wrap(err, "failed to put recipient balance")
	}

	return errors.Wrap(state.DeleteTransferableLog(ctx, log), "failed to delete transferable log")
}

// finishEvent turns a rejection into an invalid event. Any other error is returned as is.
func finishEvent(ctx context.Context, event *entity.Drc20Event, err error) (*entity.Drc20Event, error) {
	if err == nil {
		event.Valid = true
		return event, nil
	}
	if !isRejection(err) {
		return nil, errors.WithStack(err)
	}
	event.Reason = err.Error()
	logger.DebugContext(ctx, "drc-20 operation rejected",
		slogx.String("type", string(event.Type)),
		slogx.String("tick", event.Tick),
		slogx.Stringer("inscriptionId", event.InscriptionId),
		slogx.String("reason", event.Reason),
	)
	return event, nil
}

var rejections = []error{
	ErrTickExists,
	ErrTickNotFound,
	ErrInscribeToCoinbase,
	ErrInvalidSupply,
	ErrInvalidLimit,
	ErrZeroAmount,
	ErrTooManyDecimals,
	ErrAmountExceedsLimit,
	ErrAmountExceedsSupply,
	ErrInsufficientBalance,
	ErrOwnerMismatch,
}

func isRejection(err error) bool {
	for _, rejection := range rejections {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}

func checkAmount(amt decimal.Decimal, entry *entity.TickEntry) error {
	if !amt.IsPositive() {
		return ErrZeroAmount
	}
	if !IsAmountWithinDecimals(amt, entry.Decimals) {
		return ErrTooManyDecimals
	}
	return nil
}

func getTickEntry(ctx context.Context, state State, tick string) (*entity.TickEntry, error) {
	entry, err := state.GetTickEntry(ctx, tick)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil, ErrTickNotFound
		}
		return nil, errors.Wrap(err, "failed to get tick entry")
	}
	return entry, nil
}

// getBalance returns the stored balance, or a zero balance if there is none.
func getBalance(ctx context.Context, state State, pkScript []byte, tick string) (*entity.Balance, error) {
	balance, err := state.GetBalance(ctx, pkScript, tick)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return &entity.Balance{
				PkScript:            pkScript,
				Tick:                tick,
				OverallBalance:      decimal.Zero,
				TransferableBalance: decimal.Zero,
			}, nil
		}
		return nil, errors.Wrap(err, "failed to get balance")
	}
	return balance, nil
}
