package doginals

import (
	"cmp"
	"context"
	"slices"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/core/types"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/datagateway"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/sat"
	"github.com/gaze-network/doginals-indexer/pkg/logger"
	"github.com/gaze-network/doginals-indexer/pkg/logger/slogx"
	"github.com/samber/lo"
)

// flotsam is an inscription moving through a transaction.
type flotsam struct {
	inscription *entity.Inscription
	// isNew is set for inscriptions created by the transaction
	isNew bool
	// from is the owner of the spent output that held an existing inscription
	from []byte
}

type location struct {
	flotsam  *flotsam
	satPoint ordinals.SatPoint
	pkScript []byte
}

func (p *Processor) processTx(ctx context.Context, dg datagateway.DoginalsDataGatewayWithTx, state *blockState, tx *types.Transaction) error {
	values, err := outputValues(tx)
	if err != nil {
		return errors.WithStack(err)
	}

	inputs := make([]sat.Ranges, len(tx.TxIn))
	flotsams := make([]*flotsam, 0)
	firstSatInscribed := false
	for i, txIn := range tx.TxIn {
		entry, err := p.spendOutPoint(ctx, dg, state, txIn.PreviousOutPoint())
		if err != nil {
			return errors.Wrapf(err, "input %d", i)
		}
		inputs[i] = entry.SatRanges
		if i == 0 {
			firstSatInscribed = lo.SomeBy(entry.Inscriptions, func(held entity.OutPointInscription) bool { return held.Offset == 0 })
		}
		for _, held := range entry.Inscriptions {
			inscription, err := dg.GetInscriptionById(ctx, held.Id)
			if err != nil {
				return errors.Wrapf(err, "failed to get inscription %s held by input %d", held.Id, i)
			}
			flotsams = append(flotsams, &flotsam{inscription: inscription, from: entry.PkScript})
		}
	}

	result, err := state.tracker.Spend(sat.TxFlow{Inputs: inputs, Outputs: values})
	if err != nil {
		return errors.Wrap(err, "failed to track sats")
	}

	if tx.BlockHeight >= p.firstInscriptionHeight {
		created, err := p.inscribe(ctx, dg, state, tx, inputs, values, firstSatInscribed)
		if err != nil {
			return errors.Wrap(err, "failed to inscribe")
		}
		flotsams = append(flotsams, created...)
	}
	if len(flotsams) == 0 {
		return errors.WithStack(p.createOutPoints(ctx, dg, state, tx, result.Outputs, nil))
	}

	locations, fees := locate(tx, result.Outputs, flotsams)
	destinations := make(map[*flotsam][]byte, len(locations))
	for _, loc := range locations {
		if err := p.moveInscription(ctx, dg, state, loc); err != nil {
			return errors.WithStack(err)
		}
		destinations[loc.flotsam] = loc.pkScript
	}
	// flotsams sent as fee have no destination, the coinbase gives them their location
	for _, f := range drc20Order(flotsams) {
		if err := p.applyDrc20(ctx, dg, state, f, tx, destinations[f]); err != nil {
			return errors.WithStack(err)
		}
	}
	state.fees = append(state.fees, fees...)
	return errors.WithStack(p.createOutPoints(ctx, dg, state, tx, result.Outputs, placedInscriptions(tx, locations)))
}

// drc20Order is the order in which the flotsams of a transaction reach the drc-20 engine:
// new inscriptions by number, then moved inscriptions in input order. Placement in the
// outputs does not matter, so a deploy and a mint created by one transaction apply in the
// order they were inscribed.
func drc20Order(flotsams []*flotsam) []*flotsam {
	created := lo.Filter(flotsams, func(f *flotsam, _ int) bool { return f.isNew })
	slices.SortStableFunc(created, func(a, b *flotsam) int {
		return cmp.Compare(a.inscription.Number, b.inscription.Number)
	})
	moved := lo.Reject(flotsams, func(f *flotsam, _ int) bool { return f.isNew })
	return append(created, moved...)
}

// reveal is an envelope and the inscription it creates.
type reveal struct {
	id       ordinals.InscriptionId
	envelope *ordinals.Envelope
}

// reveals lists the envelopes of a transaction. The first input may instead carry the next chunks
// of a partial envelope left by the transaction it spends, or start a new one. Partials only
// travel on a first sat that holds no inscription.
func (p *Processor) reveals(ctx context.Context, dg datagateway.DoginalsDataGatewayWithTx, tx *types.Transaction, firstSatInscribed bool) ([]reveal, error) {
	toReveals := func(envelopes []*ordinals.Envelope) []reveal {
		return lo.Map(envelopes, func(envelope *ordinals.Envelope, _ int) reveal {
			return reveal{id: ordinals.NewInscriptionId(tx.TxHash, envelope.Offset), envelope: envelope}
		})
	}
	envelopes := ordinals.ParseEnvelopes(tx)
	if len(tx.TxIn) == 0 || firstSatInscribed {
		return toReveals(envelopes), nil
	}

	first := tx.TxIn[0]
	previous := first.PreviousOutTxHash
	pending, err := dg.GetPartialInscription(ctx, previous)
	if errors.Is(err, errs.NotFound) {
		if _, partial := ordinals.ParseScript(first.SignatureScript); partial != nil {
			err := dg.PutPartialInscription(ctx, tx.TxHash, &entity.PartialInscription{
				Id:      ordinals.NewInscriptionId(tx.TxHash, 0),
				Partial: *partial,
			})
			if err != nil {
				return nil, errors.WithStack(err)
			}
			logger.DebugContext(ctx, "Partial inscription started",
				slogx.Stringer("tx_hash", tx.TxHash),
				slogx.Uint64("remaining", partial.Remaining),
			)
		}
		return toReveals(envelopes), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get partial inscription")
	}

	if err := dg.DeletePartialInscription(ctx, previous); err != nil {
		return nil, errors.WithStack(err)
	}
	// the first input belongs to the chain
	reveals := toReveals(lo.Reject(envelopes, func(envelope *ordinals.Envelope, _ int) bool { return envelope.InputIndex == 0 }))
	envelope, partial := pending.Partial.Continue(first.SignatureScript)
	switch {
	case envelope != nil:
		logger.DebugContext(ctx, "Partial inscription completed", slogx.Stringer("inscription_id", pending.Id))
		return append([]reveal{{id: pending.Id, envelope: envelope}}, reveals...), nil
	case partial != nil:
		err := dg.PutPartialInscription(ctx, tx.TxHash, &entity.PartialInscription{Id: pending.Id, Partial: *partial})
		if err != nil {
			return nil, errors.WithStack(err)
		}
	default:
		logger.DebugContext(ctx, "Partial inscription abandoned", slogx.Stringer("inscription_id", pending.Id))
	}
	return reveals, nil
}

// inscribe turns the envelopes of a transaction into inscriptions. An envelope inscribes the first
// sat of its input, or the sat at its pointer when the pointer falls inside the outputs. Only the
// first inscription on a sat counts.
func (p *Processor) inscribe(ctx context.Context, dg datagateway.DoginalsDataGatewayWithTx, state *blockState, tx *types.Transaction, inputs []sat.Ranges, values []uint64, firstSatInscribed bool) ([]*flotsam, error) {
	reveals, err := p.reveals(ctx, dg, tx, firstSatInscribed)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(reveals) == 0 {
		return nil, nil
	}

	all := make(sat.Ranges, 0)
	inputOffsets := make([]uint64, len(inputs))
	for i, rs := range inputs {
		inputOffsets[i] = all.Len()
		all = append(all, rs...)
	}
	totalOutput := lo.Sum(values)

	created := make([]*flotsam, 0, len(reveals))
	for _, reveal := range reveals {
		id, envelope := reveal.id, reveal.envelope
		ctx := logger.WithContext(ctx, slogx.Stringer("inscription_id", id))

		if inputs[envelope.InputIndex].Len() == 0 {
			logger.DebugContext(ctx, "Envelope spends no sats, skipping")
			continue
		}
		offset := inputOffsets[envelope.InputIndex]
		if pointer := envelope.Inscription.Pointer; pointer != nil && *pointer < totalOutput {
			offset = *pointer
		}
		satNumber, ok := all.Locate(offset)
		if !ok {
			logger.DebugContext(ctx, "Envelope offset holds no sat, skipping", slogx.Uint64("offset", offset))
			continue
		}

		existing, err := dg.GetInscriptionIdBySat(ctx, satNumber)
		if err == nil {
			logger.DebugContext(ctx, "Sat is already inscribed, skipping",
				slogx.Stringer("sat", satNumber),
				slogx.Stringer("existing", existing),
			)
			continue
		}
		if !errors.Is(err, errs.NotFound) {
			return nil, errors.Wrap(err, "failed to get inscription by sat")
		}

		inscription := &entity.Inscription{
			Id:                    id,
			Number:                state.stats.NextNumber,
			Sat:                   satNumber,
			Inscription:           envelope.Inscription,
			CreatedAtHeight:       tx.BlockHeight,
			CreatedAt:             state.header.Timestamp,
			TxHash:                tx.TxHash,
			UpdatedHeight:         tx.BlockHeight,
			UnrecognizedEvenField: envelope.UnrecognizedEvenField,
		}
		if err := dg.CreateInscription(ctx, inscription); err != nil {
			return nil, errors.Wrap(err, "failed to create inscription")
		}
		state.stats.NextNumber++
		state.newInscriptions++
		logger.DebugContext(ctx, "Created inscription",
			slogx.String("event", "inscription_created"),
			slogx.Uint64("number", inscription.Number),
			slogx.Stringer("sat", satNumber),
		)
		created = append(created, &flotsam{inscription: inscription, isNew: true})
	}
	return created, nil
}

// locate finds the output holding the sat of each flotsam. Flotsams in no output left as fee.
// Locations are ordered by output then offset.
func locate(tx *types.Transaction, outputs []sat.Ranges, flotsams []*flotsam) (locations []location, fees []*flotsam) {
	for _, f := range flotsams {
		found := false
		for i, rs := range outputs {
			offset, ok := rs.Offset(f.inscription.Sat)
			if !ok {
				continue
			}
			locations = append(locations, location{
				flotsam: f,
				satPoint: ordinals.SatPoint{
					OutPoint: wire.OutPoint{Hash: tx.TxHash, Index: uint32(i)},
					Offset:   offset,
				},
				pkScript: tx.TxOut[i].PkScript,
			})
			found = true
			break
		}
		if !found {
			fees = append(fees, f)
		}
	}
	slices.SortStableFunc(locations, func(a, b location) int {
		if c := cmp.Compare(a.satPoint.OutPoint.Index, b.satPoint.OutPoint.Index); c != 0 {
			return c
		}
		return cmp.Compare(a.satPoint.Offset, b.satPoint.Offset)
	})
	return locations, fees
}

// placedInscriptions groups located inscriptions by spendable output.
func placedInscriptions(tx *types.Transaction, locations []location) map[uint32][]entity.OutPointInscription {
	placed := make(map[uint32][]entity.OutPointInscription)
	for _, loc := range locations {
		index := loc.satPoint.OutPoint.Index
		if tx.TxOut[index].IsOpReturn() {
			continue
		}
		placed[index] = append(placed[index], entity.OutPointInscription{
			Id:     loc.flotsam.inscription.Id,
			Offset: loc.satPoint.Offset,
		})
	}
	return placed
}

func (p *Processor) moveInscription(ctx context.Context, dg datagateway.DoginalsDataGatewayWithTx, state *blockState, loc location) error {
	inscription := loc.flotsam.inscription
	if !loc.flotsam.isNew {
		inscription.TransferCount++
	}
	inscription.SatPoint = loc.satPoint
	inscription.PkScript = loc.pkScript
	inscription.Lost = false
	inscription.UpdatedHeight = state.header.Height
	return errors.Wrapf(dg.UpdateInscription(ctx, inscription), "failed to update inscription %s", inscription.Id)
}

// processCoinbase settles the block: the coinbase receives the subsidy and every fee, and with
// them the inscriptions sent as fee. Sats beyond the coinbase outputs are lost.
func (p *Processor) processCoinbase(ctx context.Context, dg datagateway.DoginalsDataGatewayWithTx, state *blockState, tx *types.Transaction) error {
	values, err := outputValues(tx)
	if err != nil {
		return errors.WithStack(err)
	}
	result, lost, err := state.tracker.Coinbase(values)
	if err != nil {
		return errors.Wrap(err, "failed to track coinbase sats")
	}

	locations, stranded := locate(tx, result.Outputs, state.fees)
	for _, loc := range locations {
		if err := p.moveInscription(ctx, dg, state, loc); err != nil {
			return errors.WithStack(err)
		}
	}

	lostBefore := state.stats.LostSats.Uint64()
	for _, f := range stranded {
		offset, ok := lost.Offset(f.inscription.Sat)
		if !ok {
			return errors.Wrapf(errs.InternalError, "sat %s of inscription %s is in neither the coinbase nor the lost sats", f.inscription.Sat, f.inscription.Id)
		}
		inscription := f.inscription
		if !f.isNew {
			inscription.TransferCount++
		}
		inscription.SatPoint = lostSatPoint(lostBefore + offset)
		inscription.PkScript = nil
		inscription.Lost = true
		inscription.UpdatedHeight = state.header.Height
		if err := dg.UpdateInscription(ctx, inscription); err != nil {
			return errors.Wrapf(err, "failed to update inscription %s", inscription.Id)
		}
		logger.DebugContext(ctx, "Inscription lost",
			slogx.String("event", "inscription_lost"),
			slogx.Stringer("inscription_id", inscription.Id),
		)
	}
	if lost.Len() > 0 {
		state.stats.LostSats = state.stats.LostSats.Add64(lost.Len())
		logger.DebugContext(ctx, "Coinbase did not claim every sat", slogx.Uint64("lost", lost.Len()))
	}

	return errors.WithStack(p.createOutPoints(ctx, dg, state, tx, result.Outputs, placedInscriptions(tx, locations)))
}
