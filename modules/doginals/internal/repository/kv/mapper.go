package kv

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/entity"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/sat"
	"github.com/samber/lo"
)

// record versions, bumped when a layout changes
const (
	inscriptionRecordVersion = 1
)

func (e *encoder) inscriptionId(id ordinals.InscriptionId) *encoder {
	e.buf.B = append(e.buf.B, id.Bytes()...)
	return e
}

func (d *decoder) inscriptionId() ordinals.InscriptionId {
	var id ordinals.InscriptionId
	b := d.take(ordinals.InscriptionIdLength)
	if b == nil {
		return id
	}
	if err := id.UnmarshalBinary(b); err != nil {
		d.fail(err)
	}
	return id
}

func (e *encoder) optionalInscriptionId(id *ordinals.InscriptionId) *encoder {
	if id == nil {
		return e.bool(false)
	}
	return e.bool(true).inscriptionId(*id)
}

func (d *decoder) optionalInscriptionId() *ordinals.InscriptionId {
	if !d.bool() {
		return nil
	}
	return lo.ToPtr(d.inscriptionId())
}

func (e *encoder) satPoint(s ordinals.SatPoint) *encoder {
	e.buf.B = append(e.buf.B, ordinals.OutPointBytes(s.OutPoint)...)
	return e.uint64(s.Offset)
}

func (d *decoder) satPoint() ordinals.SatPoint {
	var s ordinals.SatPoint
	b := d.take(ordinals.OutPointLength)
	if b == nil {
		return s
	}
	outPoint, err := ordinals.OutPointFromBytes(b)
	if err != nil {
		d.fail(err)
		return s
	}
	s.OutPoint = outPoint
	s.Offset = d.uint64()
	return s
}

func (e *encoder) satRanges(rs sat.Ranges) *encoder {
	e.uint64(uint64(len(rs)))
	for _, r := range rs {
		e.uint128(r.Start).uint64(r.Len())
	}
	return e
}

func (d *decoder) satRanges() sat.Ranges {
	n := d.uint64()
	if d.err != nil {
		return nil
	}
	// each range takes at least two bytes
	if n > uint64(len(d.data)) {
		d.fail(errors.Newf("%d sat ranges in %d bytes", n, len(d.data)))
		return nil
	}
	rs := make(sat.Ranges, 0, n)
	for i := uint64(0); i < n && d.err == nil; i++ {
		start := d.uint128()
		rs = append(rs, sat.NewRange(start, d.uint64()))
	}
	return rs
}

func encodeInscription(ins *entity.Inscription) []byte {
	e := newEncoder().uint64(inscriptionRecordVersion)
	e.inscriptionId(ins.Id).
		uint64(ins.Number).
		uint128(ins.Sat).
		int64(ins.CreatedAtHeight).
		time(ins.CreatedAt).
		hash(ins.TxHash).
		satPoint(ins.SatPoint).
		optionalBytes(ins.PkScript).
		bool(ins.Lost).
		uint64(uint64(ins.TransferCount)).
		int64(ins.UpdatedHeight).
		bool(ins.UnrecognizedEvenField)

	body := ins.Inscription
	e.optionalBytes(body.Content).
		string(body.ContentEncoding).
		string(body.ContentType).
		optionalInscriptionId(body.Delegate).
		optionalBytes(body.Metadata).
		string(body.Metaprotocol).
		optionalBytes(body.Note).
		optionalInscriptionId(body.Parent)
	if body.Pointer == nil {
		e.bool(false)
	} else {
		e.bool(true).uint64(*body.Pointer)
	}
	return e.finish()
}

func decodeInscription(data []byte) (*entity.Inscription, error) {
	d := newDecoder(data)
	if v := d.uint64(); d.err == nil && v != inscriptionRecordVersion {
		return nil, errors.Newf("unknown inscription record version %d", v)
	}
	ins := &entity.Inscription{
		Id:                    d.inscriptionId(),
		Number:                d.uint64(),
		Sat:                   d.uint128(),
		CreatedAtHeight:       d.int64(),
		CreatedAt:             d.time(),
		TxHash:                d.hash(),
		SatPoint:              d.satPoint(),
		PkScript:              d.optionalBytes(),
		Lost:                  d.bool(),
		TransferCount:         d.uint32(),
		UpdatedHeight:         d.int64(),
		UnrecognizedEvenField: d.bool(),
	}
	ins.Inscription = ordinals.Inscription{
		Content:         d.optionalBytes(),
		ContentEncoding: d.string(),
		ContentType:     d.string(),
		Delegate:        d.optionalInscriptionId(),
		Metadata:        d.optionalBytes(),
		Metaprotocol:    d.string(),
		Note:            d.optionalBytes(),
		Parent:          d.optionalInscriptionId(),
	}
	if d.bool() {
		ins.Inscription.Pointer = lo.ToPtr(d.uint64())
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return ins, nil
}

func encodePartialInscription(partial *entity.PartialInscription) []byte {
	e := newEncoder().
		inscriptionId(partial.Id).
		bytes(partial.Partial.ContentType).
		uint64(partial.Partial.Remaining).
		uint64(uint64(len(partial.Partial.Chunks)))
	for _, chunk := range partial.Partial.Chunks {
		e.bytes(chunk)
	}
	return e.finish()
}

func decodePartialInscription(data []byte) (*entity.PartialInscription, error) {
	d := newDecoder(data)
	partial := &entity.PartialInscription{
		Id: d.inscriptionId(),
		Partial: ordinals.Partial{
			ContentType: d.bytes(),
			Remaining:   d.uint64(),
		},
	}
	n := d.uint64()
	if d.err == nil && n > uint64(len(d.data)) {
		d.fail(errors.Newf("%d chunks in %d bytes", n, len(d.data)))
	}
	for i := uint64(0); i < n && d.err == nil; i++ {
		partial.Partial.Chunks = append(partial.Partial.Chunks, d.bytes())
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return partial, nil
}

func encodeOutPointEntry(entry *entity.OutPointEntry) []byte {
	e := newEncoder().
		uint64(entry.Value).
		bytes(entry.PkScript).
		satRanges(entry.SatRanges).
		uint64(uint64(len(entry.Inscriptions)))
	for _, ins := range entry.Inscriptions {
		e.inscriptionId(ins.Id).uint64(ins.Offset)
	}
	return e.finish()
}

func decodeOutPointEntry(data []byte) (*entity.OutPointEntry, error) {
	d := newDecoder(data)
	entry := &entity.OutPointEntry{
		Value:     d.uint64(),
		PkScript:  d.bytes(),
		SatRanges: d.satRanges(),
	}
	n := d.uint64()
	if d.err == nil && n > uint64(len(d.data)) {
		d.fail(errors.Newf("%d inscriptions in %d bytes", n, len(d.data)))
	}
	for i := uint64(0); i < n && d.err == nil; i++ {
		entry.Inscriptions = append(entry.Inscriptions, entity.OutPointInscription{
			Id:     d.inscriptionId(),
			Offset: d.uint64(),
		})
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return entry, nil
}

func encodeIndexedBlock(block *entity.IndexedBlock) []byte {
	return newEncoder().
		int64(block.Height).
		hash(block.Hash).
		hash(block.PrevBlock).
		time(block.Timestamp).
		finish()
}

func decodeIndexedBlock(data []byte) (*entity.IndexedBlock, error) {
	d := newDecoder(data)
	block := &entity.IndexedBlock{
		Height:    d.int64(),
		Hash:      d.hash(),
		PrevBlock: d.hash(),
		Timestamp: d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return block, nil
}

func encodeStats(stats *entity.Stats) []byte {
	return newEncoder().
		uint64(stats.NextNumber).
		uint128(stats.LostSats).
		finish()
}

func decodeStats(data []byte) (*entity.Stats, error) {
	d := newDecoder(data)
	stats := &entity.Stats{
		NextNumber: d.uint64(),
		LostSats:   d.uint128(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return stats, nil
}

func encodeIndexerState(state *entity.IndexerState) []byte {
	return newEncoder().
		time(state.CreatedAt).
		string(state.ClientVersion).
		int64(int64(state.DBVersion)).
		string(string(state.Network)).
		int64(state.FirstInscriptionHeight).
		int64(state.Drc20StartHeight).
		bool(state.EnableDrc20).
		finish()
}

func decodeIndexerState(data []byte) (*entity.IndexerState, error) {
	d := newDecoder(data)
	state := &entity.IndexerState{
		CreatedAt:              d.time(),
		ClientVersion:          d.string(),
		DBVersion:              int32(d.int64()),
		Network:                common.Network(d.string()),
		FirstInscriptionHeight: d.int64(),
		Drc20StartHeight:       d.int64(),
		EnableDrc20:            d.bool(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return state, nil
}

func encodeTickEntry(entry *entity.TickEntry) []byte {
	return newEncoder().
		string(entry.Tick).
		string(entry.OriginalTick).
		decimal(entry.TotalSupply).
		decimal(entry.LimitPerMint).
		uint64(uint64(entry.Decimals)).
		decimal(entry.MintedAmount).
		inscriptionId(entry.DeployInscriptionId).
		uint64(entry.DeployInscriptionNumber).
		bytes(entry.DeployedBy).
		time(entry.DeployedAt).
		int64(entry.DeployedAtHeight).
		int64(entry.LatestMintHeight).
		finish()
}

func decodeTickEntry(data []byte) (*entity.TickEntry, error) {
	d := newDecoder(data)
	entry := &entity.TickEntry{
		Tick:                    d.string(),
		OriginalTick:            d.string(),
		TotalSupply:             d.decimal(),
		LimitPerMint:            d.decimal(),
		Decimals:                d.uint16(),
		MintedAmount:            d.decimal(),
		DeployInscriptionId:     d.inscriptionId(),
		DeployInscriptionNumber: d.uint64(),
		DeployedBy:              d.bytes(),
		DeployedAt:              d.time(),
		DeployedAtHeight:        d.int64(),
		LatestMintHeight:        d.int64(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return entry, nil
}

func encodeBalance(balance *entity.Balance) []byte {
	return newEncoder().
		bytes(balance.PkScript).
		string(balance.Tick).
		decimal(balance.OverallBalance).
		decimal(balance.TransferableBalance).
		int64(balance.LastUpdatedAtHeight).
		finish()
}

func decodeBalance(data []byte) (*entity.Balance, error) {
	d := newDecoder(data)
	balance := &entity.Balance{
		PkScript:            d.bytes(),
		Tick:                d.string(),
		OverallBalance:      d.decimal(),
		TransferableBalance: d.decimal(),
		LastUpdatedAtHeight: d.int64(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return balance, nil
}

func encodeTransferableLog(log *entity.TransferableLog) []byte {
	return newEncoder().
		inscriptionId(log.InscriptionId).
		uint64(log.InscriptionNumber).
		string(log.Tick).
		decimal(log.Amount).
		bytes(log.Owner).
		int64(log.CreatedAtHeight).
		finish()
}

func decodeTransferableLog(data []byte) (*entity.TransferableLog, error) {
	d := newDecoder(data)
	log := &entity.TransferableLog{
		InscriptionId:     d.inscriptionId(),
		InscriptionNumber: d.uint64(),
		Tick:              d.string(),
		Amount:            d.decimal(),
		Owner:             d.bytes(),
		CreatedAtHeight:   d.int64(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return log, nil
}

func encodeDrc20Event(event *entity.Drc20Event) []byte {
	return newEncoder().
		string(string(event.Type)).
		inscriptionId(event.InscriptionId).
		uint64(event.InscriptionNumber).
		string(event.Tick).
		string(event.OriginalTick).
		hash(event.TxHash).
		int64(event.BlockHeight).
		time(event.Timestamp).
		optionalBytes(event.FromPkScript).
		optionalBytes(event.ToPkScript).
		decimal(event.Amount).
		bool(event.Valid).
		string(event.Reason).
		finish()
}

func decodeDrc20Event(data []byte) (*entity.Drc20Event, error) {
	d := newDecoder(data)
	event := &entity.Drc20Event{
		Type:              entity.Drc20EventType(d.string()),
		InscriptionId:     d.inscriptionId(),
		InscriptionNumber: d.uint64(),
		Tick:              d.string(),
		OriginalTick:      d.string(),
		TxHash:            d.hash(),
		BlockHeight:       d.int64(),
		Timestamp:         d.time(),
		FromPkScript:      d.optionalBytes(),
		ToPkScript:        d.optionalBytes(),
		Amount:            d.decimal(),
		Valid:             d.bool(),
		Reason:            d.string(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return event, nil
}
