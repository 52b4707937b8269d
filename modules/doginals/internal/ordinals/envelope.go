package ordinals

import (
	"bytes"
	"encoding/binary"
	"slices"

	"github.com/btcsuite/btcd/txscript"
	"github.com/gaze-network/doginals-indexer/core/types"
)

// Envelope is an inscription payload found in the signature script of a transaction input.
//
// Layout (push-only):
//
//	"ord" <chunk count N> <content type>
//	<N-1> <chunk> ... <0> <chunk>
//	<empty>                 chunk terminator
//	<tag> <value> ...       tag section
//	<empty>                 envelope terminator
//
// A legacy envelope ends right after its chunks and carries no tag section.
type Envelope struct {
	Inscription           Inscription
	InputIndex            uint32 // Index of input that contains the envelope
	Offset                uint32 // Number of envelopes before this one in the transaction
	ContentType           []byte
	Chunks                [][]byte
	Fields                Fields
	Legacy                bool // True if envelope has no terminated tag section
	DuplicateField        bool // True if a non-chunked tag appears more than once
	UnrecognizedEvenField bool // True if payload contains unrecognized even field
}

var protocolId = []byte("ord")

// ParseEnvelopes returns the envelopes of the transaction in input order. Each input carries at most one envelope.
func ParseEnvelopes(tx *types.Transaction) []*Envelope {
	envelopes := make([]*Envelope, 0)
	for i, txIn := range tx.TxIn {
		envelope := ParseEnvelopeScript(txIn.SignatureScript)
		if envelope == nil {
			continue
		}
		envelope.InputIndex = uint32(i)
		envelope.Offset = uint32(len(envelopes))
		envelopes = append(envelopes, envelope)
	}
	return envelopes
}

// ParseEnvelopeScript returns the first well-formed envelope in the script, or nil.
func ParseEnvelopeScript(script []byte) *Envelope {
	envelope, _ := ParseScript(script)
	return envelope
}

// ParseScript returns the first well-formed envelope in the script. When the script has none
// but ends inside the chunks of an envelope, that envelope is returned as a partial.
func ParseScript(script []byte) (*Envelope, *Partial) {
	var first *Partial
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		data, ok := pushData(&tokenizer)
		if !ok || !bytes.Equal(data, protocolId) {
			continue
		}
		envelope, partial := envelopeFromTokenizer(tokenizer)
		if envelope != nil {
			return envelope, nil
		}
		if first == nil {
			first = partial
		}
	}
	return nil, first
}

// envelopeFromTokenizer reads an envelope body from a copy of the tokenizer positioned at the protocol marker.
func envelopeFromTokenizer(tokenizer txscript.ScriptTokenizer) (*Envelope, *Partial) {
	next := func() ([]byte, bool) {
		if !tokenizer.Next() {
			return nil, false
		}
		return pushData(&tokenizer)
	}

	rawCount, ok := next()
	if !ok {
		return nil, nil
	}
	count, ok := pushDataToNumber(rawCount)
	if !ok {
		return nil, nil
	}
	contentType, ok := next()
	if !ok {
		return nil, nil
	}

	var chunks [][]byte
	// without chunks only a terminated tag section (a delegate) makes an inscription
	legacy := func() *Envelope {
		if count == 0 {
			return nil
		}
		return newEnvelope(contentType, chunks, nil, true)
	}
	for remaining := count; remaining > 0; remaining-- {
		rawIndex, ok := next()
		if !ok {
			// the remaining chunks follow in the transaction spending this one
			if tokenizer.Err() == nil && tokenizer.Done() {
				return nil, &Partial{ContentType: contentType, Chunks: chunks, Remaining: remaining}
			}
			return nil, nil
		}
		index, ok := pushDataToNumber(rawIndex)
		if !ok || index != remaining-1 {
			return nil, nil
		}
		chunk, ok := next()
		if !ok {
			return nil, nil
		}
		chunks = append(chunks, chunk)
	}

	terminator, ok := next()
	if tokenizer.Err() != nil {
		return nil, nil
	}
	if !ok || len(terminator) != 0 {
		return legacy(), nil
	}

	var fields Fields
	for {
		rawTag, ok := next()
		if !ok {
			// a started tag section must be terminated
			if tokenizer.Err() != nil || len(fields) > 0 {
				return nil, nil
			}
			return legacy(), nil
		}
		if len(rawTag) == 0 {
			return newEnvelope(contentType, chunks, fields, false), nil
		}
		if len(rawTag) != 1 {
			if len(fields) > 0 {
				return nil, nil
			}
			return legacy(), nil
		}
		value, ok := next()
		if !ok {
			return nil, nil
		}
		fields = append(fields, Field{Tag: Tag(rawTag[0]), Value: value})
	}
}

// Partial is an envelope whose chunks do not fit in one signature script. Each transaction
// in the chain spends the previous one and carries the next chunks in its first input.
type Partial struct {
	ContentType []byte
	Chunks      [][]byte
	Remaining   uint64 // number of chunks still to come
}

// Continue reads the next chunks from the signature script of the transaction spending the
// previous piece. The script must start with the next chunk index. It returns the completed
// legacy envelope, or the partial extended with the chunks read when more transactions follow,
// or neither when the script does not continue the envelope.
func (p *Partial) Continue(script []byte) (*Envelope, *Partial) {
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	next := func() ([]byte, bool) {
		if !tokenizer.Next() {
			return nil, false
		}
		return pushData(&tokenizer)
	}

	chunks := slices.Clone(p.Chunks)
	for remaining := p.Remaining; remaining > 0; remaining-- {
		rawIndex, ok := next()
		if !ok {
			// a continuation carries at least one chunk
			if tokenizer.Err() != nil || !tokenizer.Done() || remaining == p.Remaining {
				return nil, nil
			}
			return nil, &Partial{ContentType: p.ContentType, Chunks: chunks, Remaining: remaining}
		}
		index, ok := pushDataToNumber(rawIndex)
		if !ok || index != remaining-1 {
			return nil, nil
		}
		chunk, ok := next()
		if !ok {
			return nil, nil
		}
		chunks = append(chunks, chunk)
	}
	return newEnvelope(p.ContentType, chunks, nil, true), nil
}

func newEnvelope(contentType []byte, chunks [][]byte, fields Fields, legacy bool) *Envelope {
	var unrecognizedEvenField bool
	for _, field := range fields.Unrecognized() {
		if field.Tag.IsEven() {
			unrecognizedEvenField = true
			break
		}
	}
	return &Envelope{
		Inscription:           newInscription(contentType, chunks, fields),
		ContentType:           contentType,
		Chunks:                chunks,
		Fields:                fields,
		Legacy:                legacy,
		DuplicateField:        fields.HasDuplicate(),
		UnrecognizedEvenField: unrecognizedEvenField,
	}
}

// pushData returns the data pushed by the current opcode. Small integer opcodes push their value.
func pushData(tokenizer *txscript.ScriptTokenizer) ([]byte, bool) {
	opcode := tokenizer.Opcode()
	switch {
	case opcode == txscript.OP_0:
		return nil, true
	case opcode >= txscript.OP_1 && opcode <= txscript.OP_16:
		return []byte{opcode - (txscript.OP_1 - 1)}, true
	case opcode <= txscript.OP_PUSHDATA4:
		data := tokenizer.Data()
		if len(data) == 0 {
			return nil, true
		}
		return data, true
	}
	return nil, false
}

// pushDataToNumber decodes an unsigned little-endian number of at most 8 bytes. An empty push is zero.
func pushDataToNumber(data []byte) (uint64, bool) {
	if len(data) > 8 {
		return 0, false
	}
	var buf [8]byte
	copy(buf[:], data)
	return binary.LittleEndian.Uint64(buf[:]), true
}

func numberToPushData(n uint64) []byte {
	return PointerValue(n)
}

// BuildEnvelopeScript encodes the envelope into a push-only script.
func BuildEnvelopeScript(envelope *Envelope) ([]byte, error) {
	builder := NewPushScriptBuilder().
		AddData(protocolId).
		AddData(numberToPushData(uint64(len(envelope.Chunks)))).
		AddData(envelope.ContentType)
	for i, chunk := range envelope.Chunks {
		builder.
			AddData(numberToPushData(uint64(len(envelope.Chunks) - 1 - i))).
			AddData(chunk)
	}
	if !envelope.Legacy {
		builder.AddData(nil)
		for _, field := range envelope.Fields {
			builder.
				AddData(field.Tag.Bytes()).
				AddData(field.Value)
		}
		builder.AddData(nil)
	}
	return builder.Script()
}
