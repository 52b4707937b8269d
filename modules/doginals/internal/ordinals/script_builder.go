package ordinals

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// PushScriptBuilder builds scripts whose data pushes use OP_DATA_* or OP_PUSHDATA* only,
// so a one byte push of a small number is never rewritten to OP_1..OP_16.
// Empty data pushes are encoded as OP_0.
type PushScriptBuilder struct {
	script []byte
	err    error
}

func NewPushScriptBuilder() *PushScriptBuilder {
	return &PushScriptBuilder{}
}

func pushDataToBytes(data []byte) []byte {
	dataLen := len(data)
	if dataLen == 0 {
		return []byte{txscript.OP_0}
	}
	script := make([]byte, 0, dataLen+5)
	switch {
	case dataLen < txscript.OP_PUSHDATA1:
		script = append(script, byte(txscript.OP_DATA_1-1+dataLen))
	case dataLen <= 0xff:
		script = append(script, txscript.OP_PUSHDATA1, byte(dataLen))
	case dataLen <= 0xffff:
		script = append(script, txscript.OP_PUSHDATA2)
		script = binary.LittleEndian.AppendUint16(script, uint16(dataLen))
	default:
		script = append(script, txscript.OP_PUSHDATA4)
		script = binary.LittleEndian.AppendUint32(script, uint32(dataLen))
	}
	return append(script, data...)
}

// AddData pushes the passed data to the end of the script. Pushes larger than MaxScriptElementSize
// or pushes that would grow the script past MaxScriptSize fail the builder.
func (b *PushScriptBuilder) AddData(data []byte) *PushScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(data) > txscript.MaxScriptElementSize {
		b.err = txscript.ErrScriptNotCanonical(fmt.Sprintf("adding a data element of %d bytes would "+
			"exceed the maximum allowed script element size of %d", len(data), txscript.MaxScriptElementSize))
		return b
	}
	push := pushDataToBytes(data)
	if len(b.script)+len(push) > txscript.MaxScriptSize {
		b.err = txscript.ErrScriptNotCanonical(fmt.Sprintf("adding %d bytes of data would exceed the "+
			"maximum allowed canonical script length of %d", len(push), txscript.MaxScriptSize))
		return b
	}
	b.script = append(b.script, push...)
	return b
}

// AddOp pushes the passed opcode to the end of the script.
func (b *PushScriptBuilder) AddOp(opcode byte) *PushScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(b.script)+1 > txscript.MaxScriptSize {
		b.err = txscript.ErrScriptNotCanonical(fmt.Sprintf("adding an opcode would exceed the maximum "+
			"allowed canonical script length of %d", txscript.MaxScriptSize))
		return b
	}
	b.script = append(b.script, opcode)
	return b
}

// Script returns the script built so far and the first error encountered, if any.
func (b *PushScriptBuilder) Script() ([]byte, error) {
	return b.script, b.err
}
