package kv

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
	"github.com/gaze-network/doginals-indexer/pkg/bufferpool"
	"github.com/gaze-network/doginals-indexer/pkg/leb128"
	"github.com/gaze-network/uint128"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protowire"
)

// encoder writes a record as a flat sequence of untagged protobuf wire values: integers
// are varints, byte strings are length-delimited. uint128 values use leb128.
type encoder struct {
	buf *bufferpool.Buffer
}

func newEncoder() *encoder {
	return &encoder{buf: bufferpool.Get()}
}

// finish returns the encoded record and releases the encoder.
func (e *encoder) finish() []byte {
	out := e.buf.Copy()
	e.buf.Release()
	e.buf = nil
	return out
}

func (e *encoder) uint64(v uint64) *encoder {
	e.buf.B = protowire.AppendVarint(e.buf.B, v)
	return e
}

// int64 uses zigzag encoding so small negative values stay short.
func (e *encoder) int64(v int64) *encoder {
	return e.uint64(protowire.EncodeZigZag(v))
}

func (e *encoder) uint128(v uint128.Uint128) *encoder {
	e.buf.B = leb128.AppendUint128(e.buf.B, v)
	return e
}

func (e *encoder) bool(v bool) *encoder {
	if v {
		e.buf.B = append(e.buf.B, 1)
	} else {
		e.buf.B = append(e.buf.B, 0)
	}
	return e
}

func (e *encoder) bytes(v []byte) *encoder {
	e.buf.B = protowire.AppendBytes(e.buf.B, v)
	return e
}

// optionalBytes keeps nil and empty apart.
func (e *encoder) optionalBytes(v []byte) *encoder {
	if v == nil {
		return e.bool(false)
	}
	return e.bool(true).bytes(v)
}

func (e *encoder) string(v string) *encoder {
	e.buf.B = protowire.AppendString(e.buf.B, v)
	return e
}

func (e *encoder) hash(v chainhash.Hash) *encoder {
	e.buf.B = append(e.buf.B, v[:]...)
	return e
}

func (e *encoder) decimal(v decimal.Decimal) *encoder {
	return e.string(v.String())
}

func (e *encoder) time(v time.Time) *encoder {
	return e.int64(v.Unix())
}

// decoder reads fields written by encoder. The first error sticks and every later read
// returns a zero value.
type decoder struct {
	data []byte
	err  error
}

func newDecoder(data []byte) *decoder {
	return &decoder{data: data}
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = errors.Wrap(errs.Corrupted, err.Error())
	}
}

func (d *decoder) take(n uint64) []byte {
	if d.err != nil {
		return nil
	}
	if uint64(len(d.data)) < n {
		d.fail(errors.Newf("need %d bytes, have %d", n, len(d.data)))
		return nil
	}
	out := d.data[:n]
	d.data = d.data[n:]
	return out
}

func (d *decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := protowire.ConsumeVarint(d.data)
	if n < 0 {
		d.fail(protowire.ParseError(n))
		return 0
	}
	d.data = d.data[n:]
	return v
}

func (d *decoder) int64() int64 {
	return protowire.DecodeZigZag(d.uint64())
}

func (d *decoder) uint32() uint32 {
	v := d.uint64()
	if v > 1<<32-1 {
		d.fail(errors.Newf("value %d overflows uint32", v))
		return 0
	}
	return uint32(v)
}

func (d *decoder) uint16() uint16 {
	v := d.uint64()
	if v > 1<<16-1 {
		d.fail(errors.Newf("value %d overflows uint16", v))
		return 0
	}
	return uint16(v)
}

func (d *decoder) uint128() uint128.Uint128 {
	if d.err != nil {
		return uint128.Zero
	}
	v, n, err := leb128.DecodeUint128(d.data)
	if err != nil {
		d.fail(err)
		return uint128.Zero
	}
	d.data = d.data[n:]
	return v
}

func (d *decoder) bool() bool {
	b := d.take(1)
	if b == nil {
		return false
	}
	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	}
	d.fail(errors.Newf("invalid bool %d", b[0]))
	return false
}

// bytes returns a copy, so the result outlives the store transaction.
func (d *decoder) bytes() []byte {
	b := d.lengthDelimited()
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (d *decoder) lengthDelimited() []byte {
	if d.err != nil {
		return nil
	}
	b, n := protowire.ConsumeBytes(d.data)
	if n < 0 {
		d.fail(protowire.ParseError(n))
		return nil
	}
	d.data = d.data[n:]
	return b
}

func (d *decoder) optionalBytes() []byte {
	if !d.bool() {
		return nil
	}
	return d.bytes()
}

func (d *decoder) string() string {
	return string(d.lengthDelimited())
}

func (d *decoder) hash() chainhash.Hash {
	var h chainhash.Hash
	copy(h[:], d.take(chainhash.HashSize))
	return h
}

func (d *decoder) decimal() decimal.Decimal {
	s := d.string()
	if d.err != nil {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		d.fail(err)
		return decimal.Zero
	}
	return v
}

func (d *decoder) time() time.Time {
	return time.Unix(d.int64(), 0).UTC()
}

// finish reports the first error, or trailing bytes.
func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.data) != 0 {
		return errors.Wrapf(errs.Corrupted, "%d trailing bytes", len(d.data))
	}
	return nil
}
