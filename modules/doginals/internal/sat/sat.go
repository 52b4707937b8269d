// Package sat tracks sat ranges through blocks.
//
// The coinbase of a block receives the block subsidy followed by the fees of
// the block's transactions in transaction order. Every other transaction
// concatenates its inputs' ranges and cuts them across its outputs by value.
package sat

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
)

// ErrConservation means the sats leaving a transaction or block do not match
// the sats entering it. It indicates an indexing defect and must stop indexing.
var ErrConservation = errors.New("sat conservation violated")

// Range is the half-open interval [Start, End).
type Range struct {
	Start uint128.Uint128
	End   uint128.Uint128
}

func NewRange(start uint128.Uint128, n uint64) Range {
	return Range{Start: start, End: start.Add64(n)}
}

// Len panics if the range is longer than 2^64-1, which no single output can hold.
func (r Range) Len() uint64 {
	d := r.End.Sub(r.Start)
	if d.Hi != 0 {
		panic("sat: range longer than uint64")
	}
	return d.Lo
}

func (r Range) String() string {
	return fmt.Sprintf("[%s,%s)", r.Start, r.End)
}

// Ranges is an ordered list of ranges, as held by one output.
type Ranges []Range

// Len returns the number of sats in rs.
func (rs Ranges) Len() uint64 {
	var n uint64
	for _, r := range rs {
		n += r.Len()
	}
	return n
}

// Locate returns the sat at offset, counting from the first sat of rs.
func (rs Ranges) Locate(offset uint64) (uint128.Uint128, bool) {
	for _, r := range rs {
		l := r.Len()
		if offset < l {
			return r.Start.Add64(offset), true
		}
		offset -= l
	}
	return uint128.Zero, false
}

// Offset returns the position of sat in rs.
func (rs Ranges) Offset(sat uint128.Uint128) (uint64, bool) {
	var offset uint64
	for _, r := range rs {
		if sat.Cmp(r.Start) >= 0 && sat.Cmp(r.End) < 0 {
			return offset + sat.Sub(r.Start).Lo, true
		}
		offset += r.Len()
	}
	return 0, false
}

// take splits the first n sats off rs. rs must be owned by the caller, its
// first element may be modified.
func (rs Ranges) take(n uint64) (head, tail Ranges, ok bool) {
	for n > 0 {
		if len(rs) == 0 {
			return nil, nil, false
		}
		r := rs[0]
		if l := r.Len(); l <= n {
			head = append(head, r)
			rs = rs[1:]
			n -= l
			continue
		}
		mid := r.Start.Add64(n)
		head = append(head, Range{Start: r.Start, End: mid})
		rs[0].Start = mid
		n = 0
	}
	return head, rs, true
}

// Split concatenates inputs and cuts them into consecutive pieces sized by
// values. The sats not assigned to any value are returned as rest.
func Split(inputs []Ranges, values []uint64) (outputs []Ranges, rest Ranges, err error) {
	var queue Ranges
	for _, in := range inputs {
		for _, r := range in {
			if r.Start != r.End {
				queue = append(queue, r)
			}
		}
	}

	outputs = make([]Ranges, len(values))
	for i, v := range values {
		var ok bool
		outputs[i], queue, ok = queue.take(v)
		if !ok {
			return nil, nil, errors.Wrapf(ErrConservation, "output %d needs %d sats, inputs are exhausted", i, v)
		}
	}
	if len(queue) == 0 {
		return outputs, nil, nil
	}
	return outputs, queue, nil
}
