package ordinals

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
)

const (
	// OutPointLength is the length of the binary form of an outpoint.
	OutPointLength = chainhash.HashSize + 4
	// SatPointLength is the length of the binary form of a SatPoint.
	SatPointLength = OutPointLength + 8
)

// SatPoint locates a sat inside a transaction output.
type SatPoint struct {
	OutPoint wire.OutPoint
	Offset   uint64
}

func (s SatPoint) String() string {
	return fmt.Sprintf("%s:%d", s.OutPoint.String(), s.Offset)
}

var ErrSatPointInvalidSeparator = fmt.Errorf("invalid sat point: must contain exactly two separators")

func NewSatPointFromString(s string) (SatPoint, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return SatPoint{}, errors.WithStack(ErrSatPointInvalidSeparator)
	}
	txHash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return SatPoint{}, errors.Wrap(err, "invalid sat point: cannot parse txHash")
	}
	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return SatPoint{}, errors.Wrap(err, "invalid sat point: cannot parse output index")
	}
	offset, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return SatPoint{}, errors.Wrap(err, "invalid sat point: cannot parse offset")
	}
	return SatPoint{
		OutPoint: wire.OutPoint{
			Hash:  *txHash,
			Index: uint32(index),
		},
		Offset: offset,
	}, nil
}

// OutPointBytes encodes an outpoint as a fixed-length key.
func OutPointBytes(outPoint wire.OutPoint) []byte {
	b := make([]byte, OutPointLength)
	copy(b, outPoint.Hash[:])
	binary.BigEndian.PutUint32(b[chainhash.HashSize:], outPoint.Index)
	return b
}

func OutPointFromBytes(data []byte) (wire.OutPoint, error) {
	if len(data) != OutPointLength {
		return wire.OutPoint{}, errors.Wrapf(errs.Corrupted, "invalid outpoint length %d", len(data))
	}
	var outPoint wire.OutPoint
	copy(outPoint.Hash[:], data[:chainhash.HashSize])
	outPoint.Index = binary.BigEndian.Uint32(data[chainhash.HashSize:])
	return outPoint, nil
}

func (s SatPoint) MarshalBinary() ([]byte, error) {
	b := make([]byte, SatPointLength)
	copy(b, OutPointBytes(s.OutPoint))
	binary.BigEndian.PutUint64(b[OutPointLength:], s.Offset)
	return b, nil
}

func (s *SatPoint) UnmarshalBinary(data []byte) error {
	if len(data) != SatPointLength {
		return errors.Wrapf(errs.Corrupted, "invalid sat point length %d", len(data))
	}
	outPoint, err := OutPointFromBytes(data[:OutPointLength])
	if err != nil {
		return errors.WithStack(err)
	}
	s.OutPoint = outPoint
	s.Offset = binary.BigEndian.Uint64(data[OutPointLength:])
	return nil
}

// MarshalJSON implements json.Marshaler
func (s SatPoint) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (s *SatPoint) UnmarshalJSON(data []byte) error {
	// data must be quoted
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("must be string")
	}
	data = data[1 : len(data)-1]
	parsed, err := NewSatPointFromString(string(data))
	if err != nil {
		return errors.WithStack(err)
	}
	*s = parsed
	return nil
}
