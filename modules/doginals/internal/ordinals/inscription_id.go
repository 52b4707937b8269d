package ordinals

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/doginals-indexer/common/errs"
)

// InscriptionIdLength is the length of the binary form of an InscriptionId.
const InscriptionIdLength = chainhash.HashSize + 4

// InscriptionId is the reveal transaction hash plus the index of the envelope within that transaction.
type InscriptionId struct {
	TxHash chainhash.Hash
	Index  uint32
}

func NewInscriptionId(txHash chainhash.Hash, index uint32) InscriptionId {
	return InscriptionId{
		TxHash: txHash,
		Index:  index,
	}
}

func (i InscriptionId) String() string {
	return fmt.Sprintf("%si%d", i.TxHash.String(), i.Index)
}

var ErrInscriptionIdInvalidSeparator = fmt.Errorf("invalid inscription id: must contain exactly one separator")

func NewInscriptionIdFromString(s string) (InscriptionId, error) {
	parts := strings.SplitN(s, "i", 2)
	if len(parts) != 2 {
		return InscriptionId{}, errors.WithStack(ErrInscriptionIdInvalidSeparator)
	}
	txHash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return InscriptionId{}, errors.Wrap(err, "invalid inscription id: cannot parse txHash")
	}
	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return InscriptionId{}, errors.Wrap(err, "invalid inscription id: cannot parse index")
	}
	return InscriptionId{
		TxHash: *txHash,
		Index:  uint32(index),
	}, nil
}

// Value encodes the id the way delegate and parent tags carry it: the transaction hash in internal
// byte order followed by the little-endian index with trailing zero bytes trimmed.
func (i InscriptionId) Value() []byte {
	value := make([]byte, chainhash.HashSize, InscriptionIdLength)
	copy(value, i.TxHash[:])
	var index [4]byte
	binary.LittleEndian.PutUint32(index[:], i.Index)
	end := len(index)
	for end > 0 && index[end-1] == 0 {
		end--
	}
	return append(value, index[:end]...)
}

// NewInscriptionIdFromValue decodes a delegate or parent tag value.
func NewInscriptionIdFromValue(value []byte) (InscriptionId, error) {
	if len(value) < chainhash.HashSize || len(value) > InscriptionIdLength {
		return InscriptionId{}, errors.Wrapf(errs.InvalidArgument, "invalid inscription id value length %d", len(value))
	}
	var id InscriptionId
	copy(id.TxHash[:], value[:chainhash.HashSize])
	indexBytes := value[chainhash.HashSize:]
	if len(indexBytes) > 0 && indexBytes[len(indexBytes)-1] == 0 {
		return InscriptionId{}, errors.Wrap(errs.InvalidArgument, "invalid inscription id value: index has trailing zero")
	}
	var index [4]byte
	copy(index[:], indexBytes)
	id.Index = binary.LittleEndian.Uint32(index[:])
	return id, nil
}

// MarshalBinary encodes the id as a fixed-length key: hash then big-endian index.
func (i InscriptionId) MarshalBinary() ([]byte, error) {
	return i.Bytes(), nil
}

func (i InscriptionId) Bytes() []byte {
	b := make([]byte, InscriptionIdLength)
	copy(b, i.TxHash[:])
	binary.BigEndian.PutUint32(b[chainhash.HashSize:], i.Index)
	return b
}

func (i *InscriptionId) UnmarshalBinary(data []byte) error {
	if len(data) != InscriptionIdLength {
		return errors.Wrapf(errs.Corrupted, "invalid inscription id length %d", len(data))
	}
	copy(i.TxHash[:], data[:chainhash.HashSize])
	i.Index = binary.BigEndian.Uint32(data[chainhash.HashSize:])
	return nil
}

// MarshalJSON implements json.Marshaler
func (i InscriptionId) MarshalJSON() ([]byte, error) {
	return []byte(`"` + i.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (i *InscriptionId) UnmarshalJSON(data []byte) error {
	// data must be quoted
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("must be string")
	}
	data = data[1 : len(data)-1]
	parsed, err := NewInscriptionIdFromString(string(data))
	if err != nil {
		return errors.WithStack(err)
	}
	*i = parsed
	return nil
}
