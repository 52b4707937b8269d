package kv

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/gaze-network/doginals-indexer/modules/doginals/internal/ordinals"
	"github.com/gaze-network/uint128"
)

// Key namespaces. Every key in a namespace has the same length.
const (
	prefixSatToInscriptionId    byte = 0x01 // sat (16) -> inscription id
	prefixInscription           byte = 0x02 // inscription id (36) -> inscription
	prefixNumberToInscriptionId byte = 0x03 // number (8) -> inscription id
	prefixOutPoint              byte = 0x04 // outpoint (36) -> outpoint entry
	prefixTick                  byte = 0x05 // tick (4) -> tick entry
	prefixBalance               byte = 0x06 // sha256(pkScript) (32) || tick (4) -> balance
	prefixTransferableLog       byte = 0x07 // inscription id (36) -> transferable log
	prefixTransferableOwner     byte = 0x08 // sha256(pkScript) (32) || inscription id (36) -> empty
	prefixIndexedBlock          byte = 0x09 // height (8) -> indexed block
	prefixStats                 byte = 0x0a // -> stats
	prefixIndexerState          byte = 0x0b // -> indexer state
	prefixTransaction           byte = 0x0c // txid (32) -> raw tx
	prefixDrc20Event            byte = 0x0d // height (8) || index (4) -> drc20 event
	prefixLatestBlock           byte = 0x0e // -> indexed block
	prefixPartialInscription    byte = 0x0f // txid (32) -> partial inscription
)

func key(prefix byte, parts ...[]byte) []byte {
	n := 1
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	out = append(out, prefix)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func beUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func pkScriptHash(pkScript []byte) []byte {
	h := sha256.Sum256(pkScript)
	return h[:]
}

func satKey(sat uint128.Uint128) []byte {
	b := make([]byte, 16)
	sat.PutBytesBE(b)
	return key(prefixSatToInscriptionId, b)
}

func inscriptionKey(id ordinals.InscriptionId) []byte {
	return key(prefixInscription, id.Bytes())
}

func numberKey(number uint64) []byte {
	return key(prefixNumberToInscriptionId, beUint64(number))
}

func outPointKey(outPoint wire.OutPoint) []byte {
	return key(prefixOutPoint, ordinals.OutPointBytes(outPoint))
}

func tickKey(tick string) []byte {
	return key(prefixTick, []byte(tick))
}

func balanceKey(pkScript []byte, tick string) []byte {
	return key(prefixBalance, pkScriptHash(pkScript), []byte(tick))
}

func balancePrefix(pkScript []byte) []byte {
	return key(prefixBalance, pkScriptHash(pkScript))
}

func transferableLogKey(id ordinals.InscriptionId) []byte {
	return key(prefixTransferableLog, id.Bytes())
}

func transferableOwnerKey(owner []byte, id ordinals.InscriptionId) []byte {
	return key(prefixTransferableOwner, pkScriptHash(owner), id.Bytes())
}

func transferableOwnerPrefix(owner []byte) []byte {
	return key(prefixTransferableOwner, pkScriptHash(owner))
}

func indexedBlockKey(height int64) []byte {
	return key(prefixIndexedBlock, beUint64(uint64(height)))
}

func transactionKey(txHash chainhash.Hash) []byte {
	return key(prefixTransaction, txHash[:])
}

func partialInscriptionKey(txHash chainhash.Hash) []byte {
	return key(prefixPartialInscription, txHash[:])
}

func drc20EventKey(height int64, index uint32) []byte {
	return key(prefixDrc20Event, beUint64(uint64(height)), binary.BigEndian.AppendUint32(nil, index))
}

func drc20EventPrefix(height int64) []byte {
	return key(prefixDrc20Event, beUint64(uint64(height)))
}

var (
	statsKey        = []byte{prefixStats}
	indexerStateKey = []byte{prefixIndexerState}
	latestBlockKey  = []byte{prefixLatestBlock}
)
