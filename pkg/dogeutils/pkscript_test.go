package dogeutils

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPkScriptAddressRoundTrip(t *testing.T) {
	hash160 := make([]byte, 20)
	for i := range hash160 {
		hash160[i] = byte(i)
	}

	tests := []struct {
		name   string
		params *chaincfg.Params
		prefix string
	}{
		{name: "mainnet p2pkh", params: &MainNetParams, prefix: "D"},
		{name: "testnet p2pkh", params: &TestNetParams, prefix: "n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := btcutil.NewAddressPubKeyHash(hash160, tt.params)
			require.NoError(t, err)
			pkScript, err := txscript.PayToAddrScript(addr)
			require.NoError(t, err)

			encoded, err := PkScriptToAddress(tt.params, pkScript)
			require.NoError(t, err)
			assert.Equal(t, tt.prefix, encoded[:1])

			back, err := ToPkScript(tt.params, encoded)
			require.NoError(t, err)
			assert.Equal(t, pkScript, back)
		})
	}
}

func TestToPkScriptHex(t *testing.T) {
	script := []byte{txscript.OP_RETURN, 0x01, 0x02}
	out, err := ToPkScript(&MainNetParams, hex.EncodeToString(script))
	require.NoError(t, err)
	assert.Equal(t, script, out)

	_, err = ToPkScript(&MainNetParams, "")
	assert.Error(t, err)

	_, err = PkScriptToAddress(&MainNetParams, script)
	assert.Error(t, err)
}
