package dogeutils

import (
	"github.com/Cleverse/go-utilities/utils"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Network magic values as read by wire (little-endian of the message start bytes).
const (
	MainNet wire.BitcoinNet = 0xc0c0c0c0
	TestNet wire.BitcoinNet = 0xdcb7c1fc
	RegTest wire.BitcoinNet = 0xdab5bffa
)

// The params below only fill the fields used for address encoding and
// block identification. They are not registered with chaincfg because
// the regtest magic collides with bitcoin's.
var (
	MainNetParams = func() chaincfg.Params {
		p := chaincfg.MainNetParams
		p.Name = "dogecoin-mainnet"
		p.Net = MainNet
		p.DefaultPort = "22556"
		p.GenesisHash = utils.Must(chainhash.NewHashFromStr("1a91e3dace36e2be3bf030a65679fe821aa1d6ef92e7c9902eb318182c355691"))
		p.PubKeyHashAddrID = 0x1e
		p.ScriptHashAddrID = 0x16
		p.PrivateKeyID = 0x9e
		p.HDPrivateKeyID = [4]byte{0x02, 0xfa, 0xc3, 0x98}
		p.HDPublicKeyID = [4]byte{0x02, 0xfa, 0xca, 0xfd}
		p.Bech32HRPSegwit = "doge"
		p.Checkpoints = nil
		p.DNSSeeds = nil
		return p
	}()

	TestNetParams = func() chaincfg.Params {
		p := chaincfg.TestNet3Params
		p.Name = "dogecoin-testnet"
		p.Net = TestNet
		p.DefaultPort = "44556"
		p.GenesisHash = utils.Must(chainhash.NewHashFromStr("bb0a78264637406b6360aad926284d544d7049f45189db5664f3c4d07350559e"))
		p.PubKeyHashAddrID = 0x71
		p.ScriptHashAddrID = 0xc4
		p.PrivateKeyID = 0xf1
		p.HDPrivateKeyID = [4]byte{0x04, 0x35, 0x83, 0x94}
		p.HDPublicKeyID = [4]byte{0x04, 0x35, 0x87, 0xcf}
		p.Bech32HRPSegwit = "tdge"
		p.Checkpoints = nil
		p.DNSSeeds = nil
		return p
	}()

	RegressionNetParams = func() chaincfg.Params {
		p := chaincfg.RegressionNetParams
		p.Name = "dogecoin-regtest"
		p.Net = RegTest
		p.DefaultPort = "18444"
		p.GenesisHash = utils.Must(chainhash.NewHashFromStr("3d2160a3b5dc4a9d62e7e66a295f70313ac808440ef7400d6c0772171ce973a5"))
		p.PubKeyHashAddrID = 0x6f
		p.ScriptHashAddrID = 0xc4
		p.PrivateKeyID = 0xef
		p.Bech32HRPSegwit = "dcrt"
		p.Checkpoints = nil
		return p
	}()
)
