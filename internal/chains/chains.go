// Package chains knows the networks a wallet may report and how to read a
// base token balance on them.
package chains

import "fmt"

type Blockchain struct {
	ID     uint64
	IDHex  string
	Name   string
	Symbol string
	// RPCURL is a public endpoint, empty when none is bundled.
	RPCURL string
}

var (
	// moralis文档中拷贝
	Array = []*Blockchain{
		{
			ID:     1,
			IDHex:  "0x1",
			Name:   "eth",
			Symbol: "ETH",
			RPCURL: "https://cloudflare-eth.com",
		},
		{
			ID:     5,
			IDHex:  "0x5",
			Name:   "goerli",
			Symbol: "ETH",
			RPCURL: "https://rpc.ankr.com/eth_goerli",
		},
		{
			ID:     11155111,
			IDHex:  "0xaa36a7",
			Name:   "sepolia",
			Symbol: "ETH",
			RPCURL: "https://rpc.sepolia.org",
		},
		{
			ID:     137,
			IDHex:  "0x89",
			Name:   "polygon",
			Symbol: "MATIC",
			RPCURL: "https://polygon-rpc.com",
		},
		{
			ID:     80001,
			IDHex:  "0x13881",
			Name:   "mumbai",
			Symbol: "MATIC",
			RPCURL: "https://rpc-mumbai.maticvigil.com",
		},
		{
			ID:     56,
			IDHex:  "0x38",
			Name:   "bsc",
			Symbol: "BNB",
			RPCURL: "https://bsc-dataseed.binance.org",
		},
		{
			ID:     97,
			IDHex:  "0x61",
			Name:   "bsc testnet",
			Symbol: "tBNB",
			RPCURL: "https://data-seed-prebsc-1-s1.binance.org:8545",
		},
		{
			ID:     43114,
			IDHex:  "0xa86a",
			Name:   "avalanche",
			Symbol: "AVAX",
			RPCURL: "https://api.avax.network/ext/bc/C/rpc",
		},
		{
			ID:     43113,
			IDHex:  "0xa869",
			Name:   "avalanche testnet",
			Symbol: "AVAX",
			RPCURL: "https://api.avax-test.network/ext/bc/C/rpc",
		},
		{
			ID:     250,
			IDHex:  "0xfa",
			Name:   "fantom",
			Symbol: "FTM",
			RPCURL: "https://rpc.ftm.tools",
		},
		{
			ID:     25,
			IDHex:  "0x19",
			Name:   "cronos",
			Symbol: "CRO",
			RPCURL: "https://evm.cronos.org",
		},
		{
			ID:     1337,
			IDHex:  "0x539",
			Name:   "localhost",
			Symbol: "ETH",
			RPCURL: "http://127.0.0.1:8545",
		},
	}

	Mapping = make(map[uint64]*Blockchain, len(Array))
)

// nolint:gochecknoinits
func init() {
	for _, c := range Array {
		Mapping[c.ID] = c
	}
}

// ByID returns the known network with the given chain id.
func ByID(id uint64) (*Blockchain, bool) {
	c, ok := Mapping[id]
	return c, ok
}

// HexID formats a chain id the way JSON-RPC and moralis expect it.
func HexID(id uint64) string {
	return fmt.Sprintf("0x%x", id)
}
