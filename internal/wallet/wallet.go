// Package wallet classifies free-text wallet addresses by chain family.
package wallet

import (
	"strings"

	"filippo.io/edwards25519"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// Kind is the detected address family.
type Kind string

const (
	KindEVM       Kind = "evm"
	KindSolana    Kind = "solana"     // ed25519 public key
	KindSolanaPDA Kind = "solana_pda" // 32 bytes, off the ed25519 curve
	KindUnknown   Kind = "unknown"
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	return string(k)
}

// Classify guesses the address family. Addresses are never rejected;
// anything unrecognized is KindUnknown.
func Classify(address string) Kind {
	address = strings.TrimSpace(address)
	if address == "" {
		return KindUnknown
	}

	if common.IsHexAddress(address) && strings.HasPrefix(strings.ToLower(address), "0x") {
		return KindEVM
	}

	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != 32 {
		return KindUnknown
	}
	if isOnCurve(decoded) {
		return KindSolana
	}
	return KindSolanaPDA
}

// NormalizeEVM returns the EIP-55 checksummed form of an EVM address,
// or the input unchanged for other kinds.
func NormalizeEVM(address string) string {
	if Classify(address) != KindEVM {
		return address
	}
	return common.HexToAddress(address).Hex()
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
