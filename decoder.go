package main

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PYUSD contract addresses per network.
var tokenContracts = map[string]common.Address{
	"mainnet": common.HexToAddress("0x6c3ea9036406852006290770BEdFcAbA0e23A0e8"),
	"sepolia": common.HexToAddress("0xCaC524BcA292aaade2DF8A05cC58F0a65B1B3bB9"),
}

const (
	selectorHexLen = 10 // "0x" + 4 selector bytes
	slotBytes      = 32
)

type argKind int

const (
	argAddress argKind = iota
	argUint256
)

type argSpec struct {
	name string
	kind argKind
}

type tokenFunction struct {
	name string
	args []argSpec
}

// tokenFunctions maps 4-byte selectors to the token contract functions we can
// identify and statically decode.
var tokenFunctions = map[string]tokenFunction{
	"0xa9059cbb": {name: "transfer", args: []argSpec{{"to", argAddress}, {"amount", argUint256}}},
	"0x23b872dd": {name: "transferFrom", args: []argSpec{{"from", argAddress}, {"to", argAddress}, {"amount", argUint256}}},
	"0x095ea7b3": {name: "approve", args: []argSpec{{"spender", argAddress}, {"amount", argUint256}}},
	"0x40c10f19": {name: "mint", args: []argSpec{{"to", argAddress}, {"amount", argUint256}}},
	"0x42966c68": {name: "burn", args: []argSpec{{"amount", argUint256}}},
	"0x8da5cb5b": {name: "owner"},
	"0x70a08231": {name: "balanceOf", args: []argSpec{{"owner", argAddress}}},
	"0xdd62ed3e": {name: "allowance", args: []argSpec{{"owner", argAddress}, {"spender", argAddress}}},
}

// IsTokenTransaction reports whether tx targets the PYUSD contract on the
// given network, or carries call data whose selector matches a known token
// function.
func IsTokenTransaction(tx RawTransaction, network string) bool {
	if addr, ok := tokenContracts[strings.ToLower(network)]; ok && tx.To != "" {
		if strings.EqualFold(tx.To, addr.Hex()) {
			return true
		}
	}
	if len(tx.Input) >= selectorHexLen {
		if _, ok := tokenFunctions[strings.ToLower(tx.Input[:selectorHexLen])]; ok {
			return true
		}
	}
	return false
}

// paramReader reads 32-byte-aligned ABI parameter slots from the bytes
// following the selector. All reads are bounds-checked.
type paramReader struct {
	data []byte
}

func newParamReader(argHex string) (*paramReader, bool) {
	data, err := hex.DecodeString(argHex)
	if err != nil {
		return nil, false
	}
	return &paramReader{data: data}, true
}

func (r *paramReader) has(slots int) bool {
	return len(r.data) >= slots*slotBytes
}

// address returns the last 20 bytes of the given slot as a checksummed hex
// address.
func (r *paramReader) address(slot int) (string, bool) {
	start := slot * slotBytes
	if len(r.data) < start+slotBytes {
		return "", false
	}
	return common.BytesToAddress(r.data[start+12 : start+slotBytes]).Hex(), true
}

// uint256 returns the given slot as a decimal string.
func (r *paramReader) uint256(slot int) (string, bool) {
	start := slot * slotBytes
	if len(r.data) < start+slotBytes {
		return "", false
	}
	return new(big.Int).SetBytes(r.data[start : start+slotBytes]).String(), true
}

// DecodeCallData identifies and decodes a token-contract call from raw input
// hex. Unknown selectors yield Name "Unknown" with no parameters; inputs too
// short for the claimed function keep the recognized name but leave
// Parameters nil rather than reading out of bounds. Never panics.
func DecodeCallData(inputHex string) DecodedFunction {
	input := strings.ToLower(strings.TrimSpace(inputHex))
	if len(input) < selectorHexLen {
		return DecodedFunction{Name: "Unknown", Signature: input}
	}

	selector := input[:selectorHexLen]
	fn, ok := tokenFunctions[selector]
	if !ok {
		return DecodedFunction{Name: "Unknown", Signature: selector}
	}

	decoded := DecodedFunction{Name: fn.name, Signature: selector}
	if len(fn.args) == 0 {
		return decoded
	}

	reader, ok := newParamReader(input[selectorHexLen:])
	if !ok || !reader.has(len(fn.args)) {
		return decoded
	}

	params := make(map[string]string, len(fn.args))
	for i, arg := range fn.args {
		var (
			val string
			ok  bool
		)
		switch arg.kind {
		case argAddress:
			val, ok = reader.address(i)
		case argUint256:
			val, ok = reader.uint256(i)
		}
		if !ok {
			// All-or-nothing: a failed slot read leaves Parameters unset.
			return decoded
		}
		params[arg.name] = val
	}
	decoded.Parameters = params
	return decoded
}
