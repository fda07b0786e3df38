package main

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pad64(s string) string {
	return strings.Repeat("0", 64-len(s)) + s
}

func addrSlot(addr string) string {
	return pad64(strings.ToLower(strings.TrimPrefix(addr, "0x")))
}

func TestDecodeTransferRoundTrip(t *testing.T) {
	to := "0x1111111111111111111111111111111111111111"
	// transfer(to, 1000000); 1000000 = 0xf4240
	input := "0xa9059cbb" + addrSlot(to) + pad64("f4240")

	got := DecodeCallData(input)

	require.Equal(t, "transfer", got.Name)
	require.Equal(t, "0xa9059cbb", got.Signature)
	require.NotNil(t, got.Parameters)
	assert.Equal(t, common.HexToAddress(to).Hex(), got.Parameters["to"])
	assert.Equal(t, "1000000", got.Parameters["amount"])
}

func TestDecodeTransferFromOffsets(t *testing.T) {
	from := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	to := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	input := "0x23b872dd" + addrSlot(from) + addrSlot(to) + pad64("2540be400") // 10^10

	got := DecodeCallData(input)

	require.Equal(t, "transferFrom", got.Name)
	require.NotNil(t, got.Parameters)
	assert.Equal(t, common.HexToAddress(from).Hex(), got.Parameters["from"])
	assert.Equal(t, common.HexToAddress(to).Hex(), got.Parameters["to"])
	assert.Equal(t, "10000000000", got.Parameters["amount"])
}

func TestDecodeApproveAndBalanceOf(t *testing.T) {
	spender := "0xcccccccccccccccccccccccccccccccccccccccc"

	approve := DecodeCallData("0x095ea7b3" + addrSlot(spender) + pad64("1"))
	require.Equal(t, "approve", approve.Name)
	require.NotNil(t, approve.Parameters)
	assert.Equal(t, common.HexToAddress(spender).Hex(), approve.Parameters["spender"])
	assert.Equal(t, "1", approve.Parameters["amount"])

	balanceOf := DecodeCallData("0x70a08231" + addrSlot(spender))
	require.Equal(t, "balanceOf", balanceOf.Name)
	require.NotNil(t, balanceOf.Parameters)
	assert.Equal(t, common.HexToAddress(spender).Hex(), balanceOf.Parameters["owner"])
}

func TestDecodeZeroArgFunction(t *testing.T) {
	got := DecodeCallData("0x8da5cb5b")
	assert.Equal(t, "owner", got.Name)
	assert.Nil(t, got.Parameters)
}

func TestDecodeUnknownSelector(t *testing.T) {
	got := DecodeCallData("0xdeadbeef" + pad64("1") + pad64("2"))
	assert.Equal(t, "Unknown", got.Name)
	assert.Equal(t, "0xdeadbeef", got.Signature)
	assert.Nil(t, got.Parameters)
}

func TestDecodeShortInputLeavesParametersAbsent(t *testing.T) {
	// Recognized selector but only one of two parameter slots present.
	got := DecodeCallData("0xa9059cbb" + pad64("1"))
	assert.Equal(t, "transfer", got.Name)
	assert.Nil(t, got.Parameters)

	// Bare selector.
	got = DecodeCallData("0xa9059cbb")
	assert.Equal(t, "transfer", got.Name)
	assert.Nil(t, got.Parameters)

	// Not even a full selector.
	got = DecodeCallData("0xa905")
	assert.Equal(t, "Unknown", got.Name)

	// Empty input.
	got = DecodeCallData("0x")
	assert.Equal(t, "Unknown", got.Name)
}

func TestDecodeMalformedHexLeavesParametersAbsent(t *testing.T) {
	got := DecodeCallData("0xa9059cbb" + "zz" + pad64("1"))
	assert.Equal(t, "transfer", got.Name)
	assert.Nil(t, got.Parameters)
}

func TestDecodeIdempotent(t *testing.T) {
	input := "0xa9059cbb" + addrSlot("0x1111111111111111111111111111111111111111") + pad64("f4240")
	assert.Equal(t, DecodeCallData(input), DecodeCallData(input))
}

func TestIsTokenTransactionByAddress(t *testing.T) {
	tx := RawTransaction{
		To:    "0x6C3EA9036406852006290770BEDFCABA0E23A0E8", // mainnet PYUSD, odd casing
		Input: "0x",
	}
	assert.True(t, IsTokenTransaction(tx, "mainnet"))
	assert.False(t, IsTokenTransaction(tx, "sepolia"))
}

func TestIsTokenTransactionBySelector(t *testing.T) {
	tx := RawTransaction{
		To:    "0x9999999999999999999999999999999999999999",
		Input: "0xa9059cbb" + pad64("1") + pad64("2"),
	}
	assert.True(t, IsTokenTransaction(tx, "mainnet"))

	plain := RawTransaction{
		To:    "0x9999999999999999999999999999999999999999",
		Input: "0x",
	}
	assert.False(t, IsTokenTransaction(plain, "mainnet"))
}
