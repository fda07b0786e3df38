package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRPC implements rpcCaller for tests. Unregistered methods answer with a
// geth-style "method not found" error.
type fakeRPC struct {
	handlers map[string]func(result interface{}, args []interface{}) error
	calls    []string
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{handlers: make(map[string]func(result interface{}, args []interface{}) error)}
}

func (f *fakeRPC) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	f.calls = append(f.calls, method)
	h, ok := f.handlers[method]
	if !ok {
		return fmt.Errorf("the method %s does not exist/is not available", method)
	}
	return h(result, args)
}

func (f *fakeRPC) respond(method string, v interface{}) {
	f.handlers[method] = func(result interface{}, _ []interface{}) error {
		return respondJSON(result, v)
	}
}

func (f *fakeRPC) fail(method string, err error) {
	f.handlers[method] = func(_ interface{}, _ []interface{}) error {
		return err
	}
}

func (f *fakeRPC) called(method string) bool {
	for _, call := range f.calls {
		if call == method {
			return true
		}
	}
	return false
}

func respondJSON(result, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, result)
}

func TestFetchStatus(t *testing.T) {
	fake := newFakeRPC()
	fake.respond("txpool_status", map[string]string{"pending": "0x1a", "queued": "0x5"})

	status, err := NewPoolClient("mainnet", fake).FetchStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, uint64(26), status.Pending)
	assert.Equal(t, uint64(5), status.Queued)
	assert.Equal(t, status.Pending+status.Queued, status.Total)
	assert.Equal(t, "mainnet", status.Network)
	assert.Positive(t, status.Timestamp)
}

func TestFetchStatusMissingFieldsAreZero(t *testing.T) {
	fake := newFakeRPC()
	fake.respond("txpool_status", map[string]string{})

	status, err := NewPoolClient("mainnet", fake).FetchStatus(context.Background())

	require.NoError(t, err)
	assert.Zero(t, status.Pending)
	assert.Zero(t, status.Queued)
	assert.Zero(t, status.Total)
}

func TestFetchStatusMalformedCount(t *testing.T) {
	fake := newFakeRPC()
	fake.respond("txpool_status", map[string]string{"pending": "0xzz"})

	_, err := NewPoolClient("mainnet", fake).FetchStatus(context.Background())

	var cerr *ClassifiedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrKindValidation, cerr.Kind)
	assert.False(t, cerr.Recoverable)
}

func TestFetchStatusErrorClassification(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		kind        ErrorKind
		recoverable bool
	}{
		{"method missing", errors.New("the method txpool_status does not exist/is not available"), ErrKindRPC, false},
		{"rate limited", errors.New("429 Too Many Requests"), ErrKindRateLimit, true},
		{"transport", errors.New("connection refused"), ErrKindNetwork, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakeRPC()
			fake.fail("txpool_status", tc.err)

			_, err := NewPoolClient("mainnet", fake).FetchStatus(context.Background())

			var cerr *ClassifiedError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tc.kind, cerr.Kind)
			assert.Equal(t, tc.recoverable, cerr.Recoverable)
			if tc.recoverable {
				require.NotNil(t, cerr.Retry)
				assert.Equal(t, "txpool_status", cerr.Retry.Operation)
			}
		})
	}
}

func validPooledTx(hash string) RawTransaction {
	return RawTransaction{
		Hash:     hash,
		From:     "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		To:       "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		GasPrice: "0x3b9aca00",
		Nonce:    "0x0",
		Value:    "0x0",
		Input:    "0x",
	}
}

func TestFetchContent(t *testing.T) {
	fake := newFakeRPC()
	fake.respond("txpool_content", PoolContent{
		Pending: map[string]map[string]RawTransaction{
			"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa": {"0": validPooledTx("0x01")},
		},
		Queued: map[string]map[string]RawTransaction{},
	})

	content, err := NewPoolClient("mainnet", fake).FetchContent(context.Background())

	require.NoError(t, err)
	require.Len(t, content.Pending, 1)
}

func TestFetchContentRejectsMissingHash(t *testing.T) {
	tx := validPooledTx("")
	fake := newFakeRPC()
	fake.respond("txpool_content", PoolContent{
		Pending: map[string]map[string]RawTransaction{
			"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa": {"0": tx},
		},
	})

	_, err := NewPoolClient("mainnet", fake).FetchContent(context.Background())

	var cerr *ClassifiedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrKindValidation, cerr.Kind)
}

func TestFetchContentRejectsBadGasPrice(t *testing.T) {
	tx := validPooledTx("0x01")
	tx.GasPrice = "cheap"
	fake := newFakeRPC()
	fake.respond("txpool_content", PoolContent{
		Pending: map[string]map[string]RawTransaction{
			"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa": {"0": tx},
		},
	})

	_, err := NewPoolClient("mainnet", fake).FetchContent(context.Background())

	var cerr *ClassifiedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrKindValidation, cerr.Kind)
}

func TestFetchContentRejectsWrongShape(t *testing.T) {
	fake := newFakeRPC()
	fake.respond("txpool_content", map[string]interface{}{"pending": []int{1, 2, 3}})

	_, err := NewPoolClient("mainnet", fake).FetchContent(context.Background())

	var cerr *ClassifiedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrKindValidation, cerr.Kind)
}

func TestFetchBaseFee(t *testing.T) {
	fake := newFakeRPC()
	fake.respond("eth_getBlockByNumber", map[string]string{"baseFeePerGas": "0x3b9aca00"}) // 1 gwei

	fee, err := NewPoolClient("mainnet", fake).FetchBaseFee(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1.0, fee)
}

func TestFetchBaseFeeFallsBackWithoutEIP1559(t *testing.T) {
	fake := newFakeRPC()
	fake.respond("eth_getBlockByNumber", map[string]string{"number": "0x10"})

	fee, err := NewPoolClient("mainnet", fake).FetchBaseFee(context.Background())

	require.NoError(t, err)
	assert.Equal(t, fallbackBaseFeeGwei, fee)
}

func TestFetchBlockNumber(t *testing.T) {
	fake := newFakeRPC()
	fake.respond("eth_blockNumber", "0x64")

	num, err := NewPoolClient("mainnet", fake).FetchBlockNumber(context.Background())

	require.NoError(t, err)
	assert.Equal(t, uint64(100), num)
}

func TestHexConversions(t *testing.T) {
	assert.Equal(t, 1.0, hexWeiToGwei("0x3b9aca00"))
	assert.Equal(t, 1.0, hexWeiToEth("0xde0b6b3a7640000"))
	assert.Zero(t, hexWeiToGwei("bogus"))
	assert.Zero(t, hexWeiToEth(""))
}
