package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRPCError(t *testing.T) {
	rpcErr := classifyRPCError("txpool_content", []string{"mainnet"},
		errors.New("the method txpool_content does not exist/is not available"))
	assert.Equal(t, ErrKindRPC, rpcErr.Kind)
	assert.False(t, rpcErr.Recoverable)
	assert.Nil(t, rpcErr.Retry)

	rateErr := classifyRPCError("txpool_status", []string{"mainnet"},
		errors.New("too many requests"))
	assert.Equal(t, ErrKindRateLimit, rateErr.Kind)
	assert.True(t, rateErr.Recoverable)
	require.NotNil(t, rateErr.Retry)
	assert.Equal(t, "txpool_status", rateErr.Retry.Operation)
	assert.Equal(t, []string{"mainnet"}, rateErr.Retry.Params)

	netErr := classifyRPCError("eth_blockNumber", nil, errors.New("i/o timeout"))
	assert.Equal(t, ErrKindNetwork, netErr.Kind)
	assert.True(t, netErr.Recoverable)
}

func TestWrapOperation(t *testing.T) {
	// Raw errors become generic recoverable network errors.
	wrapped := wrapOperation("get_network_conditions", "mainnet", errors.New("boom"))
	assert.Equal(t, ErrKindNetwork, wrapped.Kind)
	assert.True(t, wrapped.Recoverable)
	require.NotNil(t, wrapped.Retry)
	assert.Equal(t, "get_network_conditions", wrapped.Retry.Operation)

	// Classified errors keep their kind.
	inner := validationError("txpool_status", "bad counts")
	passed := wrapOperation("get_network_conditions", "mainnet", inner)
	assert.Equal(t, ErrKindValidation, passed.Kind)
	assert.False(t, passed.Recoverable)
	assert.Nil(t, passed.Retry)
}

func TestWithRetriesDoesNotRetryValidation(t *testing.T) {
	calls := 0
	err := withRetries(context.Background(), 5, func() error {
		calls++
		return validationError("txpool_status", "bad shape")
	})

	var cerr *ClassifiedError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrKindValidation, cerr.Kind)
	assert.Equal(t, 1, calls)
}

func TestWithRetriesRecoversTransientFailure(t *testing.T) {
	calls := 0
	err := withRetries(context.Background(), 2, func() error {
		calls++
		if calls == 1 {
			return classifyRPCError("txpool_status", nil, errors.New("connection reset"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetriesCapsAttempts(t *testing.T) {
	calls := 0
	err := withRetries(context.Background(), 1, func() error {
		calls++
		return classifyRPCError("txpool_status", nil, errors.New("rate limit exceeded"))
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}
