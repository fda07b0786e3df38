package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// validationSampleSize bounds structural validation of pool content to the
// first few accounts per pool side, keeping validation cheap on huge pools.
const validationSampleSize = 5

// rpcCaller is the narrow slice of *rpc.Client the pool layer needs.
type rpcCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// PoolClient wraps a JSON-RPC connection to one network's node and normalizes
// the raw hex conventions of txpool and block responses.
type PoolClient struct {
	network string
	rpc     rpcCaller
}

func NewPoolClient(network string, caller rpcCaller) *PoolClient {
	return &PoolClient{network: network, rpc: caller}
}

func (c *PoolClient) Network() string { return c.network }

// FetchStatus returns the pending/queued counts from txpool_status. Missing
// fields count as zero; malformed counts are a validation failure.
func (c *PoolClient) FetchStatus(ctx context.Context) (PoolStatus, error) {
	var raw map[string]string
	if err := c.rpc.CallContext(ctx, &raw, "txpool_status"); err != nil {
		return PoolStatus{}, classifyRPCError("txpool_status", []string{c.network}, err)
	}

	pending, err := parseHexUint(raw["pending"])
	if err != nil {
		return PoolStatus{}, validationError("txpool_status", fmt.Sprintf("pending count %q", raw["pending"]))
	}
	queued, err := parseHexUint(raw["queued"])
	if err != nil {
		return PoolStatus{}, validationError("txpool_status", fmt.Sprintf("queued count %q", raw["queued"]))
	}

	return PoolStatus{
		Pending:   pending,
		Queued:    queued,
		Total:     pending + queued,
		Timestamp: time.Now().UnixMilli(),
		Network:   c.network,
	}, nil
}

// FetchContent returns the full pool content from txpool_content after
// structural validation of a bounded sample.
func (c *PoolClient) FetchContent(ctx context.Context) (*PoolContent, error) {
	var content PoolContent
	if err := c.rpc.CallContext(ctx, &content, "txpool_content"); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, validationError("txpool_content", "pool sides are not address-keyed maps")
		}
		return nil, classifyRPCError("txpool_content", []string{c.network}, err)
	}
	if err := validatePoolContent(&content); err != nil {
		return nil, err
	}
	return &content, nil
}

// validatePoolContent checks the first validationSampleSize accounts of each
// pool side: every sampled transaction needs a hash, a well-formed sender and
// a numeric gas price.
func validatePoolContent(content *PoolContent) error {
	for side, pool := range map[string]map[string]map[string]RawTransaction{
		"pending": content.Pending,
		"queued":  content.Queued,
	} {
		sampled := 0
		for addr, byNonce := range pool {
			if sampled >= validationSampleSize {
				break
			}
			sampled++
			if !common.IsHexAddress(addr) {
				return validationError("txpool_content", fmt.Sprintf("%s pool keyed by non-address %q", side, addr))
			}
			for nonce, tx := range byNonce {
				if tx.Hash == "" {
					return validationError("txpool_content", fmt.Sprintf("%s tx %s/%s has no hash", side, addr, nonce))
				}
				if !common.IsHexAddress(tx.From) {
					return validationError("txpool_content", fmt.Sprintf("%s tx %s has malformed sender %q", side, tx.Hash, tx.From))
				}
				if _, ok := parseBigIntString(tx.GasPrice); !ok {
					return validationError("txpool_content", fmt.Sprintf("%s tx %s has non-numeric gas price %q", side, tx.Hash, tx.GasPrice))
				}
			}
		}
	}
	return nil
}

// FetchBaseFee returns the latest block's base fee in gwei. Nodes without
// EIP-1559 fields yield the fallback constant rather than an error.
func (c *PoolClient) FetchBaseFee(ctx context.Context) (float64, error) {
	var head struct {
		BaseFeePerGas string `json:"baseFeePerGas"`
	}
	if err := c.rpc.CallContext(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return fallbackBaseFeeGwei, classifyRPCError("eth_getBlockByNumber", []string{c.network, "latest"}, err)
	}
	wei, ok := parseBigIntString(head.BaseFeePerGas)
	if !ok || wei.Sign() == 0 {
		return fallbackBaseFeeGwei, nil
	}
	return weiToGwei(wei), nil
}

// FetchBlockNumber returns the chain head number.
func (c *PoolClient) FetchBlockNumber(ctx context.Context) (uint64, error) {
	var raw string
	if err := c.rpc.CallContext(ctx, &raw, "eth_blockNumber"); err != nil {
		return 0, classifyRPCError("eth_blockNumber", []string{c.network}, err)
	}
	num, err := parseHexUint(raw)
	if err != nil {
		return 0, validationError("eth_blockNumber", fmt.Sprintf("block number %q", raw))
	}
	return num, nil
}

// rawBlock is the subset of eth_getBlockByNumber we consume when scanning
// recent blocks with full transaction objects.
type rawBlock struct {
	Number        string           `json:"number"`
	Timestamp     string           `json:"timestamp"`
	BaseFeePerGas string           `json:"baseFeePerGas"`
	Transactions  []RawTransaction `json:"transactions"`
}

// FetchBlock returns one block with full transaction objects.
func (c *PoolClient) FetchBlock(ctx context.Context, number uint64) (*rawBlock, error) {
	var block *rawBlock
	tag := hexutil.EncodeUint64(number)
	if err := c.rpc.CallContext(ctx, &block, "eth_getBlockByNumber", tag, true); err != nil {
		return nil, classifyRPCError("eth_getBlockByNumber", []string{c.network, tag}, err)
	}
	if block == nil {
		return nil, validationError("eth_getBlockByNumber", fmt.Sprintf("block %s not found", tag))
	}
	return block, nil
}

// TraceTransaction runs the node's call tracer over a transaction.
// Best-effort enrichment source; callers must tolerate failure.
func (c *PoolClient) TraceTransaction(ctx context.Context, hash string) (map[string]interface{}, error) {
	var trace map[string]interface{}
	err := c.rpc.CallContext(ctx, &trace, "debug_traceTransaction", hash,
		map[string]string{"tracer": "callTracer"})
	if err != nil {
		return nil, classifyRPCError("debug_traceTransaction", []string{c.network, hash}, err)
	}
	return trace, nil
}

// parseHexUint converts the node's "0x..." quantities to uint64. Empty means
// the field was absent and counts as zero.
func parseHexUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// parseBigIntString parses a hex or decimal quantity of arbitrary width.
func parseBigIntString(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return big.NewInt(0), true
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

func weiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	gwei := new(big.Float).Quo(new(big.Float).SetInt(wei), new(big.Float).SetInt64(1e9))
	result, _ := gwei.Float64()
	return result
}

// hexWeiToGwei converts a raw gas price string to gwei; malformed input
// yields zero.
func hexWeiToGwei(s string) float64 {
	wei, ok := parseBigIntString(s)
	if !ok {
		return 0
	}
	return weiToGwei(wei)
}

// hexWeiToEth converts a raw value string to ETH; malformed input yields zero.
func hexWeiToEth(s string) float64 {
	wei, ok := parseBigIntString(s)
	if !ok {
		return 0
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), new(big.Float).SetInt64(1e18))
	result, _ := eth.Float64()
	return result
}
