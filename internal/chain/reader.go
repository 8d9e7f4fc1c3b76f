package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/zap"
)

type contractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	Close()
}

type dialFunc func(ctx context.Context, rpcURL string) (contractCaller, error)

func dialClient(ctx context.Context, rpcURL string) (contractCaller, error) {
	return NewClient(ctx, rpcURL)
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *zap.Logger
}

// Reader implements StateReader over JSON-RPC, one client per chain.
type Reader struct {
	chains ChainResolver
	abis   ABIResolver
	opts   ReaderOptions
	logger *zap.Logger
	dial   dialFunc

	mu      sync.Mutex
	clients map[string]contractCaller
}

// NewReader creates a Reader. abis may be nil when every call carries its ABI.
func NewReader(chains ChainResolver, abis ABIResolver, opts ReaderOptions) *Reader {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		chains:  chains,
		abis:    abis,
		opts:    opts,
		logger:  logger,
		dial:    dialClient,
		clients: make(map[string]contractCaller),
	}
}

// ReadContractState packs the call, executes it and unpacks the outputs.
func (r *Reader) ReadContractState(ctx context.Context, call Call) ([]interface{}, error) {
	parsed, err := r.resolveABI(ctx, call)
	if err != nil {
		return nil, err
	}

	data, err := parsed.Pack(call.Function, call.Args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", call.Function, err)
	}

	client, err := r.client(ctx, call.Chain)
	if err != nil {
		return nil, err
	}

	var block *big.Int
	if call.Block != nil {
		block = new(big.Int).SetUint64(*call.Block)
	}

	to := call.Interface
	msg := ethereum.CallMsg{To: &to, Data: data}

	var resp []byte
	err = withRetry(ctx, r.opts.MaxRetries, r.opts.RetryBackoff, retryableCallError, func(ctx context.Context) error {
		out, err := client.CallContract(ctx, msg, block)
		if err != nil {
			r.logger.Debug("eth_call failed",
				zap.String("chain", call.Chain),
				zap.String("address", to.Hex()),
				zap.String("function", call.Function),
				zap.Error(err),
			)
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", call.Function, err)
	}

	values, err := parsed.Unpack(call.Function, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", call.Function, err)
	}
	return values, nil
}

// LatestBlock returns the chain head block number.
func (r *Reader) LatestBlock(ctx context.Context, chainName string) (uint64, error) {
	client, err := r.client(ctx, chainName)
	if err != nil {
		return 0, err
	}

	var head uint64
	err = withRetry(ctx, r.opts.MaxRetries, r.opts.RetryBackoff, retryableCallError, func(ctx context.Context) error {
		n, err := client.LatestBlockNumber(ctx)
		if err != nil {
			r.logger.Debug("eth_blockNumber failed", zap.String("chain", chainName), zap.Error(err))
			return err
		}
		head = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("latest block %s: %w", chainName, err)
	}
	return head, nil
}

// Close closes every dialed client.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, client := range r.clients {
		client.Close()
		delete(r.clients, name)
	}
}

func (r *Reader) resolveABI(ctx context.Context, call Call) (abi.ABI, error) {
	if call.ABI != nil {
		return *call.ABI, nil
	}
	if r.abis == nil {
		return abi.ABI{}, fmt.Errorf("no abi for %s and no explorer configured", call.Implementation.Hex())
	}
	parsed, err := r.abis.ContractABI(ctx, call.Chain, call.Implementation)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("resolve abi %s: %w", call.Implementation.Hex(), err)
	}
	return parsed, nil
}

func (r *Reader) client(ctx context.Context, chainName string) (contractCaller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[chainName]; ok {
		return client, nil
	}
	if r.chains == nil {
		return nil, fmt.Errorf("no chain resources configured")
	}
	res, err := r.chains.Resolve(chainName)
	if err != nil {
		return nil, err
	}
	if res.RPCURL == "" {
		return nil, fmt.Errorf("chain %s has no rpc_url", chainName)
	}
	client, err := r.dial(ctx, res.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", chainName, err)
	}
	r.clients[chainName] = client
	r.logger.Info("connected to chain", zap.String("chain", chainName))
	return client, nil
}
