package uniswap

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"lpbreakdown/internal/chain"
	"lpbreakdown/internal/model"
)

// Options configures a Valuer.
type Options struct {
	Logger *zap.Logger
	// ScanConcurrency bounds concurrent bitmap word fetches. Zero or less
	// fetches sequentially.
	ScanConcurrency int
}

// Valuer values LP positions from on-chain state.
type Valuer struct {
	reader      chain.StateReader
	chains      chain.ChainResolver
	logger      *zap.Logger
	concurrency int

	mu     sync.RWMutex
	tokens map[tokenKey]model.TokenInfo
}

type tokenKey struct {
	chain string
	pool  string
	index int
}

// NewValuer creates a Valuer reading through reader. chains is only needed
// to discover tick lens addresses.
func NewValuer(reader chain.StateReader, chains chain.ChainResolver, opts Options) *Valuer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := opts.ScanConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Valuer{
		reader:      reader,
		chains:      chains,
		logger:      logger,
		concurrency: concurrency,
		tokens:      make(map[tokenKey]model.TokenInfo),
	}
}

func (v *Valuer) read(ctx context.Context, call chain.Call, minValues int) ([]interface{}, error) {
	values, err := v.reader.ReadContractState(ctx, call)
	if err != nil {
		return nil, &ExternalCallError{Function: call.Function, Address: call.Interface.Hex(), Err: err}
	}
	if len(values) < minValues {
		return nil, &ExternalCallError{
			Function: call.Function,
			Address:  call.Interface.Hex(),
			Err:      errors.New("unexpected number of outputs"),
		}
	}
	return values, nil
}

// pinBlock returns the block every read of one valuation should use. A
// caller-supplied block is kept; "latest" is resolved once when the reader
// can report the chain head, so all reads see the same state.
func (v *Valuer) pinBlock(ctx context.Context, chainName string, block *uint64) (*uint64, error) {
	if block != nil {
		return block, nil
	}
	heads, ok := v.reader.(chain.HeadReader)
	if !ok {
		return nil, nil
	}
	head, err := heads.LatestBlock(ctx, chainName)
	if err != nil {
		return nil, &ExternalCallError{Function: "blockNumber", Address: chainName, Err: err}
	}
	v.logger.Debug("pinned latest block", zap.String("chain", chainName), zap.Uint64("block", head))
	return &head, nil
}

func callErr(call chain.Call, err error) error {
	return &ExternalCallError{Function: call.Function, Address: call.Interface.Hex(), Err: err}
}

func blockField(block *uint64) zap.Field {
	if block == nil {
		return zap.String("block", "latest")
	}
	return zap.Uint64("block", *block)
}
