package uniswap

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"lpbreakdown/internal/chain"
	"lpbreakdown/internal/dex"
	"lpbreakdown/internal/model"
)

// PoolToken returns token metadata for token0 or token1 of a pool. poolABI
// may be nil to resolve the pool ABI from the explorer. Results are cached
// per chain, pool and index.
func (v *Valuer) PoolToken(ctx context.Context, chainName string, pool common.Address, index int, poolABI *abi.ABI) (model.TokenInfo, error) {
	if index != 0 && index != 1 {
		return model.TokenInfo{}, &InvalidTokenIndexError{Index: index}
	}

	key := tokenKey{chain: chainName, pool: strings.ToLower(pool.Hex()), index: index}
	v.mu.RLock()
	info, ok := v.tokens[key]
	v.mu.RUnlock()
	if ok {
		return info, nil
	}

	v.logger.Debug("fetching pool token",
		zap.String("chain", chainName),
		zap.String("pool", pool.Hex()),
		zap.Int("index", index),
	)

	call := chain.Call{
		Chain:          chainName,
		Interface:      pool,
		Implementation: pool,
		Function:       fmt.Sprintf("token%d", index),
		ABI:            poolABI,
	}
	values, err := v.read(ctx, call, 1)
	if err != nil {
		return model.TokenInfo{}, err
	}
	token, err := dex.AsAddress(values[0])
	if err != nil {
		return model.TokenInfo{}, callErr(call, err)
	}

	decimals, err := v.tokenDecimals(ctx, chainName, token)
	if err != nil {
		return model.TokenInfo{}, err
	}
	symbol, err := v.tokenSymbol(ctx, chainName, token)
	if err != nil {
		return model.TokenInfo{}, err
	}

	info = model.TokenInfo{
		Index:    index,
		Address:  token.Hex(),
		Symbol:   symbol,
		Decimals: decimals,
	}

	v.mu.Lock()
	v.tokens[key] = info
	v.mu.Unlock()

	v.logger.Debug("pool token", zap.Any("token", info))
	return info, nil
}

func (v *Valuer) tokenDecimals(ctx context.Context, chainName string, token common.Address) (uint8, error) {
	erc20, err := dex.ERC20ABI()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}
	call := chain.Call{
		Chain:          chainName,
		Interface:      token,
		Implementation: token,
		Function:       "decimals",
		ABI:            &erc20,
	}
	values, err := v.read(ctx, call, 1)
	if err != nil {
		return 0, err
	}
	decimals, err := dex.AsUint8(values[0])
	if err != nil {
		return 0, callErr(call, err)
	}
	return decimals, nil
}

func (v *Valuer) tokenSymbol(ctx context.Context, chainName string, token common.Address) (string, error) {
	erc20, err := dex.ERC20ABI()
	if err != nil {
		return "", fmt.Errorf("parse erc20 abi: %w", err)
	}
	call := chain.Call{
		Chain:          chainName,
		Interface:      token,
		Implementation: token,
		Function:       "symbol",
		ABI:            &erc20,
	}
	values, err := v.read(ctx, call, 1)
	if err == nil {
		if symbol, ok := values[0].(string); ok {
			return symbol, nil
		}
	}

	b32, perr := dex.ERC20Bytes32ABI()
	if perr != nil {
		return "", fmt.Errorf("parse erc20 bytes32 abi: %w", perr)
	}
	call.ABI = &b32
	values, err = v.read(ctx, call, 1)
	if err != nil {
		return "", err
	}
	symbol, ok := dex.Bytes32ToString(values[0])
	if !ok {
		return "", callErr(call, fmt.Errorf("unsupported symbol type %T", values[0]))
	}
	return symbol, nil
}
