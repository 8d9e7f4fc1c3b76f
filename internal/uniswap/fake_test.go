package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"lpbreakdown/internal/chain"
)

// fakeReader answers contract reads from a table keyed by function name,
// falling back to handle for anything dynamic.
type fakeReader struct {
	mu      sync.Mutex
	results map[string][]interface{}
	handle  func(call chain.Call) ([]interface{}, error)
	calls   []chain.Call
}

func newFakeReader() *fakeReader {
	return &fakeReader{results: make(map[string][]interface{})}
}

func (f *fakeReader) set(function string, values ...interface{}) {
	f.results[function] = values
}

func (f *fakeReader) ReadContractState(_ context.Context, call chain.Call) ([]interface{}, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.handle != nil {
		if values, err := f.handle(call); values != nil || err != nil {
			return values, err
		}
	}
	values, ok := f.results[call.Function]
	if !ok {
		return nil, fmt.Errorf("execution reverted: %s", call.Function)
	}
	return values, nil
}

func (f *fakeReader) count(function string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Function == function {
			n++
		}
	}
	return n
}

var (
	wbtc = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

// tokenHandler serves token0/token1 and the ERC20 metadata of two tokens.
func tokenHandler(call chain.Call, decimals0, decimals1 uint8) ([]interface{}, error) {
	switch call.Function {
	case "token0":
		return []interface{}{wbtc}, nil
	case "token1":
		return []interface{}{weth}, nil
	case "decimals":
		if call.Interface == wbtc {
			return []interface{}{decimals0}, nil
		}
		return []interface{}{decimals1}, nil
	case "symbol":
		if call.Interface == wbtc {
			return []interface{}{"WBTC"}, nil
		}
		return []interface{}{"WETH"}, nil
	}
	return nil, nil
}

func bigFromString(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad integer " + s)
	}
	return v
}

// headReader is a fakeReader that also reports a chain head.
type headReader struct {
	*fakeReader
	head    uint64
	headErr error
	heads   int
}

func (h *headReader) LatestBlock(context.Context, string) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.heads++
	return h.head, h.headErr
}
