package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"lpbreakdown/internal/config"
)

// Call describes one read-only contract function invocation.
//
// Interface is the address the call is sent to. Implementation is the
// address whose ABI describes it, which differs from Interface for proxies.
// When ABI is nil the reader resolves it from the chain's block explorer.
// A nil Block reads the latest state.
type Call struct {
	Chain          string
	Interface      common.Address
	Implementation common.Address
	Function       string
	Args           []interface{}
	Block          *uint64
	ABI            *abi.ABI
}

// StateReader executes read-only contract calls and returns the decoded
// outputs in ABI order.
type StateReader interface {
	ReadContractState(ctx context.Context, call Call) ([]interface{}, error)
}

// HeadReader reports the latest block of a chain. Readers that implement it
// let callers pin "latest" to one block for a multi-call snapshot.
type HeadReader interface {
	LatestBlock(ctx context.Context, chain string) (uint64, error)
}

// ABIResolver looks up a contract ABI by address.
type ABIResolver interface {
	ContractABI(ctx context.Context, chain string, address common.Address) (abi.ABI, error)
}

// ChainResolver returns the resources configured for a chain.
type ChainResolver interface {
	Resolve(name string) (config.ChainResources, error)
}
