package uniswap

import "fmt"

// EmptyPoolError reports a V2 pair whose LP supply is zero.
type EmptyPoolError struct {
	Chain string
	Pool  string
}

func (e *EmptyPoolError) Error() string {
	if e.Pool == "" {
		return "pool has zero lp supply"
	}
	return fmt.Sprintf("pool %s on %s has zero lp supply", e.Pool, e.Chain)
}

// InvalidTokenIndexError reports a token index other than 0 or 1.
type InvalidTokenIndexError struct {
	Index int
}

func (e *InvalidTokenIndexError) Error() string {
	return fmt.Sprintf("invalid token index %d: must be 0 or 1", e.Index)
}

// MissingTickLensAddressError reports a chain with no tick lens configured.
type MissingTickLensAddressError struct {
	Chain string
}

func (e *MissingTickLensAddressError) Error() string {
	return fmt.Sprintf("missing tick lens address for chain %s", e.Chain)
}

// ExternalCallError wraps a failed contract read.
type ExternalCallError struct {
	Function string
	Address  string
	Err      error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Function, e.Address, e.Err)
}

func (e *ExternalCallError) Unwrap() error { return e.Err }

// PartialScanError reports a bitmap word that could not be fetched. The
// whole scan is abandoned.
type PartialScanError struct {
	Word int64
	Err  error
}

func (e *PartialScanError) Error() string {
	return fmt.Sprintf("scan word %d: %v", e.Word, e.Err)
}

func (e *PartialScanError) Unwrap() error { return e.Err }
