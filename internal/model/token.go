package model

// TokenInfo captures the pool token metadata needed for valuation.
type TokenInfo struct {
	Index    int    `json:"index" yaml:"index"`
	Address  string `json:"address" yaml:"address"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}
