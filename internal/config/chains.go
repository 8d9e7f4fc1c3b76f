package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ChainResources describes how to reach a chain and its explorer.
type ChainResources struct {
	Name            string `mapstructure:"name"`
	RPCURL          string `mapstructure:"rpc_url"`
	ScannerBaseURL  string `mapstructure:"scanner_base_url"`
	ScannerAPIKey   string `mapstructure:"scanner_api_key"`
	TickLensAddress string `mapstructure:"tick_lens_address"`
}

// Chains is the chain resource table, looked up by name.
type Chains struct {
	byName map[string]ChainResources
	order  []string
}

// NewChains builds a Chains table, rejecting unnamed and duplicate entries.
func NewChains(resources []ChainResources) (*Chains, error) {
	c := &Chains{byName: make(map[string]ChainResources, len(resources))}
	for _, res := range resources {
		name := strings.TrimSpace(res.Name)
		if name == "" {
			return nil, fmt.Errorf("chain resource without name")
		}
		if _, ok := c.byName[name]; ok {
			return nil, fmt.Errorf("duplicate chain resource: %s", name)
		}
		res.Name = name
		c.byName[name] = res
		c.order = append(c.order, name)
	}
	return c, nil
}

// LoadChains reads a chain resource file (TOML, YAML or JSON) with a
// top-level "chains" list.
func LoadChains(path string) (*Chains, error) {
	if path == "" {
		return nil, fmt.Errorf("chain config path is required")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read chain config: %w", err)
	}

	var resources []ChainResources
	if err := v.UnmarshalKey("chains", &resources); err != nil {
		return nil, fmt.Errorf("decode chain config: %w", err)
	}
	return NewChains(resources)
}

// Resolve returns the resources configured for a chain.
func (c *Chains) Resolve(name string) (ChainResources, error) {
	if c == nil {
		return ChainResources{}, fmt.Errorf("chain not found in config: %s", name)
	}
	res, ok := c.byName[name]
	if !ok {
		return ChainResources{}, fmt.Errorf("chain not found in config: %s", name)
	}
	return res, nil
}

// Names lists configured chains in file order.
func (c *Chains) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}
