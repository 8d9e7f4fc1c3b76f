package explorer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lpbreakdown/internal/chain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type getABIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Options configures a Client.
type Options struct {
	RPS        float64
	Burst      int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client resolves verified contract ABIs from etherscan-compatible explorers.
type Client struct {
	chains  chain.ChainResolver
	cache   *Cache
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates an explorer client. cache may be nil.
func NewClient(chains chain.ChainResolver, cache *Cache, opts Options) *Client {
	if cache == nil {
		cache, _ = OpenCache("")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		chains:  chains,
		cache:   cache,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// ContractABI returns the parsed ABI of a verified contract.
func (c *Client) ContractABI(ctx context.Context, chainName string, address common.Address) (abi.ABI, error) {
	raw, ok, err := c.cache.Get(chainName, address)
	if err != nil {
		c.logger.Warn("abi cache read failed", zap.String("address", address.Hex()), zap.Error(err))
	}
	if !ok {
		raw, err = c.fetch(ctx, chainName, address)
		if err != nil {
			return abi.ABI{}, err
		}
		if err := c.cache.Put(chainName, address, raw); err != nil {
			c.logger.Warn("abi cache write failed", zap.String("address", address.Hex()), zap.Error(err))
		}
	}

	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi %s: %w", address.Hex(), err)
	}
	return parsed, nil
}

func (c *Client) fetch(ctx context.Context, chainName string, address common.Address) (string, error) {
	res, err := c.chains.Resolve(chainName)
	if err != nil {
		return "", err
	}
	if res.ScannerBaseURL == "" {
		return "", fmt.Errorf("chain %s has no scanner_base_url", chainName)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "getabi")
	q.Set("address", address.Hex())
	if res.ScannerAPIKey != "" {
		q.Set("apikey", res.ScannerAPIKey)
	}
	endpoint := res.ScannerBaseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build getabi request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("getabi %s: %w", address.Hex(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read getabi response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("getabi %s: http %d", address.Hex(), resp.StatusCode)
	}

	var out getABIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode getabi response: %w", err)
	}
	if out.Status != "1" {
		return "", fmt.Errorf("getabi %s: %s: %s", address.Hex(), out.Message, out.Result)
	}

	c.logger.Debug("fetched abi", zap.String("chain", chainName), zap.String("address", address.Hex()))
	return out.Result, nil
}
