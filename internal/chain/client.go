package chain

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/unweightedai/kol-trust-service/internal/config"
	"github.com/unweightedai/kol-trust-service/internal/errs"
	"github.com/unweightedai/kol-trust-service/internal/metrics"
)

// TokenData is the on-chain metrics tuple for one token.
type TokenData struct {
	Address     string          `json:"address"`
	Price       decimal.Decimal `json:"price"`
	Liquidity   decimal.Decimal `json:"liquidity"`
	HolderCount int             `json:"holder_count"`
	AgeDays     int             `json:"age_days"`
	Suspicious  bool            `json:"suspicious"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// Client fetches token metrics from the blockchain
type Client interface {
	GetTokenData(ctx context.Context, address string) (*TokenData, error)
}

// SolanaClient implements Client against a Solana RPC node and the
// Jupiter price API.
type SolanaClient struct {
	http       *resty.Client
	rpcURL     string
	jupiterURL string
}

// NewSolanaClient creates a chain client with retrying HTTP transport
func NewSolanaClient(cfg config.SolanaConfig) *SolanaClient {
	return &SolanaClient{
		http: resty.New().
			SetRetryCount(3).
			SetTimeout(15 * time.Second),
		rpcURL:     cfg.RPCURL,
		jupiterURL: cfg.JupiterURL,
	}
}

type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type accountInfoResponse struct {
	Result struct {
		Value *struct {
			Lamports uint64 `json:"lamports"`
		} `json:"value"`
	} `json:"result"`
}

type signaturesResponse struct {
	Result []struct {
		Signature string `json:"signature"`
		BlockTime int64  `json:"blockTime"`
	} `json:"result"`
}

type jupiterPriceResponse struct {
	Data map[string]struct {
		Price        float64 `json:"price"`
		LiquidityUSD float64 `json:"liquidityUsd"`
	} `json:"data"`
}

type tokenAccountsResponse struct {
	Result struct {
		Value []struct {
			Address string `json:"address"`
		} `json:"value"`
	} `json:"result"`
}

// GetTokenData assembles the metrics tuple for a token. A malformed
// address is rejected up front and an absent account surfaces as a
// NotFoundError so callers can abstain from scoring entirely. Failures
// on individual metrics degrade to the worst case for that factor
// (zero liquidity, zero holders, suspicious) instead of aborting; the
// additive heuristic is biased toward flagging risk, not suppressing it.
func (c *SolanaClient) GetTokenData(ctx context.Context, address string) (*TokenData, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	exists, err := c.accountExists(ctx, address)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &errs.NotFoundError{Kind: "token", ID: address}
	}

	ageDays, err := c.tokenAgeDays(ctx, address)
	if err != nil {
		log.Printf("Token age lookup failed for %s, treating as brand new: %v", address, err)
		metrics.ExternalServiceErrors.WithLabelValues("solana").Inc()
		ageDays = 0
	}

	price, liquidity, err := c.priceAndLiquidity(ctx, address)
	if err != nil {
		log.Printf("Price lookup failed for %s, treating liquidity as zero: %v", address, err)
		metrics.ExternalServiceErrors.WithLabelValues("jupiter").Inc()
		price, liquidity = decimal.Zero, decimal.Zero
	}

	holderCount, err := c.holderCount(ctx, address)
	if err != nil {
		log.Printf("Holder lookup failed for %s, treating as fully concentrated: %v", address, err)
		metrics.ExternalServiceErrors.WithLabelValues("solana").Inc()
		holderCount = 0
	}

	suspicious, err := c.checkSuspiciousActivity(ctx, address)
	if err != nil {
		log.Printf("Activity lookup failed for %s, treating as suspicious: %v", address, err)
		metrics.ExternalServiceErrors.WithLabelValues("solana").Inc()
		suspicious = true
	}

	return &TokenData{
		Address:     address,
		Price:       price,
		Liquidity:   liquidity,
		HolderCount: holderCount,
		AgeDays:     ageDays,
		Suspicious:  suspicious,
		FetchedAt:   time.Now(),
	}, nil
}

func (c *SolanaClient) accountExists(ctx context.Context, address string) (bool, error) {
	var result accountInfoResponse
	err := c.rpc(ctx, "getAccountInfo", []interface{}{address, map[string]string{"encoding": "base64"}}, &result)
	if err != nil {
		return false, err
	}
	return result.Result.Value != nil, nil
}

func (c *SolanaClient) tokenAgeDays(ctx context.Context, address string) (int, error) {
	var result signaturesResponse
	err := c.rpc(ctx, "getSignaturesForAddress", []interface{}{address, map[string]int{"limit": 1}}, &result)
	if err != nil {
		return 0, err
	}
	if len(result.Result) == 0 || result.Result[0].BlockTime == 0 {
		return 0, nil
	}
	created := time.Unix(result.Result[0].BlockTime, 0)
	return int(time.Since(created).Hours() / 24), nil
}

func (c *SolanaClient) priceAndLiquidity(ctx context.Context, address string) (decimal.Decimal, decimal.Decimal, error) {
	var result jupiterPriceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("ids", address).
		SetResult(&result).
		Get(c.jupiterURL + "/price")
	if err != nil {
		return decimal.Zero, decimal.Zero, &errs.ExternalServiceError{Service: "jupiter", Err: err}
	}
	if resp.IsError() {
		return decimal.Zero, decimal.Zero, &errs.ExternalServiceError{
			Service: "jupiter",
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode()),
		}
	}

	data, ok := result.Data[address]
	if !ok {
		return decimal.Zero, decimal.Zero, nil
	}
	return decimal.NewFromFloat(data.Price), decimal.NewFromFloat(data.LiquidityUSD), nil
}

func (c *SolanaClient) holderCount(ctx context.Context, address string) (int, error) {
	var result tokenAccountsResponse
	err := c.rpc(ctx, "getTokenLargestAccounts", []interface{}{address}, &result)
	if err != nil {
		return 0, err
	}
	return len(result.Result.Value), nil
}

// checkSuspiciousActivity flags tokens with no transaction history.
// Pattern heuristics on the recent transactions (dump detection,
// wallet clustering) live upstream of this client.
func (c *SolanaClient) checkSuspiciousActivity(ctx context.Context, address string) (bool, error) {
	var result signaturesResponse
	err := c.rpc(ctx, "getSignaturesForAddress", []interface{}{address, map[string]int{"limit": 100}}, &result)
	if err != nil {
		return false, err
	}
	return len(result.Result) == 0, nil
}

func (c *SolanaClient) rpc(ctx context.Context, method string, params []interface{}, result interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rpcRequest{Jsonrpc: "2.0", ID: 1, Method: method, Params: params}).
		SetResult(result).
		Post(c.rpcURL)
	if err != nil {
		return &errs.ExternalServiceError{Service: "solana rpc", Err: err}
	}
	if resp.IsError() {
		return &errs.ExternalServiceError{
			Service: "solana rpc",
			Err:     fmt.Errorf("%s returned status %d", method, resp.StatusCode()),
		}
	}
	return nil
}
