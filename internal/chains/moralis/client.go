package moralis

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math/big"
	"net/http"
	"net/url"
	"sync"
	"time"

	"moff.io/wallet-modal/internal/chains"
	"moff.io/wallet-modal/pkg/errors"
)

type Client interface {
	// GetNativeBalance 获取给定地址在链上的原生代币余额
	GetNativeBalance(ctx context.Context, req *GetNativeBalanceRequest) (*GetNativeBalanceResponse, error)
	// Source 绑定链id，返回余额数据源
	Source(chainID uint64) chains.BalanceSource
}

type client struct {
	apiBaseURL string
	apiKey     string

	httpClient *http.Client
}

const (
	defaultTimeout = time.Second * 10
	DefaultBaseURL = "https://deep-index.moralis.io/api/v2"
)

var (
	internalClient *client
	initOnce       sync.Once
)

func Init(apiKey string) {
	if apiKey == "" {
		panic("moralis api key not present")
	}
	initOnce.Do(func() {
		internalClient = newClient(DefaultBaseURL, apiKey)
	})
}

// Initialized reports whether Init has run.
func Initialized() bool {
	return internalClient != nil
}

func NewClient() Client {
	if internalClient == nil {
		panic("moralis init operation not invoked")
	}
	return internalClient
}

// New builds a client against baseURL, mostly for tests.
func New(baseURL, apiKey string) Client {
	return newClient(baseURL, apiKey)
}

func newClient(baseURL, apiKey string) *client {
	return &client{
		apiBaseURL: baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type GetNativeBalanceRequest struct {
	// ChainID 或者 ChainName 二者设置一个即可
	ChainID   uint64
	ChainName string
	Address   string
}

func (in *GetNativeBalanceRequest) GetChain() string {
	if in.ChainName != "" {
		return in.ChainName
	}
	return chains.HexID(in.ChainID)
}

type GetNativeBalanceResponse struct {
	Balance string `json:"balance"`
}

// Wei parses the decimal balance string.
func (r *GetNativeBalanceResponse) Wei() (*big.Int, error) {
	v, ok := new(big.Int).SetString(r.Balance, 10)
	if !ok {
		return nil, errors.Errorf("invalid moralis balance %q", r.Balance)
	}
	return v, nil
}

func (c *client) GetNativeBalance(ctx context.Context, req *GetNativeBalanceRequest) (*GetNativeBalanceResponse, error) {
	val := url.Values{}
	val.Set("chain", req.GetChain())
	path := fmt.Sprintf("/%s/balance?%s", url.PathEscape(req.Address), val.Encode())
	var out GetNativeBalanceResponse
	if err := c.request(ctx, path, http.MethodGet, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) Source(chainID uint64) chains.BalanceSource {
	return chains.BalanceFunc(func(ctx context.Context, address string) (*big.Int, error) {
		resp, err := c.GetNativeBalance(ctx, &GetNativeBalanceRequest{
			ChainID: chainID,
			Address: address,
		})
		if err != nil {
			return nil, err
		}
		return resp.Wei()
	})
}

// request does not report: balance reads are polled and failures are
// reported once by the poller.
func (c *client) request(ctx context.Context, path, method string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "create new http request")
	}

	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}

	defer resp.Body.Close()

	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.WithStack(err)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("request moralis:%v", string(b))
	}

	return errors.WithStack(json.Unmarshal(b, out))
}

// Fallback returns the moralis balance source for chainID, nil when Init
// has not run.
func Fallback(chainID uint64) chains.BalanceSource {
	if !Initialized() {
		return nil
	}
	return NewClient().Source(chainID)
}
