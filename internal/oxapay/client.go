package oxapay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client wraps the OxaPay v1 HTTP API. API keys travel in headers, never
// in the request body: the merchant key authorizes invoice endpoints, the
// payout key authorizes payout endpoints.
//
// The gateway has shipped the same endpoints with both flat and
// "result"-nested response bodies. All of that parsing lives here; callers
// only ever see the normalized Invoice/Payout structs.

const successCode = 100

var (
	// ErrUnavailable covers network failures, timeouts and 5xx responses.
	// The outcome of the remote operation is unknown in every such case.
	ErrUnavailable = errors.New("oxapay unavailable")

	// ErrRejected means the gateway answered and declined the request.
	ErrRejected = errors.New("oxapay rejected request")

	// ErrBadResponse means the gateway answered success but the body is
	// missing a field the contract requires (e.g. pay address).
	ErrBadResponse = errors.New("invalid oxapay response")
)

type Config struct {
	MerchantKey     string
	PayoutKey       string
	BaseURL         string
	WebhookSecret   string
	CallbackURL     string
	InvoiceLifetime int // seconds
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.oxapay.com"
	}
	if cfg.InvoiceLifetime <= 0 {
		cfg.InvoiceLifetime = 900
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Invoice is the normalized result of a create-invoice call.
type Invoice struct {
	ExternalRef string
	PayAddress  string
	PayAmount   decimal.Decimal
	PaymentURL  string
	ExpireTime  int64
}

// Payout is the normalized result of a create-payout call.
type Payout struct {
	PayoutRef string
	TxHash    string
}

func (c *Client) CreateInvoice(ctx context.Context, amount decimal.Decimal, asset, orderID string) (*Invoice, error) {
	body := map[string]interface{}{
		"amount":       amount.StringFixed(2),
		"currency":     "USD",
		"order_id":     orderID,
		"pay_currency": asset,
		"lifetime":     c.cfg.InvoiceLifetime,
	}
	if c.cfg.CallbackURL != "" {
		body["callback_url"] = c.cfg.CallbackURL
	}

	env, err := c.post(ctx, "/v1/payment/invoice", c.cfg.MerchantKey, "merchant_api_key", body)
	if err != nil {
		return nil, err
	}

	p := env.pick()
	if p.payAddress() == "" {
		return nil, fmt.Errorf("%w: missing pay_address", ErrBadResponse)
	}

	return &Invoice{
		ExternalRef: p.externalRef(),
		PayAddress:  p.payAddress(),
		PayAmount:   p.payAmount(),
		PaymentURL:  p.paymentURL(),
		ExpireTime:  p.ExpireTime,
	}, nil
}

func (c *Client) GetInvoiceStatus(ctx context.Context, invoiceID string) (string, error) {
	env, err := c.post(ctx, "/v1/payment/invoice/status", c.cfg.MerchantKey, "merchant_api_key",
		map[string]interface{}{"invoice_id": invoiceID})
	if err != nil {
		return "", err
	}
	return env.pick().status(env), nil
}

func (c *Client) CreatePayout(ctx context.Context, amount decimal.Decimal, asset, address string) (*Payout, error) {
	body := map[string]interface{}{
		"amount":   amount.StringFixed(2),
		"currency": asset,
		"address":  address,
		"network":  NetworkFor(asset),
	}

	env, err := c.post(ctx, "/v1/payout", c.cfg.PayoutKey, "payout_api_key", body)
	if err != nil {
		return nil, err
	}

	p := env.pick()
	ref := p.payoutRef()
	if ref == "" {
		return nil, fmt.Errorf("%w: missing trans_id", ErrBadResponse)
	}

	return &Payout{PayoutRef: ref, TxHash: p.TxID}, nil
}

func (c *Client) GetPayoutStatus(ctx context.Context, payoutRef string) (string, error) {
	env, err := c.post(ctx, "/v1/payout/status", c.cfg.PayoutKey, "payout_api_key",
		map[string]interface{}{"trans_id": payoutRef})
	if err != nil {
		return "", err
	}
	return env.pick().status(env), nil
}

// NetworkFor returns the payout network OxaPay expects for an asset.
func NetworkFor(asset string) string {
	switch asset {
	case "TRX", "USDT":
		return "trc20"
	case "BTC":
		return "btc"
	case "ETH":
		return "erc20"
	case "BNB":
		return "bep20"
	default:
		return "trc20"
	}
}

func (c *Client) post(ctx context.Context, path, apiKey, keyHeader string, body interface{}) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(keyHeader, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	if resp.StatusCode != http.StatusOK || env.Code != successCode {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("http %d, code %d", resp.StatusCode, env.Code)
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	return &env, nil
}
