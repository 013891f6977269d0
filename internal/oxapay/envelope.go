package oxapay

import (
	"bytes"
	"strconv"

	"github.com/shopspring/decimal"
)

// envelope decodes every response shape the gateway has been seen to
// return: payload fields either flat at the top level or nested under
// "result". pick() resolves which variant actually arrived.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`

	payload
	Result *payload `json:"result"`
}

type payload struct {
	InvoiceID  flexString          `json:"invoice_id"`
	TrackID    flexString          `json:"track_id"`
	OrderID    flexString          `json:"order_id"`
	TransID    flexString          `json:"trans_id"`
	PayAddress string              `json:"pay_address"`
	Address    string              `json:"address"`
	PayAmount  decimal.NullDecimal `json:"pay_amount"`
	Amount     decimal.NullDecimal `json:"amount"`
	PaymentURL string              `json:"payment_url"`
	Link       string              `json:"link"`
	ExpireTime int64               `json:"expire_time"`
	Status     string              `json:"status"`
	TxID       string              `json:"txid"`
}

func (e *envelope) pick() *payload {
	if e.Result != nil {
		return e.Result
	}
	return &e.payload
}

func (p *payload) externalRef() string {
	if p.InvoiceID != "" {
		return string(p.InvoiceID)
	}
	return string(p.TrackID)
}

func (p *payload) payoutRef() string {
	if p.TransID != "" {
		return string(p.TransID)
	}
	return string(p.OrderID)
}

func (p *payload) payAddress() string {
	if p.PayAddress != "" {
		return p.PayAddress
	}
	return p.Address
}

func (p *payload) payAmount() decimal.Decimal {
	if p.PayAmount.Valid {
		return p.PayAmount.Decimal
	}
	return p.Amount.Decimal
}

func (p *payload) paymentURL() string {
	if p.PaymentURL != "" {
		return p.PaymentURL
	}
	return p.Link
}

// status falls back to the envelope-level field; older integrations put
// it at the top level next to "code".
func (p *payload) status(e *envelope) string {
	if p.Status != "" {
		return p.Status
	}
	return e.Status
}

// flexString accepts both string and numeric JSON values. The gateway
// has returned invoice identifiers as either.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) >= 2 && b[0] == '"' {
		unquoted, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*s = flexString(unquoted)
		return nil
	}
	*s = flexString(b)
	return nil
}
