package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no further transition can leave the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusPaid, StatusCompleted, StatusExpired, StatusFailed, StatusRejected:
		return true
	}
	return false
}

// Transaction is the ledger entry for a single deposit or withdrawal.
// Status is the only field that drives balance effects; everything else
// is fixed at creation apart from crypto_amount, which the gateway may
// report later.
type Transaction struct {
	ID           string              `db:"id" json:"id"`
	UserID       string              `db:"user_id" json:"user_id"`
	Kind         Kind                `db:"kind" json:"kind"`
	Asset        string              `db:"asset" json:"asset"`
	FiatAmount   decimal.Decimal     `db:"fiat_amount" json:"fiat_amount"`
	CryptoAmount decimal.NullDecimal `db:"crypto_amount" json:"crypto_amount"`
	Address      string              `db:"address" json:"address"`
	ExternalRef  string              `db:"external_ref" json:"external_ref"`
	TxHash       string              `db:"tx_hash" json:"tx_hash,omitempty"`
	Status       Status              `db:"status" json:"status"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}

// MinAmount is the minimum deposit and withdrawal, in USD.
var MinAmount = decimal.NewFromFloat(0.5)

var supportedAssets = map[string]bool{
	"TRX":  true,
	"USDT": true,
	"BTC":  true,
	"ETH":  true,
	"BNB":  true,
}

func SupportedAsset(asset string) bool {
	return supportedAssets[strings.ToUpper(asset)]
}

// ValidAddress applies the per-asset wallet address format rule.
func ValidAddress(asset, addr string) bool {
	switch strings.ToUpper(asset) {
	case "TRX", "USDT": // trc20
		return strings.HasPrefix(addr, "T") && len(addr) == 34
	case "BTC":
		hasPrefix := strings.HasPrefix(addr, "1") ||
			strings.HasPrefix(addr, "3") ||
			strings.HasPrefix(addr, "bc1")
		return hasPrefix && len(addr) >= 26 && len(addr) <= 62
	case "ETH", "BNB":
		return strings.HasPrefix(addr, "0x") && len(addr) == 42
	}
	return false
}
