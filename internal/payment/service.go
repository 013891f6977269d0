package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cryptopay/internal/logger"
	"cryptopay/internal/metrics"
	"cryptopay/internal/oxapay"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("amount must be at least the configured minimum")
	ErrUnsupportedAsset  = errors.New("unsupported cryptocurrency")
	ErrInvalidAddress    = errors.New("invalid wallet address for asset")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// Gateway is the outbound payment gateway surface the reconcilers
// depend on. *oxapay.Client satisfies it.
type Gateway interface {
	CreateInvoice(ctx context.Context, amount decimal.Decimal, asset, orderID string) (*oxapay.Invoice, error)
	GetInvoiceStatus(ctx context.Context, invoiceID string) (string, error)
	CreatePayout(ctx context.Context, amount decimal.Decimal, asset, address string) (*oxapay.Payout, error)
	GetPayoutStatus(ctx context.Context, payoutRef string) (string, error)
}

// DepositReceipt is what the caller needs to actually pay the invoice.
type DepositReceipt struct {
	TransactionID string              `json:"transaction_id"`
	InvoiceID     string              `json:"invoice_id"`
	PayAddress    string              `json:"payment_address"`
	PayAmount     decimal.NullDecimal `json:"amount_crypto"`
	Asset         string              `json:"currency"`
	PaymentURL    string              `json:"payment_url,omitempty"`
	ExpireTime    int64               `json:"expire_time,omitempty"`
	Status        Status              `json:"status"`
}

type WithdrawalReceipt struct {
	TransactionID string          `json:"transaction_id"`
	PayoutRef     string          `json:"payout_id"`
	Amount        decimal.Decimal `json:"amount"`
	Asset         string          `json:"crypto"`
	Address       string          `json:"address"`
	Status        Status          `json:"status"`
}

// Event is the normalized form of a gateway webhook delivery.
type Event struct {
	Status string
	Ref    string
	Amount decimal.NullDecimal
}

type Service interface {
	CreateDeposit(ctx context.Context, userID string, amount decimal.Decimal, asset string) (*DepositReceipt, error)
	CheckDepositStatus(ctx context.Context, userID, invoiceID string) (*Transaction, error)
	CreateWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, asset, address string) (*WithdrawalReceipt, error)
	CheckWithdrawalStatus(ctx context.Context, userID, transactionID string) (*Transaction, error)
	HandleGatewayEvent(ctx context.Context, ev Event) error
	ListTransactions(ctx context.Context, userID string, kind Kind, limit, offset int) ([]Transaction, error)
}

type service struct {
	store   Store
	gateway Gateway
}

func NewService(store Store, gateway Gateway) Service {
	return &service{store: store, gateway: gateway}
}

func (s *service) CreateDeposit(ctx context.Context, userID string, amount decimal.Decimal, asset string) (*DepositReceipt, error) {
	asset = strings.ToUpper(asset)
	if !SupportedAsset(asset) {
		return nil, ErrUnsupportedAsset
	}
	if amount.LessThan(MinAmount) {
		return nil, ErrInvalidAmount
	}

	orderID := uuid.NewString()
	invoice, err := s.gateway.CreateInvoice(ctx, amount, asset, orderID)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	tx := &Transaction{
		ID:          orderID,
		UserID:      userID,
		Kind:        KindDeposit,
		Asset:       asset,
		FiatAmount:  amount,
		Address:     invoice.PayAddress,
		ExternalRef: invoice.ExternalRef,
		Status:      StatusPending,
	}
	if !invoice.PayAmount.IsZero() {
		tx.CryptoAmount = decimal.NewNullDecimal(invoice.PayAmount)
	}

	if err := s.store.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("persist deposit: %w", err)
	}

	metrics.RecordDeposit()
	logger.Infof("deposit %s created for user %s: %s USD in %s", tx.ID, userID, amount.StringFixed(2), asset)

	return &DepositReceipt{
		TransactionID: tx.ID,
		InvoiceID:     invoice.ExternalRef,
		PayAddress:    invoice.PayAddress,
		PayAmount:     tx.CryptoAmount,
		Asset:         asset,
		PaymentURL:    invoice.PaymentURL,
		ExpireTime:    invoice.ExpireTime,
		Status:        StatusPending,
	}, nil
}

func (s *service) CheckDepositStatus(ctx context.Context, userID, invoiceID string) (*Transaction, error) {
	tx, err := s.store.GetByExternalRefForUser(ctx, invoiceID, userID)
	if err != nil {
		return nil, err
	}
	if tx.Kind != KindDeposit {
		return nil, ErrNotFound
	}
	if tx.Status.Terminal() {
		return tx, nil
	}

	observed, err := s.gateway.GetInvoiceStatus(ctx, tx.ExternalRef)
	if err != nil {
		// Availability over freshness: a gateway outage must not break
		// the poll endpoint, the stored state is the answer until the
		// gateway comes back.
		logger.Warnf("invoice status check failed for %s: %v", tx.ExternalRef, err)
		return tx, nil
	}

	return s.reconcile(ctx, tx, observed, decimal.NullDecimal{})
}

func (s *service) CreateWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, asset, address string) (*WithdrawalReceipt, error) {
	asset = strings.ToUpper(asset)
	if !SupportedAsset(asset) {
		return nil, ErrUnsupportedAsset
	}
	if amount.LessThan(MinAmount) {
		return nil, ErrInvalidAmount
	}
	if !ValidAddress(asset, address) {
		return nil, ErrInvalidAddress
	}

	// Debit first. The conditional debit is also the concurrency guard:
	// overlapping withdrawals cannot jointly exceed the balance because
	// each one must win its own balance check atomically.
	held, err := s.store.HoldFunds(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	if !held {
		return nil, ErrInsufficientFunds
	}
	metrics.RecordBalanceAdjustment("debit")

	payout, err := s.gateway.CreatePayout(ctx, amount, asset, address)
	if err != nil {
		// Unknown or failed outcome: never leave the debit stranded.
		if refundErr := s.store.ReleaseFunds(ctx, userID, amount); refundErr != nil {
			logger.Errorf("refund after failed payout for user %s: %v", userID, refundErr)
		} else {
			metrics.RecordBalanceAdjustment("credit")
		}
		metrics.RecordWithdrawal("gateway_error")
		return nil, fmt.Errorf("create payout: %w", err)
	}

	tx := &Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        KindWithdraw,
		Asset:       asset,
		FiatAmount:  amount,
		Address:     address,
		ExternalRef: payout.PayoutRef,
		TxHash:      payout.TxHash,
		Status:      StatusPending,
	}
	if err := s.store.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("persist withdrawal: %w", err)
	}

	metrics.RecordWithdrawal("created")
	logger.Infof("withdrawal %s created for user %s: %s USD in %s to %s", tx.ID, userID, amount.StringFixed(2), asset, address)

	return &WithdrawalReceipt{
		TransactionID: tx.ID,
		PayoutRef:     payout.PayoutRef,
		Amount:        amount,
		Asset:         asset,
		Address:       address,
		Status:        StatusPending,
	}, nil
}

func (s *service) CheckWithdrawalStatus(ctx context.Context, userID, transactionID string) (*Transaction, error) {
	tx, err := s.store.GetByIDForUser(ctx, transactionID, userID)
	if err != nil {
		return nil, err
	}
	if tx.Kind != KindWithdraw {
		return nil, ErrNotFound
	}
	if tx.Status.Terminal() || tx.ExternalRef == "" {
		return tx, nil
	}

	observed, err := s.gateway.GetPayoutStatus(ctx, tx.ExternalRef)
	if err != nil {
		logger.Warnf("payout status check failed for %s: %v", tx.ExternalRef, err)
		return tx, nil
	}

	return s.reconcile(ctx, tx, observed, decimal.NullDecimal{})
}

// HandleGatewayEvent is the webhook entry point. A delivery for an
// unknown reference is not an error: acknowledging it is the only way to
// stop the gateway from redelivering forever, and a webhook alone never
// creates a transaction.
func (s *service) HandleGatewayEvent(ctx context.Context, ev Event) error {
	tx, err := s.store.GetByExternalRef(ctx, ev.Ref)
	if errors.Is(err, ErrNotFound) {
		tx, err = s.store.GetByID(ctx, ev.Ref)
	}
	if errors.Is(err, ErrNotFound) {
		logger.Warnf("webhook for unknown transaction ref %q ignored", ev.Ref)
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.reconcile(ctx, tx, ev.Status, ev.Amount)
	return err
}

func (s *service) ListTransactions(ctx context.Context, userID string, kind Kind, limit, offset int) ([]Transaction, error) {
	return s.store.List(ctx, userID, kind, limit, offset)
}

// reconcile is the single entry point both triggers (webhook delivery
// and status poll) funnel into. Idempotency rests on two guards: the
// terminal short-circuit here, and the status precondition inside
// Store.Transition for callers racing past the first check.
func (s *service) reconcile(ctx context.Context, tx *Transaction, observed string, reportedAmount decimal.NullDecimal) (*Transaction, error) {
	if tx.Status.Terminal() {
		return tx, nil
	}

	next := NextStatus(tx.Kind, tx.Status, observed)
	if next == tx.Status {
		return tx, nil
	}

	m := Mutation{To: next}

	switch tx.Kind {
	case KindDeposit:
		if next == StatusPaid {
			// The balance is always credited with the originally
			// invoiced fiat amount. A webhook-reported amount only
			// records what actually arrived on chain.
			m.BalanceDelta = tx.FiatAmount
			m.CryptoAmount = reportedAmount
		}
	case KindWithdraw:
		if next == StatusRejected {
			// Refund the hold taken at creation. Completion carries no
			// delta: the debit already happened.
			m.BalanceDelta = tx.FiatAmount
		}
	}

	applied, err := s.store.Transition(ctx, tx, tx.Status, m)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Another webhook delivery or poll already moved the record.
		metrics.RecordReconciliation(string(tx.Kind), "already_processed")
		return s.store.GetByID(ctx, tx.ID)
	}

	metrics.RecordReconciliation(string(tx.Kind), string(next))
	if !m.BalanceDelta.IsZero() {
		metrics.RecordBalanceAdjustment("credit")
		logger.Infof("balance of user %s adjusted by %s USD (transaction %s -> %s)",
			tx.UserID, m.BalanceDelta.StringFixed(2), tx.ID, next)
	}

	return s.store.GetByID(ctx, tx.ID)
}
