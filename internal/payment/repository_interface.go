package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Mutation describes the effect of a guarded status transition. The
// balance delta is applied to the owner atomically with the status flip;
// a zero delta leaves the balance untouched.
type Mutation struct {
	To           Status
	CryptoAmount decimal.NullDecimal
	BalanceDelta decimal.Decimal
}

type Store interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	GetByExternalRef(ctx context.Context, ref string) (*Transaction, error)
	GetByIDForUser(ctx context.Context, id, userID string) (*Transaction, error)
	GetByExternalRefForUser(ctx context.Context, ref, userID string) (*Transaction, error)
	List(ctx context.Context, userID string, kind Kind, limit, offset int) ([]Transaction, error)

	// Transition applies m only if the stored status still equals from.
	// Returns false when another caller won the race; the store is then
	// unchanged by this call.
	Transition(ctx context.Context, tx *Transaction, from Status, m Mutation) (bool, error)

	// HoldFunds debits the user's balance if it covers amount; returns
	// false without side effects otherwise.
	HoldFunds(ctx context.Context, userID string, amount decimal.Decimal) (bool, error)

	// ReleaseFunds re-credits a previously held amount.
	ReleaseFunds(ctx context.Context, userID string, amount decimal.Decimal) error
}
