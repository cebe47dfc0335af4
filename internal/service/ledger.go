package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// LedgerStore is the account ledger: the only way balances change.
//
// ApplyDelta is an exclusive, atomic read-modify-write of one account's
// balance. A debit fails with model.ErrInsufficientFunds if it would drive
// the balance negative; the check and the write are serialized per account,
// so concurrent debits can never overdraw together.
//
// Settle applies a debit and a credit (either side optional) as one atomic
// unit: a failed credit rolls the debit back. Returns model.ErrNotFound if
// a referenced account does not exist.
type LedgerStore interface {
	ApplyDelta(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, dir Direction) (decimal.Decimal, error)
	Settle(ctx context.Context, from, to *uuid.UUID, amount decimal.Decimal) error
}
