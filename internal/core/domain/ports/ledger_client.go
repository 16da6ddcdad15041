package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

type LedgerResult struct {
	Success    bool
	Error      string
	NewBalance decimal.Decimal
}

// LedgerClient wraps the account-owning service. A returned error means the
// call could not be completed (transport failure, retries exhausted, circuit
// open); a nil error with Success=false means the ledger declined the
// operation (e.g. insufficient funds).
//
// Known risk: the ledger API accepts no idempotency token, so a retry after
// an ambiguous timeout could double-apply a debit or credit. The client only
// retries requests that provably never reached the server, but responses lost
// in transit remain ambiguous.
type LedgerClient interface {
	Debit(ctx context.Context, accountID string, amount decimal.Decimal, reason string) (*LedgerResult, error)
	Credit(ctx context.Context, accountID string, amount decimal.Decimal, reason string) (*LedgerResult, error)
}
