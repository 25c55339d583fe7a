package credit

import "context"

// Store persists credit balances. Implementations must apply Add and Debit
// atomically per account; Debit must leave the balance unchanged when it
// would go negative.
type Store interface {
	GetCredits(ctx context.Context, account string) (uint64, error)
	AddCredits(ctx context.Context, account string, n uint64) (uint64, error)
	DebitCredits(ctx context.Context, account string, n uint64) (uint64, error)
}
