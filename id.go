package bulkpay

import "github.com/xraph/bulkpay/id"

// ID is the identifier type of purchase receipts, batches and dispatches.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
