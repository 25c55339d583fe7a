package audithook

// Action constants for audit events.
const (
	// Credit actions
	ActionStoragePurchased = "storage.purchased"

	// Payment list actions
	ActionListSubmitted = "list.submitted"
	ActionListApproved  = "list.approved"
	ActionListRejected  = "list.rejected"
	ActionListSettled   = "list.settled"

	// Settlement actions
	ActionBatchProcessed  = "batch.processed"
	ActionDispatchDropped = "dispatch.dropped"
)

// Resource constants for audit events.
const (
	ResourceCredit   = "credit"
	ResourceList     = "payment_list"
	ResourceBatch    = "batch"
	ResourceDispatch = "dispatch"
)

// Category constants for audit events.
const (
	CategoryBilling    = "billing"
	CategoryGovernance = "governance"
	CategorySettlement = "settlement"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
