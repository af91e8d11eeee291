package engine

import "context"

// ClockInInput is what the clock-in policy sees about the user and the store.
type ClockInInput struct {
	UserID      string
	Role        string
	StoreIDs    []string
	StoreID     string
	StoreActive bool
}

// Decision is the outcome of a policy evaluation. Reason is set when Allow is false.
type Decision struct {
	Allow  bool
	Reason string
}

// Denial reasons produced by the built-in policy.
const (
	ReasonStoreInactive = "store_inactive"
	ReasonNotAssigned   = "not_assigned"
)

// Evaluator decides clock-in eligibility using OPA or other engines.
type Evaluator interface {
	EvaluateClockIn(ctx context.Context, in ClockInInput) (Decision, error)
}
