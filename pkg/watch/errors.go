package watch

import "fmt"

// UnknownStatisticError indicates a rule names a statistic outside the
// supported set. It is surfaced both at rule construction and at
// evaluation-time dispatch.
type UnknownStatisticError struct {
	// Statistic is the rejected statistic name.
	Statistic Statistic
}

// Error implements the error interface.
func (e *UnknownStatisticError) Error() string {
	return fmt.Sprintf("unknown watch rule statistic %q", e.Statistic)
}

// WatchRuleNotFoundError indicates a load-by-name found no rule. Any store
// fault during the lookup is collapsed into this single kind, trading
// diagnostic detail for a simple contract.
type WatchRuleNotFoundError struct {
	// Name is the watch rule name that was requested.
	Name string
}

// Error implements the error interface.
func (e *WatchRuleNotFoundError) Error() string {
	return fmt.Sprintf("the watch rule (%s) could not be found", e.Name)
}

// InvalidStateError indicates a state outside the watch state enumeration
// was passed to a state-setting operation.
type InvalidStateError struct {
	// State is the rejected state.
	State State
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid watch state %q", e.State)
}
