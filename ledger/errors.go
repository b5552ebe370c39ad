package ledger

import "errors"

// ErrNotFound covers references to a nonexistent trip or expense.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned for callers who are not members of the trip.
var ErrForbidden = errors.New("forbidden")

// Reason is the machine-readable sub-reason of a ValidationError. The
// presentation layer shows it verbatim.
type Reason string

const (
	ReasonInvalidAmount           Reason = "invalid amount"
	ReasonPayerNotMember          Reason = "payer not a trip member"
	ReasonSplitNotSubsetOfMembers Reason = "split not subset of trip members"
	ReasonEmptySplit              Reason = "empty split"
	ReasonUnknownCategory         Reason = "unknown category"
	ReasonDuplicateSplitMember    Reason = "duplicate split member"
	ReasonEmptyDescription        Reason = "empty description"
	ReasonUnknownCurrency         Reason = "unknown currency"
)

// ValidationError reports structurally invalid expense input. A failed
// validation never partially mutates the ledger.
type ValidationError struct {
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Detail
}

// NewValidationError builds a ValidationError with an optional detail string.
func NewValidationError(reason Reason, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Detail: detail}
}

// AsValidationError unwraps err into a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
