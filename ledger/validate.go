package ledger

import (
	"fmt"
	"strings"
)

// Validate checks the record's structural invariants against the trip's
// current member list. It returns a *ValidationError with the first violated
// sub-reason, or nil when the record is acceptable.
func (r *ExpenseRecord) Validate(members []Member) error {
	if strings.TrimSpace(r.Description) == "" {
		return NewValidationError(ReasonEmptyDescription, "description must not be empty")
	}
	if !r.Amount.Currency.Valid() {
		return NewValidationError(ReasonUnknownCurrency, fmt.Sprintf("currency %q is not supported", string(r.Amount.Currency)))
	}
	if !r.Amount.IsPositive() {
		return NewValidationError(ReasonInvalidAmount, "amount must be strictly positive")
	}
	if !r.Category.Valid() {
		return NewValidationError(ReasonUnknownCategory, fmt.Sprintf("category %d is not recognized", int(r.Category)))
	}
	if len(r.SplitBetween) == 0 {
		return NewValidationError(ReasonEmptySplit, "split must include at least one trip member")
	}

	memberSet := make(map[ParticipantID]struct{}, len(members))
	for _, m := range members {
		memberSet[m.ID] = struct{}{}
	}

	if _, ok := memberSet[r.PaidBy]; !ok {
		return NewValidationError(ReasonPayerNotMember, fmt.Sprintf("payer %q is not a member of the trip", string(r.PaidBy)))
	}

	seen := make(map[ParticipantID]struct{}, len(r.SplitBetween))
	for _, p := range r.SplitBetween {
		if _, dup := seen[p]; dup {
			return NewValidationError(ReasonDuplicateSplitMember, fmt.Sprintf("participant %q appears twice in the split", string(p)))
		}
		seen[p] = struct{}{}
		if _, ok := memberSet[p]; !ok {
			return NewValidationError(ReasonSplitNotSubsetOfMembers, fmt.Sprintf("participant %q is not a member of the trip", string(p)))
		}
	}
	return nil
}
