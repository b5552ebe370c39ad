package settle

import (
	"sort"

	"tripledger/ledger"
	"tripledger/money"
)

// Transfer is one directed settlement payment. Applying every transfer of a
// settlement plan to the balances it was derived from zeroes every net
// position in that currency.
type Transfer struct {
	From   ledger.ParticipantID `json:"from"`
	To     ledger.ParticipantID `json:"to"`
	Amount money.Money          `json:"amount"`
}

type position struct {
	participant ledger.ParticipantID
	remaining   int64 // always positive, magnitude of the outstanding net
}

// Settle produces the settlement plan for one currency with the greedy
// largest-first policy: repeatedly pay the largest outstanding debt to the
// largest outstanding credit. Ties are broken by participant id so identical
// input always yields identical output. The plan is not guaranteed to have
// the theoretical minimum transfer count; the greedy policy is the contract.
func Settle(currency money.Currency, balances []Balance) []Transfer {
	var creditors, debtors []position
	for _, b := range balances {
		if b.Currency != currency {
			continue
		}
		switch net := b.Net(); {
		case net > 0:
			creditors = append(creditors, position{participant: b.Participant, remaining: net})
		case net < 0:
			debtors = append(debtors, position{participant: b.Participant, remaining: -net})
		}
	}

	byMagnitude := func(ps []position) func(i, j int) bool {
		return func(i, j int) bool {
			if ps[i].remaining != ps[j].remaining {
				return ps[i].remaining > ps[j].remaining
			}
			return ps[i].participant < ps[j].participant
		}
	}

	var transfers []Transfer
	for len(creditors) > 0 && len(debtors) > 0 {
		// Re-sort each round; only the head positions shrink, but keeping the
		// full order is cheap at trip scale and keeps the policy obvious.
		sort.SliceStable(creditors, byMagnitude(creditors))
		sort.SliceStable(debtors, byMagnitude(debtors))

		creditor := &creditors[0]
		debtor := &debtors[0]

		amount := creditor.remaining
		if debtor.remaining < amount {
			amount = debtor.remaining
		}
		transfers = append(transfers, Transfer{
			From:   debtor.participant,
			To:     creditor.participant,
			Amount: money.New(amount, currency),
		})

		creditor.remaining -= amount
		debtor.remaining -= amount
		if creditor.remaining == 0 {
			creditors = creditors[1:]
		}
		if debtor.remaining == 0 {
			debtors = debtors[1:]
		}
	}
	return transfers
}

// SettleAll runs Settle for every currency present in the balance set, in
// sorted currency order, and returns the flattened transfer list.
func SettleAll(balances []Balance) []Transfer {
	var transfers []Transfer
	for _, c := range Currencies(balances) {
		transfers = append(transfers, Settle(c, balances)...)
	}
	return transfers
}
