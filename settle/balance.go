package settle

import (
	"sort"

	"tripledger/ledger"
	"tripledger/money"
)

// Balance is the derived net position of one participant in one currency.
// It is never persisted: it is a pure function of the trip's records.
type Balance struct {
	Participant ledger.ParticipantID
	Currency    money.Currency
	Paid        int64 // total minor units this participant paid out of pocket
	Owed        int64 // total minor units of shares assigned to this participant
}

// Net is Paid - Owed; positive means the participant is owed money.
func (b Balance) Net() int64 {
	return b.Paid - b.Owed
}

// Shares splits an amount equally across the split set in its stored order.
// Each share is floor(amount/n) minor units, and the leftover minor units go
// one each to the first participants, so the shares always sum exactly to the
// amount. The distribution is deterministic for identical input.
func Shares(amount money.Money, split []ledger.ParticipantID) []money.Money {
	n := int64(len(split))
	if n == 0 {
		return nil
	}
	base := amount.MinorUnits / n
	remainder := amount.MinorUnits - base*n

	shares := make([]money.Money, len(split))
	for i := range split {
		units := base
		if int64(i) < remainder {
			units++
		}
		shares[i] = money.New(units, amount.Currency)
	}
	return shares
}

// Balances derives one Balance per (participant, currency) pair appearing in
// the records. Records must be processed in ledger order so the remainder
// distribution of Shares is reproducible. Output is sorted by currency, then
// participant id.
func Balances(records []ledger.ExpenseRecord) []Balance {
	type key struct {
		participant ledger.ParticipantID
		currency    money.Currency
	}
	acc := make(map[key]*Balance)
	entry := func(p ledger.ParticipantID, c money.Currency) *Balance {
		k := key{participant: p, currency: c}
		if b, ok := acc[k]; ok {
			return b
		}
		b := &Balance{Participant: p, Currency: c}
		acc[k] = b
		return b
	}

	for _, r := range records {
		entry(r.PaidBy, r.Amount.Currency).Paid += r.Amount.MinorUnits
		for i, share := range Shares(r.Amount, r.SplitBetween) {
			entry(r.SplitBetween[i], share.Currency).Owed += share.MinorUnits
		}
	}

	out := make([]Balance, 0, len(acc))
	for _, b := range acc {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Currency != out[j].Currency {
			return out[i].Currency < out[j].Currency
		}
		return out[i].Participant < out[j].Participant
	})
	return out
}

// Currencies lists the distinct currencies present in a balance set, sorted.
func Currencies(balances []Balance) []money.Currency {
	seen := make(map[money.Currency]struct{})
	var out []money.Currency
	for _, b := range balances {
		if _, ok := seen[b.Currency]; !ok {
			seen[b.Currency] = struct{}{}
			out = append(out, b.Currency)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
