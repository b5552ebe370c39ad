package settle

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"tripledger/ledger"
	"tripledger/money"
)

func record(tripID uuid.UUID, amount int64, currency money.Currency, paidBy ledger.ParticipantID, split ...ledger.ParticipantID) ledger.ExpenseRecord {
	return ledger.ExpenseRecord{
		ID:           uuid.New(),
		TripID:       tripID,
		Description:  "expense",
		Amount:       money.New(amount, currency),
		PaidBy:       paidBy,
		SplitBetween: split,
		Category:     ledger.CategoryOther,
		Date:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSharesRemainderGoesToFirstParticipants(t *testing.T) {
	// 100 minor units over 3 participants: [34, 33, 33] in split order.
	shares := Shares(money.New(100, money.INR), []ledger.ParticipantID{"a", "b", "c"})
	want := []int64{34, 33, 33}
	if len(shares) != len(want) {
		t.Fatalf("Shares returned %d entries, want %d", len(shares), len(want))
	}
	for i, w := range want {
		if shares[i].MinorUnits != w {
			t.Errorf("share[%d] = %d, want %d", i, shares[i].MinorUnits, w)
		}
	}
}

func TestSharesSumInvariant(t *testing.T) {
	// For any split size the shares must sum exactly to the amount.
	participants := []ledger.ParticipantID{"p1", "p2", "p3", "p4", "p5", "p6", "p7"}
	amounts := []int64{1, 7, 99, 100, 101, 999, 1000003}

	for _, amount := range amounts {
		for n := 1; n <= len(participants); n++ {
			shares := Shares(money.New(amount, money.USD), participants[:n])
			var sum int64
			for _, s := range shares {
				sum += s.MinorUnits
			}
			if sum != amount {
				t.Errorf("amount %d over %d participants: shares sum to %d", amount, n, sum)
			}
			// No share may differ from another by more than one minor unit.
			for _, s := range shares {
				if diff := s.MinorUnits - shares[n-1].MinorUnits; diff < 0 || diff > 1 {
					t.Errorf("amount %d over %d participants: uneven share %d vs %d", amount, n, s.MinorUnits, shares[n-1].MinorUnits)
				}
			}
		}
	}
}

func TestBalancesTwoExpenseTrip(t *testing.T) {
	trip := uuid.New()
	records := []ledger.ExpenseRecord{
		record(trip, 900, money.INR, "A", "A", "B", "C"),
		record(trip, 300, money.INR, "B", "A", "B", "C"),
	}

	balances := Balances(records)
	want := map[ledger.ParticipantID]struct{ paid, owed, net int64 }{
		"A": {paid: 900, owed: 400, net: 500},
		"B": {paid: 300, owed: 400, net: -100},
		"C": {paid: 0, owed: 400, net: -400},
	}
	if len(balances) != len(want) {
		t.Fatalf("got %d balances, want %d", len(balances), len(want))
	}
	for _, b := range balances {
		w, ok := want[b.Participant]
		if !ok {
			t.Errorf("unexpected participant %q", b.Participant)
			continue
		}
		if b.Paid != w.paid || b.Owed != w.owed || b.Net() != w.net {
			t.Errorf("%s: paid=%d owed=%d net=%d, want paid=%d owed=%d net=%d",
				b.Participant, b.Paid, b.Owed, b.Net(), w.paid, w.owed, w.net)
		}
	}
}

func TestBalancesCloseToZeroPerCurrency(t *testing.T) {
	trip := uuid.New()
	records := []ledger.ExpenseRecord{
		record(trip, 1001, money.USD, "A", "A", "B", "C"),
		record(trip, 333, money.USD, "B", "B", "C"),
		record(trip, 997, money.EUR, "C", "A", "B", "C", "D"),
		record(trip, 5000, money.EUR, "D", "D"),
	}

	sums := make(map[money.Currency]int64)
	for _, b := range Balances(records) {
		sums[b.Currency] += b.Net()
	}
	for currency, sum := range sums {
		if sum != 0 {
			t.Errorf("net balances for %s sum to %d, want 0", currency, sum)
		}
	}
}

func TestBalancesPayerInOwnSplitNetsOut(t *testing.T) {
	trip := uuid.New()
	records := []ledger.ExpenseRecord{record(trip, 4200, money.USD, "solo", "solo")}

	balances := Balances(records)
	if len(balances) != 1 {
		t.Fatalf("got %d balances, want 1", len(balances))
	}
	b := balances[0]
	if b.Paid != 4200 || b.Owed != 4200 || b.Net() != 0 {
		t.Errorf("solo balance = paid %d owed %d net %d, want 4200/4200/0", b.Paid, b.Owed, b.Net())
	}
}

func TestBalancesDeterministicOrder(t *testing.T) {
	trip := uuid.New()
	records := []ledger.ExpenseRecord{
		record(trip, 900, money.INR, "zoe", "zoe", "amy"),
		record(trip, 500, money.EUR, "amy", "amy", "zoe"),
	}

	first := Balances(records)
	for range 10 {
		again := Balances(records)
		if len(again) != len(first) {
			t.Fatalf("balance count changed between runs")
		}
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("run differs at index %d: %+v vs %+v", i, first[i], again[i])
			}
		}
	}
	// EUR sorts before INR, participants ascending within a currency.
	wantOrder := []struct {
		p ledger.ParticipantID
		c money.Currency
	}{
		{"amy", money.EUR}, {"zoe", money.EUR}, {"amy", money.INR}, {"zoe", money.INR},
	}
	for i, w := range wantOrder {
		if first[i].Participant != w.p || first[i].Currency != w.c {
			t.Errorf("order[%d] = %s/%s, want %s/%s", i, first[i].Participant, first[i].Currency, w.p, w.c)
		}
	}
}
