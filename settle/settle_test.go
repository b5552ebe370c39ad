package settle

import (
	"reflect"
	"testing"

	"github.com/google/uuid"

	"tripledger/ledger"
	"tripledger/money"
)

// applyTransfers replays a settlement plan over the nets it was derived from
// and returns the resulting net per participant.
func applyTransfers(balances []Balance, currency money.Currency, transfers []Transfer) map[ledger.ParticipantID]int64 {
	nets := make(map[ledger.ParticipantID]int64)
	for _, b := range balances {
		if b.Currency == currency {
			nets[b.Participant] = b.Net()
		}
	}
	for _, tr := range transfers {
		nets[tr.From] += tr.Amount.MinorUnits
		nets[tr.To] -= tr.Amount.MinorUnits
	}
	return nets
}

func TestSettleTwoExpenseScenario(t *testing.T) {
	// A paid 900 split A,B,C; B paid 300 split A,B,C.
	// Nets: A +500, B -100, C -400. Greedy plan: C->A 400, then B->A 100.
	trip := uuid.New()
	balances := Balances([]ledger.ExpenseRecord{
		record(trip, 900, money.INR, "A", "A", "B", "C"),
		record(trip, 300, money.INR, "B", "A", "B", "C"),
	})

	transfers := Settle(money.INR, balances)
	want := []Transfer{
		{From: "C", To: "A", Amount: money.New(400, money.INR)},
		{From: "B", To: "A", Amount: money.New(100, money.INR)},
	}
	if !reflect.DeepEqual(transfers, want) {
		t.Fatalf("Settle = %+v, want %+v", transfers, want)
	}
}

func TestSettleDrivesNetsToZero(t *testing.T) {
	trip := uuid.New()
	records := []ledger.ExpenseRecord{
		record(trip, 2334, money.TWD, "chen", "chen", "tsai", "yu", "hsieh", "lu"),
		record(trip, 750, money.TWD, "chen", "chen", "yu", "lu"),
		record(trip, 139, money.TWD, "chen", "tsai"),
		record(trip, 3500, money.TWD, "yu", "chen", "tsai", "yu", "hsieh", "lu", "peng"),
		record(trip, 1900, money.TWD, "lu", "chen", "tsai", "yu", "hsieh", "lu", "peng"),
	}
	balances := Balances(records)

	transfers := Settle(money.TWD, balances)
	for participant, net := range applyTransfers(balances, money.TWD, transfers) {
		if net != 0 {
			t.Errorf("after settlement %s has net %d, want 0", participant, net)
		}
	}
	// At most one transfer per non-zero participant pair is not guaranteed,
	// but a plan can never need more transfers than non-zero participants - 1.
	nonZero := 0
	for _, b := range balances {
		if b.Net() != 0 {
			nonZero++
		}
	}
	if nonZero > 0 && len(transfers) > nonZero-1 {
		t.Errorf("plan uses %d transfers for %d unbalanced participants", len(transfers), nonZero)
	}
}

func TestSettleDeterministicWithTies(t *testing.T) {
	// Two creditors and two debtors with identical magnitudes: ordering must
	// fall back to participant id and stay byte-identical across runs.
	balances := []Balance{
		{Participant: "dana", Currency: money.USD, Paid: 200, Owed: 0},
		{Participant: "carl", Currency: money.USD, Paid: 200, Owed: 0},
		{Participant: "bea", Currency: money.USD, Paid: 0, Owed: 200},
		{Participant: "abe", Currency: money.USD, Paid: 0, Owed: 200},
	}

	first := Settle(money.USD, balances)
	want := []Transfer{
		{From: "abe", To: "carl", Amount: money.New(200, money.USD)},
		{From: "bea", To: "dana", Amount: money.New(200, money.USD)},
	}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("Settle = %+v, want %+v", first, want)
	}
	for range 20 {
		if again := Settle(money.USD, balances); !reflect.DeepEqual(again, first) {
			t.Fatalf("Settle output changed between runs: %+v vs %+v", again, first)
		}
	}
}

func TestSettlePartialCreditorStaysInPlay(t *testing.T) {
	// One large creditor absorbs several debtors.
	balances := []Balance{
		{Participant: "payer", Currency: money.EUR, Paid: 1000, Owed: 0},
		{Participant: "d1", Currency: money.EUR, Paid: 0, Owed: 600},
		{Participant: "d2", Currency: money.EUR, Paid: 0, Owed: 300},
		{Participant: "d3", Currency: money.EUR, Paid: 0, Owed: 100},
	}
	transfers := Settle(money.EUR, balances)
	want := []Transfer{
		{From: "d1", To: "payer", Amount: money.New(600, money.EUR)},
		{From: "d2", To: "payer", Amount: money.New(300, money.EUR)},
		{From: "d3", To: "payer", Amount: money.New(100, money.EUR)},
	}
	if !reflect.DeepEqual(transfers, want) {
		t.Fatalf("Settle = %+v, want %+v", transfers, want)
	}
}

func TestSettleAllKeepsCurrenciesIndependent(t *testing.T) {
	trip := uuid.New()
	records := []ledger.ExpenseRecord{
		record(trip, 900, money.INR, "A", "A", "B", "C"),
		record(trip, 300, money.INR, "B", "A", "B", "C"),
		record(trip, 2000, money.USD, "B", "A", "B"),
	}
	balances := Balances(records)

	transfers := SettleAll(balances)
	perCurrency := make(map[money.Currency][]Transfer)
	for _, tr := range transfers {
		perCurrency[tr.Amount.Currency] = append(perCurrency[tr.Amount.Currency], tr)
	}
	if len(perCurrency) != 2 {
		t.Fatalf("expected settlements in 2 currencies, got %d", len(perCurrency))
	}
	for currency, trs := range perCurrency {
		for participant, net := range applyTransfers(balances, currency, trs) {
			if net != 0 {
				t.Errorf("%s: %s has net %d after settlement", currency, participant, net)
			}
		}
	}
	// INR sorts before USD in the flattened plan.
	if transfers[0].Amount.Currency != money.INR {
		t.Errorf("flattened plan starts with %s, want INR", transfers[0].Amount.Currency)
	}
}

func TestSettleSingleParticipantTripIsEmpty(t *testing.T) {
	trip := uuid.New()
	balances := Balances([]ledger.ExpenseRecord{record(trip, 4200, money.USD, "solo", "solo")})
	if transfers := Settle(money.USD, balances); len(transfers) != 0 {
		t.Errorf("expected empty plan, got %+v", transfers)
	}
}

func TestSettleIgnoresOtherCurrencies(t *testing.T) {
	balances := []Balance{
		{Participant: "a", Currency: money.USD, Paid: 100, Owed: 0},
		{Participant: "b", Currency: money.USD, Paid: 0, Owed: 100},
		{Participant: "a", Currency: money.EUR, Paid: 0, Owed: 50},
		{Participant: "b", Currency: money.EUR, Paid: 50, Owed: 0},
	}
	for _, tr := range Settle(money.USD, balances) {
		if tr.Amount.Currency != money.USD {
			t.Errorf("cross-currency transfer produced: %+v", tr)
		}
	}
}
