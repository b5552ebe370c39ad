package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"encoding/csv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tripledger/ledger"
	"tripledger/money"
	"tripledger/settle"
)

var inputPath string
var outputPath string

func shareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "share",
		Short:   "settle a trip from a CSV of expenses",
		Long:    `Reads a CSV of expenses (description,amount,currency,paidBy,splitBetween), computes every participant's balance and writes the settlement plan to the output file. The splitBetween column holds a comma separated participant list.`,
		Example: `tripledger share --input expenses.csv --output plan.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" || outputPath == "" {
				return cmd.Help()
			}

			inputFile, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer func(inputFile *os.File) {
				err := inputFile.Close()
				if err != nil {
					log.Fatalf("Failed to close input file: %v", err)
				}
			}(inputFile)

			csvContent, err := csv.NewReader(inputFile).ReadAll()
			if err != nil {
				return err
			}

			records, err := ParseCSVToExpenses(csvContent)
			if err != nil {
				return fmt.Errorf("failed to parse CSV: %w", err)
			}
			if len(records) == 0 {
				return fmt.Errorf("no expenses found in the CSV")
			}

			balances := settle.Balances(records)
			plan := settle.SettleAll(balances)

			outputFile, err := os.Create(outputPath)
			if err != nil {
				return err
			}
			defer func(outputFile *os.File) {
				err := outputFile.Close()
				if err != nil {
					log.Fatalf("Failed to close output file: %v", err)
				}
			}(outputFile)

			_, err = outputFile.WriteString(FormatSettlement(balances, plan))
			if err != nil {
				return err
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "csv input file path (required)")
	err := cmd.MarkFlagRequired("input")
	if err != nil {
		log.Fatal(err)
		return nil
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (required)")
	err = cmd.MarkFlagRequired("output")
	if err != nil {
		log.Fatal(err)
		return nil
	}

	return cmd
}

// ParseCSVToExpenses parses CSV rows into expense records. The first row is
// a header. Participants are collected from the payer and split columns, so
// the membership for validation is exactly the names appearing in the file.
func ParseCSVToExpenses(csvContent [][]string) ([]ledger.ExpenseRecord, error) {
	if len(csvContent) == 0 {
		return nil, fmt.Errorf("CSV is empty")
	}

	// skip the header row
	dataRows := csvContent[1:]
	tripID := uuid.New()

	seen := make(map[ledger.ParticipantID]struct{})
	var members []ledger.Member
	addMember := func(id ledger.ParticipantID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		members = append(members, ledger.Member{ID: id, Name: string(id)})
	}

	var records []ledger.ExpenseRecord
	for i, row := range dataRows {
		if len(row) != 5 {
			return nil, fmt.Errorf("row %d: expected 5 columns, but got %d", i+2, len(row)) // +2 to account for the header row
		}

		currency, err := money.ParseCurrency(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		amount, err := money.ParseAmount(strings.TrimSpace(row[1]), currency)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		payer := ledger.ParticipantID(strings.TrimSpace(row[3]))
		addMember(payer)

		splitNames := strings.Split(row[4], ",")
		split := make([]ledger.ParticipantID, 0, len(splitNames))
		for _, name := range splitNames {
			id := ledger.ParticipantID(strings.TrimSpace(name))
			split = append(split, id)
			addMember(id)
		}

		records = append(records, ledger.ExpenseRecord{
			ID:           uuid.New(),
			TripID:       tripID,
			Description:  row[0],
			Amount:       amount,
			PaidBy:       payer,
			SplitBetween: split,
			Category:     ledger.CategoryOther,
		})
	}

	for i := range records {
		if err := records[i].Validate(members); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	return records, nil
}

// FormatSettlement renders balances and the settlement plan as plain text.
func FormatSettlement(balances []settle.Balance, plan []settle.Transfer) string {
	var b strings.Builder
	b.WriteString("balances:\n")
	for _, bal := range balances {
		net := money.New(bal.Net(), bal.Currency)
		b.WriteString(fmt.Sprintf("  %s: %s (paid %s, owes %s)\n",
			bal.Participant,
			net.String(),
			money.New(bal.Paid, bal.Currency).Decimal(),
			money.New(bal.Owed, bal.Currency).Decimal(),
		))
	}
	b.WriteString("settlement plan:\n")
	if len(plan) == 0 {
		b.WriteString("  everyone is settled\n")
	}
	for _, t := range plan {
		b.WriteString(fmt.Sprintf("  %s -> %s: %s\n", t.From, t.To, t.Amount.String()))
	}
	return b.String()
}
