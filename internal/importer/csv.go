// Package importer reads normalized statement CSV exports into import
// candidates. It stands in for the statement-parser collaborator; bank
// specific formats are converted upstream.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finbook/finbook/internal/domain/transaction"
)

const (
	dateFormat = "2006-01-02"
	numFields  = 7

	colDate     = 0
	colDesc     = 1
	colAmount   = 2
	colFitID    = 3
	colMerchant = 4
	colMemo     = 5
	colCurrency = 6
)

// Header is the expected first row of a candidate CSV
const Header = "date,description,amount,fit_id,merchant_name,memo,currency"

// ReadCandidates reads a candidate CSV and returns import candidates bound
// to the given account.
func ReadCandidates(r io.Reader, accountID string) ([]transaction.Candidate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading candidate CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var candidates []transaction.Candidate
	for i, rec := range records[1:] {
		c, err := parseRow(rec, accountID)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func parseRow(rec []string, accountID string) (transaction.Candidate, error) {
	date, err := time.Parse(dateFormat, strings.TrimSpace(rec[colDate]))
	if err != nil {
		return transaction.Candidate{}, fmt.Errorf("parsing date %q: %w", rec[colDate], err)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(rec[colAmount]))
	if err != nil {
		return transaction.Candidate{}, fmt.Errorf("parsing amount %q: %w", rec[colAmount], err)
	}

	return transaction.Candidate{
		AccountID:    accountID,
		Date:         date.UTC(),
		Description:  rec[colDesc],
		Amount:       amount,
		FitID:        rec[colFitID],
		MerchantName: rec[colMerchant],
		Memo:         rec[colMemo],
		Currency:     strings.TrimSpace(rec[colCurrency]),
	}, nil
}
