package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `date,description,amount,fit_id,merchant_name,memo,currency
2025-06-01,COFFEE SHOP,-4.50,FIT-001,STARBUCKS #4521,morning coffee,USD
2025-06-02,PAYCHECK,2500.00,,ACME CORP,,USD
`

func TestReadCandidates(t *testing.T) {
	candidates, err := ReadCandidates(strings.NewReader(sampleCSV), "acc-1")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, "acc-1", first.AccountID)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, "COFFEE SHOP", first.Description)
	assert.Equal(t, "-4.5", first.Amount.String())
	assert.Equal(t, "FIT-001", first.FitID)
	assert.Equal(t, "STARBUCKS #4521", first.MerchantName)
	assert.Equal(t, "morning coffee", first.Memo)
	assert.Equal(t, "USD", first.Currency)

	assert.Empty(t, candidates[1].FitID)
}

func TestReadCandidatesHeaderOnly(t *testing.T) {
	candidates, err := ReadCandidates(strings.NewReader(Header+"\n"), "acc-1")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestReadCandidatesBadAmount(t *testing.T) {
	csv := Header + "\n2025-06-01,COFFEE,notanumber,,,,USD\n"
	_, err := ReadCandidates(strings.NewReader(csv), "acc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestReadCandidatesBadDate(t *testing.T) {
	csv := Header + "\n06/01/2025,COFFEE,-4.50,,,,USD\n"
	_, err := ReadCandidates(strings.NewReader(csv), "acc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing date")
}
