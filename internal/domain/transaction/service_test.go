package transaction

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finbook/finbook/internal/domain/category"
	"github.com/finbook/finbook/internal/domain/errors"
)

// Test implementation of Repository
type testLedgerRepository struct {
	rows      []*Transaction
	createErr error // returned by Create for every row when set
	fitIDErr  error // returned by FindActiveFitIDs when set
	sigErr    error // returned by ExistsBySignature when set
	assignErr error // returned by AssignCategory when set

	sigCalls int
}

func (r *testLedgerRepository) Create(ctx context.Context, tx *Transaction) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, row := range r.rows {
		if !row.Deleted() && row.UserID == tx.UserID && row.FitID != "" && tx.FitID != "" &&
			NormalizeFitID(row.FitID) == NormalizeFitID(tx.FitID) {
			return &ConstraintError{Kind: ConstraintDuplicateKey, Constraint: "ux_transactions_user_fitid"}
		}
	}
	clone := *tx
	r.rows = append(r.rows, &clone)
	return nil
}

func (r *testLedgerRepository) FindActiveFitIDs(ctx context.Context, userID string, normalizedFitIDs []string) (map[string]struct{}, error) {
	if r.fitIDErr != nil {
		return nil, r.fitIDErr
	}
	wanted := make(map[string]struct{}, len(normalizedFitIDs))
	for _, id := range normalizedFitIDs {
		wanted[id] = struct{}{}
	}
	found := make(map[string]struct{})
	for _, row := range r.rows {
		if row.Deleted() || row.UserID != userID || row.FitID == "" {
			continue
		}
		normalized := NormalizeFitID(row.FitID)
		if _, ok := wanted[normalized]; ok {
			found[normalized] = struct{}{}
		}
	}
	return found, nil
}

func (r *testLedgerRepository) ExistsBySignature(ctx context.Context, q SignatureQuery) (bool, error) {
	r.sigCalls++
	if r.sigErr != nil {
		return false, r.sigErr
	}
	for _, row := range r.rows {
		if row.Deleted() || row.UserID != q.UserID || row.AccountID != q.AccountID {
			continue
		}
		if !row.Date.Equal(q.Date) {
			continue
		}
		if row.Amount.Sub(q.Amount).Abs().GreaterThanOrEqual(SignatureEpsilon) {
			continue
		}
		if NormalizeDescription(row.Description) == q.Description {
			return true, nil
		}
	}
	return false, nil
}

func (r *testLedgerRepository) ListUncategorized(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	var out []Transaction
	for _, row := range r.rows {
		if row.Deleted() || row.UserID != userID || row.CategoryID != "" {
			continue
		}
		out = append(out, *row)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *testLedgerRepository) AssignCategory(ctx context.Context, userID, transactionID, categoryID string) error {
	if r.assignErr != nil {
		return r.assignErr
	}
	for _, row := range r.rows {
		if row.ID == transactionID && row.UserID == userID && !row.Deleted() {
			row.CategoryID = categoryID
			return nil
		}
	}
	return errors.NewNotFoundError("transaction not found")
}

// Test implementation of Matcher
type testMatcher struct {
	matches map[string]*category.Match
	err     error
}

func (m *testMatcher) MatchMerchant(ctx context.Context, userID, merchantName string) (*category.Match, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.matches[merchantName], nil
}

func (m *testMatcher) MatchMerchantBatch(ctx context.Context, userID string, merchantNames []string) (map[string]*category.Match, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]*category.Match)
	for _, name := range merchantNames {
		if match, ok := m.matches[name]; ok && match != nil {
			out[name] = match
		}
	}
	return out, nil
}

func newTestService(repo Repository, matcher Matcher) *Service {
	return NewService(repo, matcher, zap.NewNop())
}

func candidate(accountID, description, amount, fitID string, date time.Time) Candidate {
	return Candidate{
		AccountID:   accountID,
		Description: description,
		Amount:      decimal.RequireFromString(amount),
		FitID:       fitID,
		Date:        date,
	}
}

var testDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestRunImportEmptyBatch(t *testing.T) {
	repo := &testLedgerRepository{}
	svc := newTestService(repo, &testMatcher{})

	result, err := svc.RunImport(context.Background(), "user-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.CreatedIDs)
	assert.Empty(t, result.Duplicates)
	assert.Empty(t, result.Errors)
}

func TestRunImportMixedBatch(t *testing.T) {
	repo := &testLedgerRepository{rows: []*Transaction{
		{ID: "existing", UserID: "user-1", AccountID: "acc-1", FitID: "FIT-001",
			Description: "OLD ROW", Amount: decimal.RequireFromString("-10.00"), Date: testDate},
	}}
	svc := newTestService(repo, &testMatcher{})

	batch := []Candidate{
		candidate("acc-1", "DUPLICATE ROW", "-10.00", "fit-001", testDate), // duplicate by FitID
		candidate("acc-1", "   ", "-5.00", "", testDate),                   // invalid description
		candidate("acc-1", "NEW COFFEE", "-4.50", "FIT-002", testDate),     // valid new record
	}

	result, err := svc.RunImport(context.Background(), "user-1", batch)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, result.CreatedIDs, 1)

	require.Len(t, result.Duplicates, 1)
	assert.Equal(t, "fit-001", result.Duplicates[0], "marker keeps the candidate's original identifier")

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no description")
}

func TestRunImportIdempotent(t *testing.T) {
	repo := &testLedgerRepository{}
	svc := newTestService(repo, &testMatcher{})

	batch := []Candidate{
		candidate("acc-1", "COFFEE", "-4.50", "FIT-100", testDate),
		candidate("acc-1", "LUNCH", "-12.00", "FIT-101", testDate),
	}

	first, err := svc.RunImport(context.Background(), "user-1", batch)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)
	assert.Empty(t, first.Duplicates)

	second, err := svc.RunImport(context.Background(), "user-1", batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, second.Duplicates, 2)
}

func TestRunImportFitIDNormalization(t *testing.T) {
	repo := &testLedgerRepository{}
	svc := newTestService(repo, &testMatcher{})

	first, err := svc.RunImport(context.Background(), "user-1", []Candidate{
		candidate("acc-1", "COFFEE", "-4.50", "abc123", testDate),
	})
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	second, err := svc.RunImport(context.Background(), "user-1", []Candidate{
		candidate("acc-1", "COFFEE", "-4.50", "  ABC123 ", testDate),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	require.Len(t, second.Duplicates, 1)

	// The marker preserves the caller's casing (trimmed by normalization).
	assert.Equal(t, "ABC123", second.Duplicates[0])
}

func TestRunImportSignatureDedup(t *testing.T) {
	repo := &testLedgerRepository{rows: []*Transaction{
		{ID: "existing", UserID: "user-1", AccountID: "acc-1",
			Description: "Grocery Store", Amount: decimal.RequireFromString("-50.00"), Date: testDate},
	}}
	svc := newTestService(repo, &testMatcher{})

	result, err := svc.RunImport(context.Background(), "user-1", []Candidate{
		candidate("acc-1", "  GROCERY STORE ", "-50.00", "", testDate),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	require.Len(t, result.Duplicates, 1)
	assert.True(t, strings.HasPrefix(result.Duplicates[0], "sig:acc-1:2025-06-01:"), result.Duplicates[0])
}

func TestRunImportSignatureScopedToAccount(t *testing.T) {
	repo := &testLedgerRepository{rows: []*Transaction{
		{ID: "existing", UserID: "user-1", AccountID: "acc-1",
			Description: "GROCERY STORE", Amount: decimal.RequireFromString("-50.00"), Date: testDate},
	}}
	svc := newTestService(repo, &testMatcher{})

	// Identical description/amount/date under a different account is new.
	result, err := svc.RunImport(context.Background(), "user-1", []Candidate{
		candidate("acc-2", "GROCERY STORE", "-50.00", "", testDate),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Empty(t, result.Duplicates)
}

func TestRunImportSignatureIgnoresDeletedRows(t *testing.T) {
	deletedAt := testDate.Add(24 * time.Hour)
	repo := &testLedgerRepository{rows: []*Transaction{
		{ID: "deleted", UserID: "user-1", AccountID: "acc-1",
			Description: "GROCERY STORE", Amount: decimal.RequireFromString("-50.00"),
			Date: testDate, DeletedAt: &deletedAt},
	}}
	svc := newTestService(repo, &testMatcher{})

	// Re-importing a soft-deleted transaction creates a fresh row.
	result, err := svc.RunImport(context.Background(), "user-1", []Candidate{
		candidate("acc-1", "GROCERY STORE", "-50.00", "", testDate),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Empty(t, result.Duplicates)
}

func TestRunImportSignatureLookupFailsOpen(t *testing.T) {
	repo := &testLedgerRepository{sigErr: stderrors.New("lookup timeout")}
	svc := newTestService(repo, &testMatcher{})

	result, err := svc.RunImport(context.Background(), "user-1", []Candidate{
		candidate("acc-1", "GROCERY STORE", "-50.00", "", testDate),
	})
	require.NoError(t, err)

	// The candidate is kept rather than silently dropped.
	assert.Equal(t, 1, result.Created)
	assert.Empty(t, result.Duplicates)
	assert.Empty(t, result.Errors)
}

func TestRunImportFitIDLookupFailureAborts(t *testing.T) {
	repo := &testLedgerRepository{fitIDErr: stderrors.New("connection refused")}
	svc := newTestService(repo, &testMatcher{})

	_, err := svc.RunImport(context.Background(), "user-1", []Candidate{
		candidate("acc-1", "COFFEE", "-4.50", "FIT-001", testDate),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.NewUnavailableError("", nil))
}

func TestRunImportConstraintErrorsRecoveredPerRecord(t *testing.T) {
	repo := &testLedgerRepository{
		createErr: &ConstraintError{Kind: ConstraintInvalidAccount, Constraint: "fk_transactions_account"},
	}
	svc := newTestService(repo, &testMatcher{})

	result, err := svc.RunImport(context.Background(), "user-1", []Candidate{
		candidate("acc-missing", "COFFEE", "-4.50", "FIT-001", testDate),
		candidate("acc-missing", "LUNCH", "-12.00", "FIT-002", testDate),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "COFFEE")
	assert.Contains(t, result.Errors[0], "FIT-001")
	assert.Contains(t, result.Errors[0], "account does not exist")
}

func TestRunImportUniqueConstraintAsSecondLineOfDefense(t *testing.T) {
	repo := &testLedgerRepository{}
	svc := newTestService(repo, &testMatcher{})

	// Two candidates in one batch carrying the same FitID: the pre-check
	// compares against the store only, so the second row is caught by the
	// unique constraint at insert time.
	result, err := svc.RunImport(context.Background(), "user-1", []Candidate{
		candidate("acc-1", "COFFEE", "-4.50", "FIT-001", testDate),
		candidate("acc-1", "COFFEE AGAIN", "-4.50", "FIT-001", testDate),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "duplicate record")
}

func TestRunImportStoreFailureAbortsWithPartialResult(t *testing.T) {
	repo := &testLedgerRepository{createErr: stderrors.New("connection reset")}
	svc := newTestService(repo, &testMatcher{})

	result, err := svc.RunImport(context.Background(), "user-1", []Candidate{
		candidate("acc-1", "COFFEE", "-4.50", "FIT-001", testDate),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.NewUnavailableError("", nil))
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Created)
}

func TestRunImportCancellationBetweenInserts(t *testing.T) {
	repo := &testLedgerRepository{}
	svc := newTestService(repo, &testMatcher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.RunImport(ctx, "user-1", []Candidate{
		candidate("acc-1", "COFFEE", "-4.50", "FIT-001", testDate),
		candidate("acc-1", "LUNCH", "-12.00", "FIT-002", testDate),
	})
	require.NoError(t, err, "cancellation returns the partial result, not an error")

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Skipped)
}

func TestAutoCategorizeTransactions(t *testing.T) {
	repo := &testLedgerRepository{rows: []*Transaction{
		{ID: "t1", UserID: "user-1", AccountID: "acc-1", Description: "COFFEE", MerchantName: "STARBUCKS #4521"},
		{ID: "t2", UserID: "user-1", AccountID: "acc-1", Description: "UNKNOWN", MerchantName: "MYSTERY SHOP"},
		{ID: "t3", UserID: "user-1", AccountID: "acc-1", Description: "NO MERCHANT"},
		{ID: "t4", UserID: "user-1", AccountID: "acc-1", Description: "ALREADY DONE",
			MerchantName: "STARBUCKS #4521", CategoryID: "cat-coffee"},
	}}
	matcher := &testMatcher{matches: map[string]*category.Match{
		"STARBUCKS #4521": {CategoryID: "cat-coffee", CategoryName: "Coffee", Confidence: 0.9,
			Method: category.MethodPatternContains},
	}}
	svc := newTestService(repo, matcher)

	n, err := svc.AutoCategorizeTransactions(context.Background(), "user-1", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, "cat-coffee", repo.rows[0].CategoryID)
	assert.Empty(t, repo.rows[1].CategoryID)
	assert.Empty(t, repo.rows[2].CategoryID)
}

func TestAutoCategorizeAssignFailuresSkipped(t *testing.T) {
	repo := &testLedgerRepository{
		rows: []*Transaction{
			{ID: "t1", UserID: "user-1", AccountID: "acc-1", Description: "COFFEE", MerchantName: "STARBUCKS"},
		},
		assignErr: stderrors.New("deadlock detected"),
	}
	matcher := &testMatcher{matches: map[string]*category.Match{
		"STARBUCKS": {CategoryID: "cat-coffee", CategoryName: "Coffee"},
	}}
	svc := newTestService(repo, matcher)

	n, err := svc.AutoCategorizeTransactions(context.Background(), "user-1", 100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAutoCategorizeMatcherFailureNotFatal(t *testing.T) {
	repo := &testLedgerRepository{rows: []*Transaction{
		{ID: "t1", UserID: "user-1", AccountID: "acc-1", Description: "COFFEE", MerchantName: "STARBUCKS"},
	}}
	svc := newTestService(repo, &testMatcher{err: stderrors.New("category store down")})

	n, err := svc.AutoCategorizeTransactions(context.Background(), "user-1", 100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestConstraintErrorReason(t *testing.T) {
	cases := []struct {
		kind ConstraintKind
		want string
	}{
		{ConstraintDuplicateKey, "duplicate record"},
		{ConstraintInvalidAccount, "account does not exist"},
		{ConstraintInvalidCategory, "category does not exist"},
		{ConstraintForeignKey, "referenced record does not exist"},
		{ConstraintMissingField, "missing required field"},
		{ConstraintCheckViolation, "value rejected by storage rules"},
		{ConstraintGeneric, "storage rejected the record"},
	}
	for _, tc := range cases {
		err := &ConstraintError{Kind: tc.kind, Err: fmt.Errorf("boom")}
		assert.Equal(t, tc.want, err.Reason())
	}
}
