package transaction

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	ulid "github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/finbook/finbook/internal/domain/category"
	"github.com/finbook/finbook/internal/domain/errors"
)

// Matcher suggests categories for merchant names. Implemented by
// category.Matcher; import only consumes it, category configuration is owned
// by the CRUD layer.
type Matcher interface {
	MatchMerchant(ctx context.Context, userID, merchantName string) (*category.Match, error)
	MatchMerchantBatch(ctx context.Context, userID string, merchantNames []string) (map[string]*category.Match, error)
}

// Service orchestrates statement imports: normalization, duplicate
// filtering and row-by-row persistence.
type Service struct {
	repo       Repository
	matcher    Matcher
	normalizer *Normalizer
	deduper    *Deduper
	log        *zap.Logger
}

// NewService creates a new import service
func NewService(repo Repository, matcher Matcher, log *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		matcher:    matcher,
		normalizer: NewNormalizer(log),
		deduper:    NewDeduper(repo, log),
		log:        log,
	}
}

// RunImport merges a batch of candidates into the user's ledger. Per-record
// validation and constraint failures are recorded in the result and never
// abort the batch; only a store-level failure raises. Rows are persisted
// individually so one bad row cannot poison the rest, and cancellation is
// honored between inserts with the partial result returned as-is.
func (s *Service) RunImport(ctx context.Context, userID string, candidates []Candidate) (*ImportResult, error) {
	result := &ImportResult{
		ImportID: ulid.Make().String(),
		Total:    len(candidates),
	}
	if len(candidates) == 0 {
		return result, nil
	}

	log := s.log.With(zap.String("importId", result.ImportID), zap.String("userId", userID))
	log.Info("starting import", zap.Int("candidates", len(candidates)))

	normalized := make([]*Transaction, 0, len(candidates))
	for i, c := range candidates {
		tx, err := s.normalizer.Normalize(c, userID)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, validationMessage(i, c, err))
			continue
		}
		normalized = append(normalized, tx)
	}

	toInsert, duplicates, err := s.deduper.Partition(ctx, userID, normalized)
	if err != nil {
		return nil, errors.NewUnavailableError("duplicate check failed", err)
	}
	result.Duplicates = duplicates
	result.Skipped += len(duplicates)

	for i, tx := range toInsert {
		if ctx.Err() != nil {
			log.Warn("import cancelled, returning partial result",
				zap.Int("created", result.Created),
				zap.Int("remaining", len(toInsert)-i))
			result.Skipped += len(toInsert) - i
			return result, nil
		}

		if err := s.repo.Create(ctx, tx); err != nil {
			var cerr *ConstraintError
			if stderrors.As(err, &cerr) {
				result.Skipped++
				result.Errors = append(result.Errors, insertMessage(tx, cerr))
				log.Warn("insert rejected",
					zap.String("transactionId", tx.ID),
					zap.String("kind", string(cerr.Kind)),
					zap.Error(cerr))
				continue
			}
			// Connectivity-class failure: nothing further can proceed.
			// The partial result still describes the work done so far.
			return result, errors.NewUnavailableError("transaction store unreachable", err)
		}

		result.Created++
		result.CreatedIDs = append(result.CreatedIDs, tx.ID)
	}

	log.Info("import finished",
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("duplicates", len(result.Duplicates)))
	return result, nil
}

// AutoCategorizeTransactions assigns categories to the user's uncategorized
// transactions by matching merchant names. Per-row failures are logged and
// skipped; the call only fails when the initial listing does. Returns the
// number of transactions categorized.
func (s *Service) AutoCategorizeTransactions(ctx context.Context, userID string, limit int) (int, error) {
	txs, err := s.repo.ListUncategorized(ctx, userID, limit)
	if err != nil {
		return 0, errors.NewUnavailableError("listing uncategorized transactions failed", err)
	}
	if len(txs) == 0 {
		return 0, nil
	}

	seen := make(map[string]struct{}, len(txs))
	names := make([]string, 0, len(txs))
	for _, tx := range txs {
		if tx.MerchantName == "" {
			continue
		}
		if _, ok := seen[tx.MerchantName]; ok {
			continue
		}
		seen[tx.MerchantName] = struct{}{}
		names = append(names, tx.MerchantName)
	}

	matches, err := s.matcher.MatchMerchantBatch(ctx, userID, names)
	if err != nil {
		// Matching is best-effort during import flows, it never blocks.
		s.log.Warn("merchant matching failed", zap.String("userId", userID), zap.Error(err))
		return 0, nil
	}

	categorized := 0
	for _, tx := range txs {
		match, ok := matches[tx.MerchantName]
		if !ok || match == nil {
			continue
		}
		if err := s.repo.AssignCategory(ctx, userID, tx.ID, match.CategoryID); err != nil {
			s.log.Warn("category assignment failed",
				zap.String("transactionId", tx.ID),
				zap.String("categoryId", match.CategoryID),
				zap.Error(err))
			continue
		}
		categorized++
	}

	s.log.Info("auto-categorize finished",
		zap.String("userId", userID),
		zap.Int("scanned", len(txs)),
		zap.Int("categorized", categorized))
	return categorized, nil
}

func validationMessage(index int, c Candidate, err error) string {
	name := strings.TrimSpace(c.Description)
	if name == "" {
		name = "(no description)"
	}
	return fmt.Sprintf("record %d %q: %v", index, name, err)
}

func insertMessage(tx *Transaction, cerr *ConstraintError) string {
	if tx.FitID != "" {
		return fmt.Sprintf("failed to import %q (FitID %s): %s", tx.Description, tx.FitID, cerr.Reason())
	}
	return fmt.Sprintf("failed to import %q: %s", tx.Description, cerr.Reason())
}
