package transaction

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Deduper partitions a batch of normalized candidates into rows to insert
// and rows that already exist in the user's ledger.
//
// Two disjoint strategies: candidates carrying a FitID are matched against
// the stored identifiers (normalized on both sides), candidates without one
// are matched by signature (account + amount within epsilon + exact date +
// folded description). Only non-deleted rows count as existing, so a
// previously deleted transaction can be re-imported.
type Deduper struct {
	repo Repository
	log  *zap.Logger
}

// NewDeduper creates a new Deduper
func NewDeduper(repo Repository, log *zap.Logger) *Deduper {
	return &Deduper{repo: repo, log: log}
}

// Partition splits candidates into toInsert and duplicate markers. Markers
// carry the original FitID for identifier matches and a synthetic signature
// string for signature matches.
func (d *Deduper) Partition(ctx context.Context, userID string, candidates []*Transaction) ([]*Transaction, []string, error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	withFitID := make([]*Transaction, 0, len(candidates))
	withoutFitID := make([]*Transaction, 0)
	for _, tx := range candidates {
		if tx.FitID != "" {
			withFitID = append(withFitID, tx)
		} else {
			withoutFitID = append(withoutFitID, tx)
		}
	}

	toInsert := make([]*Transaction, 0, len(candidates))
	duplicates := make([]string, 0)

	if len(withFitID) > 0 {
		normalized := make([]string, 0, len(withFitID))
		for _, tx := range withFitID {
			normalized = append(normalized, NormalizeFitID(tx.FitID))
		}

		existing, err := d.repo.FindActiveFitIDs(ctx, userID, normalized)
		if err != nil {
			return nil, nil, err
		}

		for _, tx := range withFitID {
			if _, ok := existing[NormalizeFitID(tx.FitID)]; ok {
				duplicates = append(duplicates, tx.FitID)
				continue
			}
			toInsert = append(toInsert, tx)
		}
	}

	for _, tx := range withoutFitID {
		exists, err := d.repo.ExistsBySignature(ctx, SignatureQuery{
			UserID:      userID,
			AccountID:   tx.AccountID,
			Amount:      tx.Amount,
			Date:        tx.Date,
			Description: NormalizeDescription(tx.Description),
		})
		if err != nil {
			// Fail open: a broken signature lookup must not drop data, the
			// unique constraint on insert is the second line of defense.
			d.log.Warn("signature lookup failed, keeping candidate",
				zap.String("transactionId", tx.ID),
				zap.String("description", tx.Description),
				zap.Error(err))
			toInsert = append(toInsert, tx)
			continue
		}
		if exists {
			duplicates = append(duplicates, SignatureMarker(tx))
			continue
		}
		toInsert = append(toInsert, tx)
	}

	return toInsert, duplicates, nil
}

// SignatureMarker builds the synthetic duplicate marker for a candidate
// without a FitID.
func SignatureMarker(tx *Transaction) string {
	return fmt.Sprintf("sig:%s:%s:%s:%s",
		tx.AccountID,
		tx.Date.Format("2006-01-02"),
		tx.Amount.StringFixed(2),
		NormalizeDescription(tx.Description))
}
