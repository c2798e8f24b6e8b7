package transaction

import (
	"context"

	"go.uber.org/zap"
)

// PreviewImport runs the category matcher over a candidate batch without
// touching the ledger, so a caller can review and override suggestions
// before committing to RunImport. Matcher failures for a single candidate
// are logged and reported as "no suggestion".
func (s *Service) PreviewImport(ctx context.Context, userID string, candidates []Candidate) (*PreviewResult, error) {
	result := &PreviewResult{
		Total: len(candidates),
		Items: make([]PreviewItem, 0, len(candidates)),
	}

	for i, c := range candidates {
		item := PreviewItem{
			Index:        i,
			Description:  c.Description,
			MerchantName: c.MerchantName,
		}

		match, err := s.matcher.MatchMerchant(ctx, userID, c.MerchantName)
		if err != nil {
			s.log.Warn("preview match failed",
				zap.Int("index", i),
				zap.String("merchantName", c.MerchantName),
				zap.Error(err))
		} else if match != nil {
			item.CategoryID = match.CategoryID
			item.CategoryName = match.CategoryName
			item.Confidence = match.Confidence
			item.Method = string(match.Method)
			item.WillBeCategorized = true
			result.WillCategorize++
		}

		result.Items = append(result.Items, item)
	}

	if result.Total > 0 {
		result.SuccessRate = float64(result.WillCategorize) / float64(result.Total)
	}
	return result, nil
}
