package category

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/finbook/finbook/internal/common/config"
	"github.com/finbook/finbook/internal/domain/errors"
)

// Confidence per method. Exact substring beats case-insensitive containment,
// which beats fuzzy similarity.
const (
	exactConfidence    = 1.0
	containsConfidence = 0.9
	fuzzyWeight        = 0.8
	fuzzyThreshold     = 0.6
)

// Matcher finds the best-fitting category for free-text merchant names by
// evaluating each active category's keywords and merchant patterns.
type Matcher struct {
	repo      Repository
	batchSize int
	log       *zap.Logger
}

// NewMatcher creates a new Matcher. batchSize bounds how many merchant names
// MatchMerchantBatch resolves per category lookup; values <= 0 fall back to
// the default.
func NewMatcher(repo Repository, batchSize int, log *zap.Logger) *Matcher {
	if batchSize <= 0 {
		batchSize = config.DefaultMatchBatchSize
	}
	return &Matcher{repo: repo, batchSize: batchSize, log: log}
}

// MatchMerchant returns the single best match for a merchant name, or nil
// when the name is empty or nothing fits.
func (m *Matcher) MatchMerchant(ctx context.Context, userID, merchantName string) (*Match, error) {
	if strings.TrimSpace(merchantName) == "" {
		return nil, nil
	}

	categories, err := m.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, errors.NewUnavailableError("listing categories failed", err)
	}

	return bestMatch(categories, merchantName), nil
}

// MatchMerchantBatch matches many merchant names, processing them in
// fixed-size batches to bound peak resource use. The batch size never
// changes results. Per-name and per-batch failures are logged and skipped.
func (m *Matcher) MatchMerchantBatch(ctx context.Context, userID string, merchantNames []string) (map[string]*Match, error) {
	results := make(map[string]*Match, len(merchantNames))

	for start := 0; start < len(merchantNames); start += m.batchSize {
		end := start + m.batchSize
		if end > len(merchantNames) {
			end = len(merchantNames)
		}

		categories, err := m.repo.ListActive(ctx, userID)
		if err != nil {
			m.log.Warn("listing categories failed, skipping batch",
				zap.String("userId", userID),
				zap.Int("batchStart", start),
				zap.Error(err))
			continue
		}

		for _, name := range merchantNames[start:end] {
			if strings.TrimSpace(name) == "" {
				continue
			}
			if match := bestMatch(categories, name); match != nil {
				results[name] = match
			}
		}
	}

	return results, nil
}

// GetMatchingStats reports, per matching method, the best score, match count
// and best category for one merchant name.
func (m *Matcher) GetMatchingStats(ctx context.Context, userID, merchantName string) (MatchingStats, error) {
	stats := make(MatchingStats)
	if strings.TrimSpace(merchantName) == "" {
		return stats, nil
	}

	categories, err := m.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, errors.NewUnavailableError("listing categories failed", err)
	}

	for i := range categories {
		for _, cand := range evaluate(&categories[i], merchantName) {
			entry, ok := stats[cand.Method]
			if !ok {
				entry = &MethodStats{}
				stats[cand.Method] = entry
			}
			entry.Count++
			if cand.Confidence > entry.BestScore {
				entry.BestScore = cand.Confidence
				entry.BestCategory = cand.CategoryName
			}
		}
	}

	return stats, nil
}

// bestMatch evaluates every category term against the merchant name and
// picks the winner. Ties resolve to the highest confidence, then the longest
// matched text, then the lexicographically smallest category name, so the
// outcome is deterministic.
func bestMatch(categories []Category, merchantName string) *Match {
	var best *Match
	for i := range categories {
		for _, cand := range evaluate(&categories[i], merchantName) {
			cand := cand
			if best == nil || better(&cand, best) {
				best = &cand
			}
		}
	}
	return best
}

func better(a, b *Match) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if len(a.MatchedText) != len(b.MatchedText) {
		return len(a.MatchedText) > len(b.MatchedText)
	}
	return a.CategoryName < b.CategoryName
}

// evaluate scores every keyword and merchant pattern of one category against
// the merchant name, producing at most one candidate per term.
func evaluate(c *Category, merchantName string) []Match {
	if !c.IsActive {
		return nil
	}

	var out []Match
	for _, kw := range c.Keywords {
		if cand, ok := scoreTerm(c, merchantName, kw, false); ok {
			out = append(out, cand)
		}
	}
	for _, pattern := range c.MerchantPatterns {
		if cand, ok := scoreTerm(c, merchantName, pattern, true); ok {
			out = append(out, cand)
		}
	}
	return out
}

// scoreTerm applies the three matching methods in order of strength: exact
// substring, case-insensitive containment, fuzzy token similarity.
func scoreTerm(c *Category, merchantName, term string, pattern bool) (Match, bool) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Match{}, false
	}

	if strings.Contains(merchantName, term) {
		return matchFor(c, term, exactConfidence, pattern, MethodKeywordExact, MethodPatternExact), true
	}

	folded := strings.ToLower(merchantName)
	foldedTerm := strings.ToLower(term)
	if strings.Contains(folded, foldedTerm) {
		return matchFor(c, term, containsConfidence, pattern, MethodKeywordContains, MethodPatternContains), true
	}

	if text, sim := bestTokenSimilarity(folded, foldedTerm); sim >= fuzzyThreshold {
		m := matchFor(c, text, fuzzyWeight*sim, pattern, MethodKeywordFuzzy, MethodPatternFuzzy)
		return m, true
	}

	return Match{}, false
}

func matchFor(c *Category, text string, confidence float64, pattern bool, kwMethod, patMethod Method) Match {
	method := kwMethod
	if pattern {
		method = patMethod
	}
	return Match{
		CategoryID:   c.ID,
		CategoryName: c.Name,
		MatchedText:  text,
		Confidence:   confidence,
		Method:       method,
	}
}

// bestTokenSimilarity compares the term against each whitespace token of the
// folded merchant name and the whole name, returning the closest text and
// its similarity in [0,1].
func bestTokenSimilarity(foldedName, foldedTerm string) (string, float64) {
	bestText := foldedName
	bestSim := similarity(foldedName, foldedTerm)

	for _, token := range strings.Fields(foldedName) {
		if sim := similarity(token, foldedTerm); sim > bestSim {
			bestText = token
			bestSim = sim
		}
	}
	return bestText, bestSim
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
