// Package ranking holds the relevance blend shared by every entity store.
//
// The PostgreSQL adapters render a Profile into SQL and the in-process store
// evaluates it directly, so both paths order results the same way.
package ranking

import (
	"math"
	"regexp"
	"strings"
)

// Signals are the per-candidate inputs to a relevance blend.
type Signals struct {
	TextRank   float64
	Similarity float64
	Exact      bool
	Prefix     bool
	Category   bool
	Popularity float64
	Boosted    bool
}

// Profile weights each signal for one entity type.
type Profile struct {
	TextRankWeight   float64
	SimilarityWeight float64
	ExactBonus       float64
	PrefixBonus      float64
	CategoryBonus    float64
	PopularityCap    float64
	PopularityScale  float64
	BoostBonus       float64
}

var (
	// CampaignProfile boosts featured campaigns and matches on category membership.
	CampaignProfile = Profile{
		TextRankWeight:   100,
		SimilarityWeight: 50,
		ExactBonus:       100,
		PrefixBonus:      50,
		CategoryBonus:    15,
		PopularityCap:    100,
		PopularityScale:  0.1,
		BoostBonus:       20,
	}

	// UserProfile boosts verified accounts; popularity is follower count.
	UserProfile = Profile{
		TextRankWeight:   100,
		SimilarityWeight: 50,
		ExactBonus:       100,
		PrefixBonus:      50,
		PopularityCap:    1000,
		PopularityScale:  0.01,
		BoostBonus:       10,
	}

	// PostProfile has no name field, so no exact or prefix bonus.
	PostProfile = Profile{
		TextRankWeight:   100,
		SimilarityWeight: 50,
		PopularityCap:    100,
		PopularityScale:  0.1,
	}

	// HashtagProfile relies on the exact-tag bonus since tags are short.
	HashtagProfile = Profile{
		SimilarityWeight: 50,
		ExactBonus:       100,
		PrefixBonus:      50,
		PopularityCap:    1000,
		PopularityScale:  0.02,
	}
)

// WithoutSimilarity drops the trigram signal, used when the store cannot compute it.
func (p Profile) WithoutSimilarity() Profile {
	p.SimilarityWeight = 0
	return p
}

// WithoutFuzzy drops both text rank and similarity. Hashtag-association and
// wallet-address matching are exact modes that never blend free text.
func (p Profile) WithoutFuzzy() Profile {
	p.TextRankWeight = 0
	p.SimilarityWeight = 0
	return p
}

// Blend returns the raw, unclamped relevance score. Ordering uses this value.
func Blend(s Signals, p Profile) float64 {
	score := s.TextRank*p.TextRankWeight + s.Similarity*p.SimilarityWeight
	if s.Exact {
		score += p.ExactBonus
	}
	if s.Prefix {
		score += p.PrefixBonus
	}
	if s.Category {
		score += p.CategoryBonus
	}
	score += PopularityScore(s.Popularity, p)
	if s.Boosted {
		score += p.BoostBonus
	}
	return score
}

// PopularityScore caps the metric before scaling it.
func PopularityScore(metric float64, p Profile) float64 {
	if metric < 0 {
		metric = 0
	}
	return math.Min(metric, p.PopularityCap) * p.PopularityScale
}

// Clamp rounds a raw score into the [0,100] range shown to callers.
func Clamp(score float64) int {
	if math.IsNaN(score) || score <= 0 {
		return 0
	}
	if score >= 100 {
		return 100
	}
	return int(math.Round(score))
}

var walletPattern = regexp.MustCompile(`(?i)^0x[0-9a-f]+$`)

// IsWalletAddress reports whether a query looks like a hex wallet address prefix.
func IsWalletAddress(query string) bool {
	return walletPattern.MatchString(query)
}

// IsHashtagQuery reports whether a query targets hashtag associations.
func IsHashtagQuery(query string) bool {
	return strings.HasPrefix(query, "#")
}

// HashtagTerm strips leading '#' characters and surrounding space.
func HashtagTerm(query string) string {
	return strings.TrimSpace(strings.TrimLeft(query, "#"))
}
