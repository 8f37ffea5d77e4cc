package news

import (
	"net/url"
	"strings"

	"github.com/ppiankov/legislens/internal/model"
)

// Tiers rank source quality; lower is better
const (
	TierGuardian   = 1
	TierGoogleNews = 2
	TierNewsAPI    = 3
	TierUnknown    = 4
)

// TierClassifier assigns a source-quality tier to each article
type TierClassifier struct {
	sourceTiers map[string]int
	domainTiers map[string]int
}

// DefaultDomainTiers promotes outlets whose articles arrive through a
// lower-tier aggregator to the tier of the outlet's own source
var DefaultDomainTiers = map[string]int{
	"theguardian.com": TierGuardian,
}

// NewTierClassifier creates a classifier; a nil domain map means DefaultDomainTiers
func NewTierClassifier(domainTiers map[string]int) *TierClassifier {
	if domainTiers == nil {
		domainTiers = DefaultDomainTiers
	}
	return &TierClassifier{
		sourceTiers: map[string]int{
			SourceGuardian:   TierGuardian,
			SourceGoogleNews: TierGoogleNews,
			SourceNewsAPI:    TierNewsAPI,
		},
		domainTiers: domainTiers,
	}
}

// Classify returns the tier for an article: the better of its source tier and
// any explicit domain tier. A tier already stamped by the source is trusted.
func (c *TierClassifier) Classify(a model.Article) int {
	tier := a.Tier
	if tier <= 0 {
		var ok bool
		if tier, ok = c.sourceTiers[a.Source]; !ok {
			tier = TierUnknown
		}
	}
	if domainTier, ok := c.domainTier(a.URL); ok && domainTier < tier {
		tier = domainTier
	}
	return tier
}

// Apply sets Tier on every article in place
func (c *TierClassifier) Apply(articles []model.Article) {
	for i := range articles {
		articles[i].Tier = c.Classify(articles[i])
	}
}

func (c *TierClassifier) domainTier(rawURL string) (int, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	if tier, ok := c.domainTiers[host]; ok {
		return tier, true
	}
	// Subdomains inherit (e.g., amp.theguardian.com)
	for domain, tier := range c.domainTiers {
		if strings.HasSuffix(host, "."+domain) {
			return tier, true
		}
	}
	return 0, false
}
