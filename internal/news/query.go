package news

import (
	"strings"
	"time"

	"github.com/ppiankov/legislens/internal/model"
)

const (
	lookbackFromIntroduction = 90 * 24 * time.Hour
	lookbackWithoutDate      = 180 * 24 * time.Hour
)

// BuildQuery joins the quoted title and keywords with OR:
// "Affordable Housing Access Act" OR "rental assistance" OR housing
func BuildQuery(title string, keywords []string) string {
	var terms []string
	seen := make(map[string]bool)

	add := func(term string, forceQuote bool) {
		term = strings.TrimSpace(strings.ReplaceAll(term, `"`, ""))
		key := strings.ToLower(term)
		if term == "" || seen[key] {
			return
		}
		seen[key] = true
		if forceQuote || strings.ContainsAny(term, " \t") {
			term = `"` + term + `"`
		}
		terms = append(terms, term)
	}

	add(title, true)
	for _, kw := range keywords {
		add(kw, false)
	}
	return strings.Join(terms, " OR ")
}

// SearchWindow is [introduced-90d, now] when the introduction date is known,
// otherwise [now-180d, now]
func SearchWindow(introduced *time.Time, now time.Time) model.DateWindow {
	now = now.UTC()
	if introduced != nil && !introduced.IsZero() {
		from := introduced.UTC().Add(-lookbackFromIntroduction)
		if from.After(now) {
			from = now.Add(-lookbackFromIntroduction)
		}
		return model.DateWindow{From: from, To: now}
	}
	return model.DateWindow{From: now.Add(-lookbackWithoutDate), To: now}
}

// KeywordsFromCategories takes tags from the top n categories, falling back to
// the category name when a category has no tags
func KeywordsFromCategories(categories []model.Category, n int) []string {
	if n > len(categories) {
		n = len(categories)
	}
	var keywords []string
	for _, cat := range categories[:n] {
		if len(cat.Tags) == 0 {
			keywords = append(keywords, cat.Name)
			continue
		}
		keywords = append(keywords, cat.Tags...)
	}
	return keywords
}
