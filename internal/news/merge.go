package news

import (
	"sort"
	"time"

	"github.com/ppiankov/legislens/internal/model"
)

// Merge concatenates per-source results in source order and removes duplicate URLs
func Merge(results ...[]model.Article) []model.Article {
	var all []model.Article
	for _, r := range results {
		all = append(all, r...)
	}
	return Dedupe(all)
}

// Dedupe keeps the first article for each exact URL (case-sensitive, no
// normalization) and preserves order
func Dedupe(articles []model.Article) []model.Article {
	seen := make(map[string]bool, len(articles))
	out := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		out = append(out, a)
	}
	return out
}

// WeekStart returns the Sunday 00:00 UTC that starts t's calendar week
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// SortArticles orders articles by calendar week (newest first), then by tier
// within a week, then by timestamp (newest first). Equal keys keep their input
// order.
func SortArticles(articles []model.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		wa, wb := WeekStart(a.PublishedAt), WeekStart(b.PublishedAt)
		if !wa.Equal(wb) {
			return wa.After(wb)
		}
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		return a.PublishedAt.After(b.PublishedAt)
	})
}
