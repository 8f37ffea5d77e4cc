package news

import (
	"fmt"
	"sort"
	"time"

	"github.com/ppiankov/legislens/internal/model"
)

// DefaultTimelineWeeks is how many weekly buckets the timeline keeps
const DefaultTimelineWeeks = 10

// BuildTimeline groups articles into Sunday-aligned UTC weeks, most recent
// first, keeping at most maxWeeks buckets. Articles without a timestamp are skipped.
func BuildTimeline(articles []model.Article, maxWeeks int) []model.TimelineEvent {
	if maxWeeks <= 0 {
		maxWeeks = DefaultTimelineWeeks
	}

	type bucket struct {
		start time.Time
		count int
		top   model.Article
	}
	buckets := make(map[time.Time]*bucket)

	for _, a := range articles {
		if a.PublishedAt.IsZero() {
			continue
		}
		start := WeekStart(a.PublishedAt)
		b, ok := buckets[start]
		if !ok {
			b = &bucket{start: start, top: a}
			buckets[start] = b
		} else if betterHeadline(a, b.top) {
			b.top = a
		}
		b.count++
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].start.After(ordered[j].start)
	})
	if len(ordered) > maxWeeks {
		ordered = ordered[:maxWeeks]
	}

	events := make([]model.TimelineEvent, 0, len(ordered))
	for _, b := range ordered {
		events = append(events, model.TimelineEvent{
			WeekStart:    b.start,
			Event:        weekLabel(b.start, b.count),
			ArticleCount: b.count,
			TopHeadline:  b.top.Title,
		})
	}
	return events
}

// betterHeadline prefers the better tier, then the newer article
func betterHeadline(candidate, current model.Article) bool {
	if candidate.Tier != current.Tier {
		return candidate.Tier < current.Tier
	}
	return candidate.PublishedAt.After(current.PublishedAt)
}

func weekLabel(start time.Time, count int) string {
	noun := "articles"
	if count == 1 {
		noun = "article"
	}
	return fmt.Sprintf("%d %s in the week of %s", count, noun, start.Format("Jan 2, 2006"))
}
