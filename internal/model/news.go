package model

import "time"

// Article is one news article returned by a news source
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`              // Source adapter name (guardian, google_news, newsapi)
	Publisher   string    `json:"publisher,omitempty"` // Outlet name as reported by the source
	Tier        int       `json:"tier"`                // Source quality tier, lower is better
	PublishedAt time.Time `json:"publishedAt"`
}

// TimelineEvent is one calendar-week bucket of coverage
type TimelineEvent struct {
	WeekStart    time.Time `json:"weekStart"` // Sunday 00:00 UTC
	Event        string    `json:"event"`
	ArticleCount int       `json:"articleCount"`
	TopHeadline  string    `json:"topHeadline,omitempty"`
}

// Sentiment is a coarse label over the coverage
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
	SentimentNeutral  Sentiment = "neutral"
)

// DateWindow bounds the historical news search
type DateWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewsCorrelation is the news correlator output
type NewsCorrelation struct {
	Query        string          `json:"query"`
	Window       DateWindow      `json:"window"`
	Articles     []Article       `json:"articles"`
	Timeline     []TimelineEvent `json:"timeline"`
	Sentiment    Sentiment       `json:"sentiment"`
	SourceCounts map[string]int  `json:"sourceCounts,omitempty"` // Articles contributed per source before dedupe
}
