package news

import (
	"strings"
	"unicode"

	"github.com/ppiankov/legislens/internal/model"
)

// The lexicon is deliberately small. ScoreSentiment is a heuristic over
// headline wording and makes no claim of accuracy.
var positiveWords = map[string]bool{
	"support": true, "supports": true, "supported": true, "bipartisan": true,
	"praise": true, "praised": true, "passes": true, "passed": true,
	"approve": true, "approved": true, "approves": true, "win": true,
	"wins": true, "victory": true, "benefit": true, "benefits": true,
	"boost": true, "boosts": true, "relief": true, "success": true,
	"landmark": true, "historic": true, "advance": true, "advances": true,
	"champion": true, "welcome": true, "welcomed": true, "progress": true,
}

var negativeWords = map[string]bool{
	"oppose": true, "opposes": true, "opposed": true, "opposition": true,
	"criticism": true, "criticized": true, "criticize": true, "slam": true,
	"slams": true, "fail": true, "fails": true, "failed": true,
	"reject": true, "rejected": true, "rejects": true, "block": true,
	"blocked": true, "blocks": true, "controversy": true, "controversial": true,
	"concern": true, "concerns": true, "threat": true, "threatens": true,
	"harm": true, "harmful": true, "backlash": true, "stall": true,
	"stalled": true, "veto": true, "vetoed": true, "attack": true,
}

// Sentiment thresholds on positive / (positive + negative)
const (
	positiveThreshold = 0.6
	negativeThreshold = 0.4
)

// SentimentCounts tallies lexicon hits across titles and descriptions
func SentimentCounts(articles []model.Article) (positive, negative int) {
	for _, a := range articles {
		words := strings.FieldsFunc(strings.ToLower(a.Title+" "+a.Description), func(r rune) bool {
			return !unicode.IsLetter(r) && r != '\''
		})
		for _, w := range words {
			switch {
			case positiveWords[w]:
				positive++
			case negativeWords[w]:
				negative++
			}
		}
	}
	return positive, negative
}

// ScoreSentiment labels coverage: no lexicon hits is neutral, a positive
// share above 0.6 is positive, below 0.4 negative, anything between mixed.
func ScoreSentiment(articles []model.Article) model.Sentiment {
	positive, negative := SentimentCounts(articles)
	total := positive + negative
	if total == 0 {
		return model.SentimentNeutral
	}

	ratio := float64(positive) / float64(total)
	switch {
	case ratio > positiveThreshold:
		return model.SentimentPositive
	case ratio < negativeThreshold:
		return model.SentimentNegative
	default:
		return model.SentimentMixed
	}
}
