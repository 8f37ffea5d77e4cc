package adapters

import (
	"fmt"
	"strings"
)

const jsonOnly = "Respond with ONLY valid JSON. No markdown, no commentary."

// summaryVariant is one summarizer output style
type summaryVariant struct {
	key    string
	system string
}

var summaryVariants = []summaryVariant{
	{"key-points", "Summarize the legislation as 3-6 markdown bullet points covering what the bill does. Use plain language a voter can follow. Output only the bullets."},
	{"tl;dr", "Summarize the legislation in 2-3 plain-language sentences. Output only the summary."},
	{"teaser", "Write one engaging sentence that makes a citizen want to learn about this bill. Do not editorialize. Output only the sentence."},
	{"headline", "Write a neutral news-style headline of at most 12 words for this bill. Output only the headline."},
}

const categorizerSystem = "You classify U.S. congressional bills into policy areas. " + jsonOnly

func categorizerPrompt(title, summary string) string {
	return fmt.Sprintf(`Classify this bill into 1-5 policy categories.

Title: %s
Summary: %s

Return a JSON array sorted by confidence, each item:
{"name": "Housing", "confidence": 0.0-1.0, "description": "why it fits", "tags": ["short", "search", "keywords"]}`,
		title, summary)
}

const urgencySystem = "You assess how urgent and far-reaching U.S. legislation is. " + jsonOnly

func urgencyPrompt(title, summary string) string {
	return fmt.Sprintf(`Assess this bill.

Title: %s
Summary: %s

Return a JSON object:
{"urgency": "low|medium|high|critical",
 "impactLevel": "minimal|moderate|significant|transformative",
 "reasoning": "one or two sentences",
 "affectedPopulation": "who is affected",
 "timelineConcerns": ["deadlines or effective dates"]}`,
		title, summary)
}

const provisionsSystem = "You extract the key provisions from U.S. bill text. " + jsonOnly

func provisionsPrompt(text string, max int) string {
	return fmt.Sprintf(`Extract at most %d key provisions from this bill text.

%s

Return a JSON object:
{"provisions": [{"title": "short name", "description": "what it does", "impact": "who or what changes",
  "stakeholders": ["affected groups"], "section": "Sec. 3 (if known)", "importance": "low|medium|high"}],
 "themes": ["overarching themes"]}`,
		max, text)
}

const stakeholderSystem = "You analyze how different groups are likely to view U.S. legislation. Be balanced. " + jsonOnly

func stakeholderPrompt(title, summary string, provisions []string) string {
	return fmt.Sprintf(`Analyze stakeholder perspectives on this bill.

Title: %s
Summary: %s
Key provisions:
%s

Return a JSON object:
{"perspectives": [{"group": "name", "position": "strongly_support|support|neutral|oppose|strongly_oppose",
  "reasoning": "why", "benefits": [], "concerns": [], "actions": ["what the group is likely to do"]}],
 "consensusAreas": [], "controversialAreas": []}`,
		title, summary, bulletList(provisions))
}

const historicalSystem = "You are a legislative historian of the U.S. Congress. Only cite bills you are confident existed. " + jsonOnly

func historicalPrompt(title, summary string, provisions []string) string {
	return fmt.Sprintf(`Compare this bill with prior legislation.

Title: %s
Summary: %s
Key provisions:
%s

Return a JSON object:
{"similarBills": [{"title": "", "congress": "e.g. 117th", "outcome": "passed|failed|stalled|vetoed",
  "similarity": 0.0-1.0, "differences": []}],
 "trends": [], "recommendations": [], "historicalContext": "one paragraph"}`,
		title, summary, bulletList(provisions))
}

const impactSystem = "You are a nonpartisan policy analyst. " + jsonOnly

func impactPrompt(title, summary, text string) string {
	return fmt.Sprintf(`Assess the likely impact of this bill.

Title: %s
Summary: %s
Text excerpt:
%s

Return a JSON object with one paragraph each:
{"economic": "", "social": "", "political": ""}`,
		title, summary, text)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none extracted)"
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}
