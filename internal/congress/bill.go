// Package congress fetches bill metadata, summaries and text from the
// Congress.gov v3 API.
package congress

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/legislens/internal/model"
)

// BillTypes are the Congress.gov bill type codes
var BillTypes = map[string]bool{
	"hr": true, "s": true,
	"hjres": true, "sjres": true,
	"hconres": true, "sconres": true,
	"hres": true, "sres": true,
}

// BillRef identifies a bill: congress, type and number
type BillRef struct {
	Congress int    `json:"congress"`
	Type     string `json:"type"` // lower-case code, e.g. "hr"
	Number   int    `json:"number"`
}

// ID is the cache-friendly form "118-hr-1234"
func (r BillRef) ID() string {
	return fmt.Sprintf("%d-%s-%d", r.Congress, r.Type, r.Number)
}

// Path is the API path form "118/hr/1234"
func (r BillRef) Path() string {
	return fmt.Sprintf("%d/%s/%d", r.Congress, r.Type, r.Number)
}

func (r BillRef) String() string { return r.ID() }

// Validate checks the ref fields
func (r BillRef) Validate() error {
	if r.Congress < 1 {
		return fmt.Errorf("invalid congress: %d", r.Congress)
	}
	if !BillTypes[r.Type] {
		return fmt.Errorf("unknown bill type: %q", r.Type)
	}
	if r.Number < 1 {
		return fmt.Errorf("invalid bill number: %d", r.Number)
	}
	return nil
}

var refPattern = regexp.MustCompile(`^(\d{1,3})[/\-\s]+([a-z.]+?)[/\-\s.]*(\d{1,5})$`)

// ParseBillRef accepts "118/hr/1234", "118-hr-1234" and "118 H.R. 1234"
func ParseBillRef(s string) (BillRef, error) {
	m := refPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return BillRef{}, fmt.Errorf("invalid bill reference %q (want congress/type/number, e.g. 118/hr/1234)", s)
	}
	congress, _ := strconv.Atoi(m[1])
	number, _ := strconv.Atoi(m[3])
	ref := BillRef{
		Congress: congress,
		Type:     strings.ReplaceAll(m[2], ".", ""),
		Number:   number,
	}
	if err := ref.Validate(); err != nil {
		return BillRef{}, err
	}
	return ref, nil
}

// TextFormat is one download of a text version
type TextFormat struct {
	Type string `json:"type"` // "Formatted Text", "PDF", "Formatted XML"
	URL  string `json:"url"`
}

// TextVersion is one published version of the bill text
type TextVersion struct {
	Type    string       `json:"type"` // e.g. "Introduced in House"
	Date    *time.Time   `json:"date,omitempty"`
	Formats []TextFormat `json:"formats"`
}

// Bill is the metadata needed to analyze a bill
type Bill struct {
	Ref            BillRef       `json:"ref"`
	Title          string        `json:"title"`
	IntroducedDate *time.Time    `json:"introducedDate,omitempty"`
	Sponsor        string        `json:"sponsor,omitempty"`
	PolicyArea     string        `json:"policyArea,omitempty"`
	LatestAction   string        `json:"latestAction,omitempty"`
	Summary        string        `json:"summary,omitempty"` // Latest CRS summary, tags stripped
	TextVersions   []TextVersion `json:"textVersions,omitempty"`
	Text           string        `json:"-"` // Filled by FetchText
}

// AnalysisRequest builds an aggregator request. Bills without a CRS summary
// fall back to the title so the request stays valid.
func (b *Bill) AnalysisRequest(opts model.AnalysisOptions) model.AnalysisRequest {
	summary := b.Summary
	if strings.TrimSpace(summary) == "" {
		summary = b.Title
	}
	return model.AnalysisRequest{
		BillID:         b.Ref.ID(),
		Title:          b.Title,
		Summary:        summary,
		Text:           b.Text,
		IntroducedDate: b.IntroducedDate,
		Options:        opts,
	}
}
