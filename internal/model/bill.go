package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput is returned when an analysis request is missing required text
var ErrInvalidInput = errors.New("invalid analysis input")

// AnalysisRequest is the input to one aggregator run
type AnalysisRequest struct {
	BillID         string          `json:"billId,omitempty"`         // Optional cache key component (e.g., "118-hr-1234")
	Title          string          `json:"title"`                    // Bill title
	Summary        string          `json:"summary"`                  // CRS or sponsor summary
	Text           string          `json:"text"`                     // Full or excerpted bill text
	IntroducedDate *time.Time      `json:"introducedDate,omitempty"` // Used to anchor the news search window
	Options        AnalysisOptions `json:"options"`
}

// Validate checks the required string fields
func (r AnalysisRequest) Validate() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"title", r.Title},
		{"summary", r.Summary},
		{"text", r.Text},
	} {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, field.name)
		}
	}
	return nil
}
