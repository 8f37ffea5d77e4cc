package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON returns the first balanced {...} or [...] substring of text.
// Models are told to answer with JSON only but often wrap it in prose or
// markdown fences, so the raw text is never unmarshalled directly.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	for start >= 0 {
		if end, ok := matchClose(text, start); ok {
			return text[start : end+1], nil
		}
		// Unbalanced opener: try the next one
		next := strings.IndexAny(text[start+1:], "{[")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", fmt.Errorf("%w: no JSON object or array found", ErrMalformedResponse)
}

// matchClose finds the index closing the bracket at start, skipping string literals
func matchClose(text string, start int) (int, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// DecodeJSON extracts the first JSON value from text and unmarshals it into v
func DecodeJSON(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
