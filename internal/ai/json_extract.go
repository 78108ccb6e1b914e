// json_extract.go - Tolerant extraction of the JSON object from model output

package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyResponse = errors.New("empty response from model")
	ErrNoJSONObject  = errors.New("no JSON object found in model response")
	ErrInvalidJSON   = errors.New("model returned invalid JSON")
)

var codeFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// ExtractJSONObject pulls a JSON object out of model text.
// It tolerates markdown fences, leading/trailing prose and raw control
// characters inside string literals.
func ExtractJSONObject(text string) (map[string]interface{}, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, ErrEmptyResponse
	}

	if m := codeFencePattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	if obj, err := decodeObject(s); err == nil {
		return obj, nil
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, ErrNoJSONObject
	}
	candidate := s[start : end+1]

	obj, err := decodeObject(candidate)
	if err == nil {
		return obj, nil
	}

	obj, fixErr := decodeObject(fixJSONEscaping(candidate))
	if fixErr == nil {
		return obj, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
}

func decodeObject(s string) (map[string]interface{}, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrNoJSONObject
	}
	return obj, nil
}

// fixJSONEscaping fixes common JSON escaping issues from LLM responses
// Problem: models sometimes send literal newlines inside JSON strings instead of \n
// This breaks Go's JSON parser which requires proper escaping
func fixJSONEscaping(jsonStr string) string {
	var b strings.Builder
	b.Grow(len(jsonStr) + 16)

	inString := false
	escaped := false

	for _, ch := range jsonStr {
		if !inString {
			if ch == '"' {
				inString = true
			}
			b.WriteRune(ch)
			continue
		}

		if escaped {
			escaped = false
			if strings.ContainsRune(`"\/bfnrtu`, ch) {
				b.WriteRune(ch)
				continue
			}
			// Invalid escape such as "\ " - keep the backslash literally
			b.WriteRune('\\')
			if ch < 0x20 {
				writeControl(&b, ch)
			} else {
				b.WriteRune(ch)
			}
			continue
		}

		switch {
		case ch == '\\':
			escaped = true
			b.WriteRune(ch)
		case ch == '"':
			inString = false
			b.WriteRune(ch)
		case ch < 0x20:
			writeControl(&b, ch)
		default:
			b.WriteRune(ch)
		}
	}

	return b.String()
}

func writeControl(b *strings.Builder, ch rune) {
	switch ch {
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\t':
		b.WriteString(`\t`)
	case '\f':
		b.WriteString(`\f`)
	case '\b':
		b.WriteString(`\b`)
	default:
		fmt.Fprintf(b, `\u%04x`, ch)
	}
}
