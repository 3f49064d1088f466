package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	jsonBlockPattern      = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	jsonObjectPattern     = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	jsonArrayBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	jsonArrayPattern      = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	trailingCommaPattern  = regexp.MustCompile(`,\s*([}\]])`)
)

var llmValidate = validator.New(validator.WithRequiredStructEnabled())

// Kinds of generation failure.
const (
	GenerationKindProvider = "provider" // the completion call itself failed
	GenerationKindParse    = "parse"    // the reply held no usable JSON
	GenerationKindSchema   = "schema"   // the JSON did not match the expected shape
)

// GenerationError is returned when an LLM reply cannot be turned into content.
type GenerationError struct {
	Operation string
	Kind      string
	Raw       string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed (%s): %v", e.Operation, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ExtractJSON pulls a JSON object out of an LLM reply, tolerating code fences,
// line comments and trailing commas.
func ExtractJSON(content string) string {
	raw := ""
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else if m := jsonObjectPattern.FindString(content); m != "" {
		raw = m
	}
	if raw == "" {
		return ""
	}
	return cleanJSON(raw)
}

// ExtractJSONArray is ExtractJSON for a top-level array.
func ExtractJSONArray(content string) string {
	if m := jsonArrayBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		return cleanJSON(m[1])
	}
	if m := jsonArrayPattern.FindString(content); m != "" {
		return cleanJSON(m)
	}
	return ""
}

func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment drops a // comment that is outside any string literal.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}

// decodeReply extracts, unmarshals and validates an LLM reply into out.
// key names the array wrapper the prompt asked for ("questions", "features");
// a bare top-level array is accepted as well.
func decodeReply[T any](operation, reply, key string) ([]T, error) {
	var items []T

	if obj := ExtractJSON(reply); obj != "" {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal([]byte(obj), &wrapper); err == nil {
			if raw, ok := wrapper[key]; ok {
				if err := json.Unmarshal(raw, &items); err != nil {
					return nil, &GenerationError{Operation: operation, Kind: GenerationKindParse, Raw: reply, Err: err}
				}
			}
		}
	}
	if items == nil {
		arr := ExtractJSONArray(reply)
		if arr == "" {
			return nil, &GenerationError{Operation: operation, Kind: GenerationKindParse, Raw: reply, Err: errors.New("no JSON found in reply")}
		}
		if err := json.Unmarshal([]byte(arr), &items); err != nil {
			return nil, &GenerationError{Operation: operation, Kind: GenerationKindParse, Raw: reply, Err: err}
		}
	}

	if len(items) == 0 {
		return nil, &GenerationError{Operation: operation, Kind: GenerationKindSchema, Raw: reply, Err: errors.New("reply contained no items")}
	}
	for i := range items {
		if err := llmValidate.Struct(items[i]); err != nil {
			return nil, &GenerationError{Operation: operation, Kind: GenerationKindSchema, Raw: reply, Err: fmt.Errorf("item %d: %w", i, err)}
		}
	}
	return items, nil
}
