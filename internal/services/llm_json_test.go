package services

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"fenced", "Sure:\n```json\n{\"a\": 1}\n```\nthanks", `{"a": 1}`},
		{"bare", `prefix {"a": 1} suffix`, `{"a": 1}`},
		{"trailing comma", "{\"a\": [1, 2,],}", `{"a": [1, 2]}`},
		{"line comment", "{\n\"a\": 1 // one\n}", "{\n\"a\": 1\n}"},
		{"url kept", `{"u": "http://x"}`, `{"u": "http://x"}`},
		{"none", "no json here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.content); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	got := ExtractJSONArray("```\n[{\"a\": 1},]\n```")
	if got != `[{"a": 1}]` {
		t.Errorf("ExtractJSONArray() = %q", got)
	}
}

func TestDecodeReply(t *testing.T) {
	t.Run("wrapped", func(t *testing.T) {
		items, err := decodeReply[GeneratedQuestion](OpQuestions, `{"questions": [{"section": "S", "question": "Q?"}]}`, "questions")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 || items[0].Section != "S" {
			t.Errorf("items = %+v", items)
		}
	})

	t.Run("bare array", func(t *testing.T) {
		items, err := decodeReply[GeneratedFeature](OpFeatures, `[{"title": "T", "description": "D", "effort": "XL"}]`, "features")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 || items[0].Effort != "XL" {
			t.Errorf("items = %+v", items)
		}
	})

	failures := []struct {
		name  string
		reply string
		kind  string
	}{
		{"no json", "sorry", GenerationKindParse},
		{"broken json", `[{"title": }]`, GenerationKindParse},
		{"empty", `{"features": []}`, GenerationKindSchema},
		{"missing title", `[{"description": "D"}]`, GenerationKindSchema},
		{"bad enum", `[{"title": "T", "description": "D", "category": "Misc"}]`, GenerationKindSchema},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeReply[GeneratedFeature](OpFeatures, tt.reply, "features")
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("expected GenerationError, got %v", err)
			}
			if genErr.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", genErr.Kind, tt.kind)
			}
			if genErr.Raw != tt.reply {
				t.Errorf("raw reply not kept")
			}
		})
	}
}
