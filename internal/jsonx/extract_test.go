package jsonx

import (
	"strings"
	"testing"
)

func TestPureArray(t *testing.T) {
	queries, err := UnmarshalArray(`["green tea health benefits", "green tea antioxidants"]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(queries))
	}
	if queries[0] != "green tea health benefits" {
		t.Errorf("unexpected first query: %q", queries[0])
	}
}

func TestArrayWithProse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     int
	}{
		{"prefix", `Here are the queries: ["a", "b", "c"]`, 3},
		{"suffix", `["a", "b"] Those should cover it.`, 2},
		{"both", `Sure! ["a"] Let me know if you need more.`, 1},
		{"code fence", "```json\n[\"a\", \"b\"]\n```", 2},
		{"bare fence", "```\n[\"a\"]\n```", 1},
		{"brackets in prose after", `["x [1]", "y"] see [2] for details`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queries, err := UnmarshalArray(tt.response)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(queries) != tt.want {
				t.Errorf("expected %d items, got %d (%v)", tt.want, len(queries), queries)
			}
		})
	}
}

func TestNoArray(t *testing.T) {
	_, err := UnmarshalArray("I could not come up with any queries.")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to extract valid JSON") {
		t.Errorf("expected extraction error, got: %v", err)
	}
}

func TestMalformedArray(t *testing.T) {
	_, err := UnmarshalArray(`["unterminated`)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestExtractObject(t *testing.T) {
	jsonStr, err := ExtractObject(`The result is {"done": true} as requested.`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jsonStr != `{"done": true}` {
		t.Errorf("unexpected extraction: %q", jsonStr)
	}
}
