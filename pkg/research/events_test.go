package research

import (
	"strings"
	"testing"
)

func TestEventData(t *testing.T) {
	src := Source{URL: "https://example.com/a", Title: "A", Summary: "s", Iteration: 1, Query: "q"}

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"status is plain text", statusEvent("Iteration 1"), "Iteration 1"},
		{"content is plain text", contentEvent("# Report"), "# Report"},
		{"error is plain text", errorEvent("boom"), "boom"},
		{"done is empty", doneEvent(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Data(); got != tt.want {
				t.Errorf("Data() = %q, want %q", got, tt.want)
			}
		})
	}

	data := sourceEvent(src).Data()
	if !strings.Contains(data, `"url":"https://example.com/a"`) {
		t.Errorf("source event payload missing url: %q", data)
	}

	if got := sourcesEvent(nil).Data(); got != "[]" {
		t.Errorf("empty sources event = %q, want []", got)
	}
	data = sourcesEvent([]Citation{{Title: "A", URL: "https://example.com/a"}}).Data()
	if !strings.Contains(data, `"title":"A"`) {
		t.Errorf("sources event payload missing citation: %q", data)
	}
}
