package research

import "testing"

func TestClampBounds(t *testing.T) {
	tests := []struct {
		name string
		in   Request
		want Request
	}{
		{
			name: "defaults for unset bounds",
			in:   Request{},
			want: Request{MaxIterations: 3, MaxSources: 20, MaxQueriesPerIteration: 3, MaxResultsPerQuery: 8},
		},
		{
			name: "excessive values clamped down",
			in:   Request{MaxIterations: 100, MaxSources: 9999, MaxQueriesPerIteration: 50, MaxResultsPerQuery: 1000},
			want: Request{MaxIterations: 8, MaxSources: 80, MaxQueriesPerIteration: 8, MaxResultsPerQuery: 25},
		},
		{
			name: "tiny values clamped up",
			in:   Request{MaxIterations: 1, MaxSources: 1, MaxQueriesPerIteration: 1, MaxResultsPerQuery: 1},
			want: Request{MaxIterations: 1, MaxSources: 5, MaxQueriesPerIteration: 1, MaxResultsPerQuery: 1},
		},
		{
			name: "negative values clamped up",
			in:   Request{MaxIterations: -4, MaxSources: -1, MaxQueriesPerIteration: -2, MaxResultsPerQuery: -9},
			want: Request{MaxIterations: 1, MaxSources: 5, MaxQueriesPerIteration: 1, MaxResultsPerQuery: 1},
		},
		{
			name: "in-range values untouched",
			in:   Request{MaxIterations: 4, MaxSources: 30, MaxQueriesPerIteration: 5, MaxResultsPerQuery: 10},
			want: Request{MaxIterations: 4, MaxSources: 30, MaxQueriesPerIteration: 5, MaxResultsPerQuery: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Clamp()
			if tt.in.MaxIterations != tt.want.MaxIterations {
				t.Errorf("MaxIterations = %d, want %d", tt.in.MaxIterations, tt.want.MaxIterations)
			}
			if tt.in.MaxSources != tt.want.MaxSources {
				t.Errorf("MaxSources = %d, want %d", tt.in.MaxSources, tt.want.MaxSources)
			}
			if tt.in.MaxQueriesPerIteration != tt.want.MaxQueriesPerIteration {
				t.Errorf("MaxQueriesPerIteration = %d, want %d", tt.in.MaxQueriesPerIteration, tt.want.MaxQueriesPerIteration)
			}
			if tt.in.MaxResultsPerQuery != tt.want.MaxResultsPerQuery {
				t.Errorf("MaxResultsPerQuery = %d, want %d", tt.in.MaxResultsPerQuery, tt.want.MaxResultsPerQuery)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	r := Request{Instructions: "   "}
	if err := r.Validate(); err != ErrEmptyInstructions {
		t.Errorf("expected ErrEmptyInstructions, got %v", err)
	}

	r.Instructions = "Research the health benefits of green tea"
	if err := r.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
