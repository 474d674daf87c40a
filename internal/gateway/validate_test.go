package gateway

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"inline fence", "```{\"a\":1}```", `{"a":1}`},
		{"surrounding space", "  \n```json\n{}\n```  \n", `{}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripCodeFence(tc.in); got != tc.want {
				t.Fatalf("stripCodeFence(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParsePlanning(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    PlanningResult
		wantErr bool
	}{
		{
			name: "complete",
			raw:  `{"themes":["t"],"actionItems":["a1","a2"],"opportunities":[],"summary":"s"}`,
			want: PlanningResult{Themes: []string{"t"}, ActionItems: []string{"a1", "a2"}, Opportunities: []string{}, Summary: "s"},
		},
		{
			name: "fenced",
			raw:  "```json\n{\"themes\":[],\"actionItems\":[],\"opportunities\":[\"o\"],\"summary\":\"\"}\n```",
			want: PlanningResult{Themes: []string{}, ActionItems: []string{}, Opportunities: []string{"o"}, Summary: ""},
		},
		{name: "missing summary", raw: `{"themes":[],"actionItems":[],"opportunities":[]}`, wantErr: true},
		{name: "null key", raw: `{"themes":null,"actionItems":[],"opportunities":[],"summary":"s"}`, wantErr: true},
		{name: "wrong type", raw: `{"themes":"x","actionItems":[],"opportunities":[],"summary":"s"}`, wantErr: true},
		{name: "not json", raw: `Here is your plan`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePlanning(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("err=%v, want ErrMalformed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseBrainstorm(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []BrainstormIdea
		wantErr bool
	}{
		{
			name: "array normalizes complexity",
			raw:  `[{"concept":"A","reasoning":"r","complexity":"low"},{"concept":"B","reasoning":"r","complexity":"HIGH"},{"concept":"C","reasoning":"r","complexity":"extreme"}]`,
			want: []BrainstormIdea{
				{Concept: "A", Reasoning: "r", Complexity: ComplexityLow},
				{Concept: "B", Reasoning: "r", Complexity: ComplexityHigh},
				{Concept: "C", Reasoning: "r", Complexity: ComplexityMedium},
			},
		},
		{
			name: "wrapped object",
			raw:  `{"ideas":[{"concept":"A","reasoning":"r","complexity":"Medium"}]}`,
			want: []BrainstormIdea{{Concept: "A", Reasoning: "r", Complexity: ComplexityMedium}},
		},
		{
			name: "drops incomplete items",
			raw:  `[{"concept":"","reasoning":"r"},{"concept":"B","reasoning":"r2"}]`,
			want: []BrainstormIdea{{Concept: "B", Reasoning: "r2", Complexity: ComplexityMedium}},
		},
		{name: "empty array", raw: `[]`, wantErr: true},
		{name: "object without list", raw: `{"foo":[]}`, wantErr: true},
		{name: "garbage", raw: `nope`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseBrainstorm(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("err=%v, want ErrMalformed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseReview(t *testing.T) {
	if _, err := ParseReview("  \n "); !errors.Is(err, ErrMalformed) {
		t.Fatalf("blank review err=%v", err)
	}
	got, err := ParseReview("  This week...  ")
	if err != nil || got != "This week..." {
		t.Fatalf("got=%q err=%v", got, err)
	}
}
