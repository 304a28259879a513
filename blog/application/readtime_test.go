package application

import (
	"strings"
	"testing"
)

func TestEstimateReadTime(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", "1 min read"},
		{"short", "a few words here", "1 min read"},
		{"exactly one minute", strings.Repeat("word ", 200), "1 min read"},
		{"just over one minute", strings.Repeat("word ", 201), "2 min read"},
		{"long article", strings.Repeat("word ", 1000), "5 min read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateReadTime(tt.content); got != tt.want {
				t.Errorf("EstimateReadTime = %q, want %q", got, tt.want)
			}
		})
	}
}
