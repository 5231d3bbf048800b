package main

import "testing"

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this one is definitely too long", 10, "this on..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestFormatAuthors(t *testing.T) {
	if got := formatAuthors([]string{"Alice Smith", "Bob Jones"}); got != "Alice Smith, Bob Jones" {
		t.Errorf("formatAuthors = %q", got)
	}
	if got := formatAuthors(nil); got != "" {
		t.Errorf("formatAuthors(nil) = %q, want empty", got)
	}
}
