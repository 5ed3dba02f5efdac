package storage

import "testing"

func TestTruncInterval(t *testing.T) {
	tests := []struct {
		bucket string
		want   string
	}{
		{"1 week", "week"},
		{"week", "week"},
		{"1 month", "month"},
		{"", "month"},
		{"fortnight", "month"},
	}
	for _, tt := range tests {
		if got := truncInterval(tt.bucket); got != tt.want {
			t.Errorf("truncInterval(%q) = %q, want %q", tt.bucket, got, tt.want)
		}
	}
}
