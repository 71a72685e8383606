package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContextPairs(t *testing.T) {
	tests := []struct {
		want    map[string]any
		name    string
		pairs   []string
		wantErr bool
	}{
		{name: "empty", pairs: nil, want: nil},
		{
			name:  "single pair",
			pairs: []string{"merchant=Café Olimpico"},
			want:  map[string]any{"merchant": "Café Olimpico"},
		},
		{
			name:  "value containing equals",
			pairs: []string{"query=a=b"},
			want:  map[string]any{"query": "a=b"},
		},
		{
			name:  "multiple pairs",
			pairs: []string{"merchant=IGA", "category=groceries"},
			want:  map[string]any{"merchant": "IGA", "category": "groceries"},
		},
		{name: "missing separator", pairs: []string{"merchant"}, wantErr: true},
		{name: "empty key", pairs: []string{"=value"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseContextPairs(tt.pairs)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "toolongfo…", truncate("toolongforten1", 10))
	assert.Equal(t, "héllo wo…", truncate("héllo worlds", 9), "truncation counts runes, not bytes")
}
