package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityKindValid(t *testing.T) {
	tests := []struct {
		name string
		kind EntityKind
		want bool
	}{
		{name: "transaction", kind: KindTransaction, want: true},
		{name: "receipt", kind: KindReceipt, want: true},
		{name: "budget", kind: KindBudget, want: true},
		{name: "empty", kind: EntityKind(""), want: false},
		{name: "unknown", kind: EntityKind("invoice"), want: false},
		{name: "wrong case", kind: EntityKind("Transaction"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Valid())
		})
	}
}

func TestEntityKindsAllValid(t *testing.T) {
	kinds := EntityKinds()
	assert.Len(t, kinds, 3)
	for _, k := range kinds {
		assert.True(t, k.Valid(), "kind %q should be valid", k)
	}
}

func TestAnnotationClone(t *testing.T) {
	orig := Annotation{
		ID:         "ann-1",
		EntityKind: KindTransaction,
		EntityID:   "txn-1",
		Text:       "Looks like a duplicate charge.",
		Suggestion: &Suggestion{
			OriginalText:  "Coffee",
			SuggestedText: "Coffee (duplicate?)",
		},
	}

	clone := orig.Clone()
	assert.Equal(t, orig.Text, clone.Text)
	assert.Equal(t, orig.Suggestion.SuggestedText, clone.Suggestion.SuggestedText)

	clone.Suggestion.SuggestedText = "changed"
	assert.Equal(t, "Coffee (duplicate?)", orig.Suggestion.SuggestedText,
		"mutating the clone's suggestion should not affect the original")
}

func TestAnnotationCloneNilSuggestion(t *testing.T) {
	orig := Annotation{ID: "ann-2", EntityKind: KindBudget, EntityID: "bud-1"}
	clone := orig.Clone()
	assert.Nil(t, clone.Suggestion)
	assert.Equal(t, orig, clone)
}
