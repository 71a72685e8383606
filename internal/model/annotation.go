// Package model defines the core domain types used throughout the application.
package model

import "time"

// EntityKind identifies which kind of external record an annotation is about.
type EntityKind string

// Supported entity kinds. The records themselves live outside this engine;
// the kind is forwarded verbatim to the generation endpoint.
const (
	KindTransaction EntityKind = "transaction"
	KindReceipt     EntityKind = "receipt"
	KindBudget      EntityKind = "budget"
)

// Valid reports whether k names a supported entity kind.
func (k EntityKind) Valid() bool {
	switch k {
	case KindTransaction, KindReceipt, KindBudget:
		return true
	default:
		return false
	}
}

// EntityKinds lists every supported kind, for CLI help and validation messages.
func EntityKinds() []EntityKind {
	return []EntityKind{KindTransaction, KindReceipt, KindBudget}
}

// Suggestion pairs the text a caller may replace with the text proposed by
// the model. Accepting it is the caller's decision; the engine only carries it.
type Suggestion struct {
	OriginalText  string
	SuggestedText string
}

// Annotation is one AI-generated note attached to one external record.
//
// ID is unique per generation attempt, not per entity: the live map is keyed
// by EntityID, so regenerating for the same entity replaces the slot with a
// fresh ID. Text grows monotonically while IsStreaming is true and is fixed
// once the attempt settles.
type Annotation struct {
	CreatedAt   time.Time
	Suggestion  *Suggestion
	ID          string
	EntityID    string
	Text        string
	EntityKind  EntityKind
	IsStreaming bool
	IsDeleting  bool
}

// Clone returns a copy safe to hand across ownership boundaries. The
// suggestion is duplicated so neither side can mutate the other's.
func (a Annotation) Clone() Annotation {
	if a.Suggestion != nil {
		s := *a.Suggestion
		a.Suggestion = &s
	}
	return a
}
