package devserver

import (
	"fmt"
	"strings"

	"github.com/osmia/marginalia/internal/model"
)

// Script returns the canned annotation for an entity, pre-split into chunks
// the way a model streams tokens. Output is deterministic for a given input,
// and the chunks concatenate back to the full text byte for byte.
func Script(kind model.EntityKind, entityID string, extra map[string]any) []string {
	var text string
	switch kind {
	case model.KindTransaction:
		text = fmt.Sprintf(
			"This charge at %s is 38%% higher than your usual amount there. "+
				"Most of the difference is a single catering line item worth a quick look.",
			hint(extra, "merchant", "this merchant"))
	case model.KindReceipt:
		text = fmt.Sprintf(
			"Receipt %s itemizes to €48.20 and matches the card charge exactly. "+
				"The warranty on line 3 expires in 90 days; consider filing it.",
			entityID)
	case model.KindBudget:
		text = fmt.Sprintf(
			"The %s budget is tracking 12%% over its monthly median. "+
				"Two subscriptions renewed early; the rest looks seasonal.",
			hint(extra, "category", "groceries"))
	default:
		text = "No annotation is available for this entity."
	}
	return chunkWords(text)
}

func hint(extra map[string]any, key, fallback string) string {
	if extra != nil {
		if v, ok := extra[key].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}

// chunkWords splits text into word-sized chunks, keeping separators so the
// concatenation reproduces the text exactly.
func chunkWords(text string) []string {
	return strings.SplitAfter(text, " ")
}
