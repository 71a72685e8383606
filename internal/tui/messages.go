package tui

import (
	"time"

	"github.com/osmia/marginalia/internal/engine"
)

// storeChangedMsg signals that the annotation store changed and the view
// should re-read it. The signal is coalesced; payloads are re-read, not
// carried.
type storeChangedMsg struct{}

// noticeMsg delivers an engine notification to the toast line.
type noticeMsg struct {
	notification engine.Notification
}

// tickMsg drives the toast countdown.
type tickMsg time.Time
