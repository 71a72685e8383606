package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const tickInterval = 250 * time.Millisecond

// waitForChange blocks on the store's watch channel and converts the next
// signal into a message. Update re-arms it after every delivery.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

// waitForNotice blocks on the notifier and converts the next notification
// into a toast message.
func waitForNotice(n *Notifier) tea.Cmd {
	return func() tea.Msg {
		notice, ok := <-n.ch
		if !ok {
			return nil
		}
		return noticeMsg{notification: notice}
	}
}

// tick schedules the next toast countdown update.
func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
