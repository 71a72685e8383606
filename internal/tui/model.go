// Package tui is the interactive demo host for the annotation engine. It
// renders the live annotation map, exercises every engine command from the
// keyboard, and surfaces the undo toast the engine's Notifier contract asks
// for.
package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/osmia/marginalia/internal/engine"
	"github.com/osmia/marginalia/internal/model"
	"github.com/osmia/marginalia/internal/mutation"
)

// Entity is one demo record annotations can be generated for.
type Entity struct {
	Extra map[string]any
	Kind  model.EntityKind
	ID    string
	Label string
}

// DemoEntities returns the canned records the demo operates on.
func DemoEntities() []Entity {
	return []Entity{
		{Kind: model.KindTransaction, ID: "txn-4021", Label: "Transaction · Café Olimpico · $84.10",
			Extra: map[string]any{"merchant": "Café Olimpico", "amount": 84.10}},
		{Kind: model.KindTransaction, ID: "txn-4022", Label: "Transaction · Hydro Bill · $131.92",
			Extra: map[string]any{"merchant": "Hydro-Québec", "amount": 131.92}},
		{Kind: model.KindReceipt, ID: "rcpt-887", Label: "Receipt · Hardware store · 3 items",
			Extra: map[string]any{"items": 3}},
		{Kind: model.KindBudget, ID: "bud-groceries", Label: "Budget · Groceries · August",
			Extra: map[string]any{"category": "groceries"}},
	}
}

// toast is one transient notification on screen, counting down to its
// deadline.
type toast struct {
	deadline     time.Time
	notification engine.Notification
}

// Model holds the demo TUI state. Annotation state itself lives in the
// engine; the model only keeps cursor, toast, and subscription plumbing.
type Model struct {
	eng       *engine.AnnotationEngine
	recorder  *mutation.Recorder
	notifier  *Notifier
	changes   <-chan struct{}
	stopWatch func()
	toast     *toast
	status    string
	entities  []Entity
	keymap    KeyMap
	help      help.Model
	spinner   spinner.Model
	cursor    int
	width     int
	height    int
	quitting  bool
}

// NewModel creates the demo model around an engine. recorder may be nil when
// no sync state is tracked; notifier must be the one the engine was built
// with.
func NewModel(eng *engine.AnnotationEngine, recorder *mutation.Recorder, notifier *Notifier) Model {
	ch, stop := eng.Watch()
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = streamingStyle
	return Model{
		eng:       eng,
		recorder:  recorder,
		notifier:  notifier,
		changes:   ch,
		stopWatch: stop,
		entities:  DemoEntities(),
		keymap:    DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForChange(m.changes),
		waitForNotice(m.notifier),
		m.spinner.Tick,
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case storeChangedMsg:
		return m, waitForChange(m.changes)

	case noticeMsg:
		m.toast = &toast{
			notification: msg.notification,
			deadline:     time.Now().Add(msg.notification.Duration),
		}
		return m, tea.Batch(waitForNotice(m.notifier), tick())

	case tickMsg:
		if m.toast == nil {
			return m, nil
		}
		if time.Now().After(m.toast.deadline) {
			m.toast = nil
			return m, nil
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	km := m.keymap
	cur := m.entities[m.cursor]
	m.status = ""

	switch {
	case key.Matches(msg, km.Quit):
		m.quitting = true
		m.stopWatch()
		return m, tea.Quit

	case key.Matches(msg, km.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, km.Down):
		if m.cursor < len(m.entities)-1 {
			m.cursor++
		}

	case key.Matches(msg, km.Generate):
		if _, err := m.eng.Generate(cur.Kind, cur.ID, cur.Extra); err != nil {
			m.status = err.Error()
		}

	case key.Matches(msg, km.Cancel):
		m.eng.CancelActive()

	case key.Matches(msg, km.Clear):
		if err := m.eng.Clear(cur.ID); err != nil {
			m.status = declined(err)
		}

	case key.Matches(msg, km.Resolve):
		if err := m.eng.Resolve(cur.ID); err != nil {
			m.status = declined(err)
		}

	case key.Matches(msg, km.Undo):
		if m.toast != nil && m.toast.notification.Action != nil {
			m.toast.notification.Action()
			m.toast = nil
			break
		}
		if err := m.eng.Undo(cur.ID); err != nil {
			m.status = declined(err)
		}

	case key.Matches(msg, km.ClearError):
		m.eng.ClearError()

	case key.Matches(msg, km.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

// declined renders an engine-refused command as a short status line instead
// of an error screen.
func declined(err error) string {
	switch {
	case errors.Is(err, engine.ErrCannotUndo):
		return "nothing to undo"
	case errors.Is(err, engine.ErrNoAnnotation):
		return "no annotation for this entity"
	default:
		return err.Error()
	}
}
