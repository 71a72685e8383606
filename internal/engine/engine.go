// Package engine orchestrates streaming annotation generation, cooperative
// cancellation, and grace-period undo on top of the live annotation store.
//
// At most one generation stream is active at a time. Starting a new one
// revokes the previous one, and a revoked stream settles in place: whatever
// text it accumulated stays visible, it just stops growing. Removals are
// optimistic too; the removed annotation is held for a grace window during
// which Undo restores it untouched.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osmia/marginalia/internal/model"
	"github.com/osmia/marginalia/internal/store"
	"github.com/osmia/marginalia/internal/stream"
	"github.com/osmia/marginalia/internal/undo"
)

// errStaleStream signals inside a streaming loop that the live slot no longer
// belongs to this attempt. It is handled like a revocation.
var errStaleStream = errors.New("annotation slot taken over by a newer attempt")

const archiveTimeout = 5 * time.Second

// Config holds construction options for the engine. The zero value works:
// nil collaborators become no-ops and a zero grace window means the default.
type Config struct {
	// Logger receives debug-level lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger
	// Tracker observes the optimistic mutation around each generation.
	Tracker MutationTracker
	// Notifier surfaces the undo affordance after Clear.
	Notifier Notifier
	// Archive, when set, persists cleanly completed annotations.
	Archive Archive
	// OnUndoExpired fires after a held annotation's grace window lapses.
	OnUndoExpired undo.ExpireFunc
	// GraceWindow is how long a cleared annotation stays restorable.
	GraceWindow time.Duration
}

// AnnotationEngine owns the annotation lifecycle end to end. All methods are
// safe for concurrent use.
type AnnotationEngine struct {
	store    *store.Store
	ledger   *undo.Ledger
	client   stream.Client
	tracker  MutationTracker
	notifier Notifier
	archive  Archive
	logger   *slog.Logger

	flights coordinator

	baseCtx context.Context
	stop    context.CancelFunc

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// New creates an engine with default configuration.
func New(client stream.Client) (*AnnotationEngine, error) {
	return NewWithConfig(client, Config{})
}

// NewWithConfig creates an engine around the given stream client.
func NewWithConfig(client stream.Client, cfg Config) (*AnnotationEngine, error) {
	if client == nil {
		return nil, fmt.Errorf("stream client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracker == nil {
		cfg.Tracker = nopTracker{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}

	baseCtx, stop := context.WithCancel(context.Background())
	return &AnnotationEngine{
		store:    store.New(),
		ledger:   undo.NewLedger(cfg.GraceWindow, cfg.OnUndoExpired),
		client:   client,
		tracker:  cfg.Tracker,
		notifier: cfg.Notifier,
		archive:  cfg.Archive,
		logger:   cfg.Logger,
		baseCtx:  baseCtx,
		stop:     stop,
	}, nil
}

// Generate starts a new annotation stream for an entity, revoking any prior
// in-flight generation first. It returns as soon as the pending annotation is
// visible in the store; chunks and the terminal transition arrive
// asynchronously. The returned ID identifies this attempt's annotation.
//
// extra is opaque context forwarded verbatim to the generation endpoint.
func (e *AnnotationEngine) Generate(kind model.EntityKind, entityID string, extra map[string]any) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityKind, kind)
	}
	if entityID == "" {
		return "", fmt.Errorf("entity id must not be empty")
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", ErrClosed
	}
	ctx, streamID := e.flights.begin(e.baseCtx, entityID)

	// Revoke-then-install is one atomic step: a concurrent Generate for the
	// same entity cannot land its pending annotation after a later attempt's,
	// so the live slot always belongs to the newest flight.
	pending := model.Annotation{
		ID:          uuid.NewString(),
		EntityKind:  kind,
		EntityID:    entityID,
		IsStreaming: true,
		CreatedAt:   time.Now(),
	}
	e.store.Upsert(entityID, pending)
	e.tracker.StartMutation(MutationKey(entityID), MutationKindCreate, pending, nil)
	e.wg.Add(1)
	e.mu.Unlock()

	e.logger.Debug("annotation stream starting",
		"entity_kind", kind,
		"entity_id", entityID,
		"stream_id", streamID,
		"annotation_id", pending.ID)

	go e.runStream(ctx, streamID, pending, extra)
	return pending.ID, nil
}

// runStream consumes one generation attempt to its terminal state. It is the
// only writer for this attempt's annotation, and every write is guarded by
// the attempt's own ID so a revoked or superseded loop cannot clobber a newer
// annotation or resurrect a cleared entity.
func (e *AnnotationEngine) runStream(ctx context.Context, streamID string, pending model.Annotation, extra map[string]any) {
	defer e.wg.Done()

	key := MutationKey(pending.EntityID)
	req := stream.Request{
		EntityKind: pending.EntityKind,
		EntityID:   pending.EntityID,
		Context:    extra,
	}

	var acc strings.Builder
	err := e.client.Generate(ctx, req, func(text string) error {
		// A chunk that raced the revocation is dropped, not applied.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		acc.WriteString(text)
		next := pending
		next.Text = acc.String()
		if !e.store.UpsertIf(pending.EntityID, pending.ID, next) {
			return errStaleStream
		}
		return nil
	})

	final := pending
	final.Text = acc.String()
	final.IsStreaming = false

	// Whatever the outcome, the attempt leaves its streaming state in place,
	// keeping the text accumulated so far.
	settled := e.store.UpsertIf(pending.EntityID, pending.ID, final)
	e.flights.finish(streamID)

	switch {
	case err == nil:
		e.tracker.CompleteMutation(key)
		e.logger.Debug("annotation stream completed",
			"entity_id", pending.EntityID,
			"stream_id", streamID,
			"chars", len(final.Text))
		if settled {
			e.archiveSettled(final)
		}
	case errors.Is(err, context.Canceled) || errors.Is(err, errStaleStream):
		e.tracker.FailMutation(key, context.Canceled)
		e.logger.Debug("annotation stream cancelled",
			"entity_id", pending.EntityID,
			"stream_id", streamID,
			"chars", len(final.Text))
	default:
		e.tracker.FailMutation(key, err)
		e.store.SetError(err.Error())
		e.logger.Error("annotation stream failed",
			"entity_id", pending.EntityID,
			"stream_id", streamID,
			"error", err)
	}
}

func (e *AnnotationEngine) archiveSettled(ann model.Annotation) {
	if e.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := e.archive.SaveAnnotation(ctx, ann); err != nil {
		e.logger.Warn("failed to archive annotation",
			"entity_id", ann.EntityID,
			"error", err)
	}
}

// CancelActive revokes the in-flight generation, if any. The affected
// annotation settles asynchronously with the text accumulated so far. With no
// active stream this is a no-op.
func (e *AnnotationEngine) CancelActive() {
	if e.flights.cancelActive() {
		e.logger.Debug("active annotation stream revoked")
	}
}

// Clear removes the live annotation for an entity and holds it for the grace
// window, surfacing an undo affordance through the notifier.
func (e *AnnotationEngine) Clear(entityID string) error {
	if _, err := e.removeToLedger(entityID); err != nil {
		return err
	}
	e.notifier.Notify(Notification{
		Message:     fmt.Sprintf("Annotation for %s removed", entityID),
		ActionLabel: "Undo",
		Action:      func() { _ = e.Undo(entityID) },
		Duration:    e.ledger.Window(),
	})
	return nil
}

// Resolve removes the live annotation after its suggestion was applied. It
// holds the copy exactly like Clear but stays quiet: accepting a suggestion
// is a success path, not a destructive one.
func (e *AnnotationEngine) Resolve(entityID string) error {
	_, err := e.removeToLedger(entityID)
	return err
}

// removeToLedger moves the live annotation into the undo ledger. A streaming
// annotation is forced settled first: its flight is revoked so the loop
// cannot resurrect the entity being removed.
func (e *AnnotationEngine) removeToLedger(entityID string) (model.Annotation, error) {
	ann, ok := e.store.Remove(entityID)
	if !ok {
		return model.Annotation{}, fmt.Errorf("%w: %s", ErrNoAnnotation, entityID)
	}
	if ann.IsStreaming {
		e.flights.cancelFor(entityID)
		ann.IsStreaming = false
	}
	e.ledger.Hold(entityID, ann)
	e.logger.Debug("annotation held for undo",
		"entity_id", entityID,
		"grace_window", e.ledger.Window())
	return ann, nil
}

// Undo restores the most recently removed annotation for an entity. It fails
// with ErrCannotUndo once the grace window has lapsed or when nothing is held.
func (e *AnnotationEngine) Undo(entityID string) error {
	ann, ok := e.ledger.Take(entityID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCannotUndo, entityID)
	}
	e.store.Upsert(entityID, ann)
	e.logger.Debug("annotation restored", "entity_id", entityID)
	return nil
}

// SetDeleting flags the live annotation as having a removal pending
// confirmation. The flag is advisory for hosts; it does not change lifecycle.
func (e *AnnotationEngine) SetDeleting(entityID string, deleting bool) error {
	ok := e.store.Update(entityID, func(ann model.Annotation) model.Annotation {
		ann.IsDeleting = deleting
		return ann
	})
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoAnnotation, entityID)
	}
	return nil
}

// AttachSuggestion pairs a replacement proposal with the live annotation.
// Hosts surface it and call Resolve once the user accepts.
func (e *AnnotationEngine) AttachSuggestion(entityID, originalText, suggestedText string) error {
	ok := e.store.Update(entityID, func(ann model.Annotation) model.Annotation {
		ann.Suggestion = &model.Suggestion{
			OriginalText:  originalText,
			SuggestedText: suggestedText,
		}
		return ann
	})
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoAnnotation, entityID)
	}
	return nil
}

// ClearError dismisses the engine-level error message, if any.
func (e *AnnotationEngine) ClearError() {
	e.store.ClearError()
}

// Get returns the live annotation for an entity.
func (e *AnnotationEngine) Get(entityID string) (model.Annotation, bool) {
	return e.store.Get(entityID)
}

// Snapshot returns the live annotation map. Callers must treat it as
// read-only; it is never mutated after being handed out.
func (e *AnnotationEngine) Snapshot() map[string]model.Annotation {
	return e.store.Snapshot()
}

// Held returns the annotations currently restorable through Undo.
func (e *AnnotationEngine) Held() map[string]model.Annotation {
	return e.ledger.Held()
}

// UndoDeadline returns when the held annotation for an entity stops being
// restorable.
func (e *AnnotationEngine) UndoDeadline(entityID string) (time.Time, bool) {
	return e.ledger.Deadline(entityID)
}

// LastError returns the most recent generation failure message, if one is
// set and not yet dismissed.
func (e *AnnotationEngine) LastError() (string, bool) {
	return e.store.LastError()
}

// Version returns the store's change counter. See store.Store.Version.
func (e *AnnotationEngine) Version() uint64 {
	return e.store.Version()
}

// Watch registers a listener for store changes. See store.Store.Watch.
func (e *AnnotationEngine) Watch() (<-chan struct{}, func()) {
	return e.store.Watch()
}

// ActiveStreamID returns the identity of the in-flight generation, if any.
func (e *AnnotationEngine) ActiveStreamID() (string, bool) {
	return e.flights.activeStream()
}

// GraceWindow returns how long cleared annotations stay restorable.
func (e *AnnotationEngine) GraceWindow() time.Duration {
	return e.ledger.Window()
}

// Close revokes any in-flight generation, waits for its loop to settle, and
// releases the ledger's timers. Generate fails with ErrClosed afterwards;
// closing twice is harmless.
func (e *AnnotationEngine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.flights.cancelActive()
	e.stop()
	e.wg.Wait()
	e.ledger.Close()
	e.logger.Debug("annotation engine closed")
	return nil
}
