// Package actions implements the client's action dispatcher: the gate
// between user intent and the rules engine.
//
// An accepted action moves through one lifecycle at a time: optimistic
// update first, then the engine round trip, then submission of the
// authoritative batch. The in-flight slot is released once the authoritative
// (or fallback) batch has been submitted to the command queue, not once it
// finishes applying, so further actions can queue while visuals animate.
package actions

import (
	"context"
	"errors"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/deepspire/internal/client/assets"
	"github.com/louisbranch/deepspire/internal/client/session"
	"github.com/louisbranch/deepspire/internal/protocol"
)

var (
	// ErrNotPermitted indicates HandleAction was called for an action the
	// gate currently forbids. Callers must check CanExecute first.
	ErrNotPermitted = errors.New("action is not currently permitted")
	// ErrRoomTargetRequired indicates a room card was played with no target.
	ErrRoomTargetRequired = errors.New("room target is required to play this card")
	// ErrEngineUnavailable indicates both the engine and the offline
	// fallback failed; the action was abandoned.
	ErrEngineUnavailable = errors.New("rules engine is unavailable")
	// ErrQueueRequired indicates a missing command queue.
	ErrQueueRequired = errors.New("command queue is required")
	// ErrSessionRequired indicates missing session state.
	ErrSessionRequired = errors.New("session state is required")
	// ErrOfflineEngineRequired indicates a missing offline engine.
	ErrOfflineEngineRequired = errors.New("offline engine is required")
)

// Engine is the request/response half of the rules engine contract,
// implemented by both the remote client and the in-process offline engine.
type Engine interface {
	PerformAction(ctx context.Context, gameID protocol.GameID, playerID protocol.PlayerID, action protocol.GameAction) (protocol.CommandBatch, error)
}

// BatchSink accepts command batches for ordered application.
type BatchSink interface {
	Submit(batch protocol.CommandBatch) <-chan struct{}
}

// Dispatcher gates, queues, and resolves user actions.
type Dispatcher struct {
	queue   BatchSink
	engine  Engine // nil when the session can only run offline
	offline Engine
	session *session.State
	assets  *assets.Manifest
	logf    func(string, ...any)
	tracer  trace.Tracer

	mu      sync.Mutex
	pending []pendingAction
	wake    chan struct{}
}

type pendingAction struct {
	action   protocol.GameAction
	released chan struct{}
}

// Config carries dispatcher dependencies.
type Config struct {
	// Queue receives optimistic and authoritative batches. Required.
	Queue BatchSink
	// Engine is the remote rules engine. Optional; when nil every action
	// resolves against the offline engine.
	Engine Engine
	// Offline is the in-process fallback engine. Required.
	Offline Engine
	// Session is the state the gate reads. Required.
	Session *session.State
	// Assets supplies sounds and effects for optimistic updates. Defaults
	// to the embedded manifest.
	Assets *assets.Manifest
	// Logf overrides the destination for warnings.
	Logf func(string, ...any)
}

// New creates a dispatcher. Run must be started before actions resolve.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Queue == nil {
		return nil, ErrQueueRequired
	}
	if cfg.Offline == nil {
		return nil, ErrOfflineEngineRequired
	}
	if cfg.Session == nil {
		return nil, ErrSessionRequired
	}
	manifest := cfg.Assets
	if manifest == nil {
		manifest = assets.Default()
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Dispatcher{
		queue:   cfg.Queue,
		engine:  cfg.Engine,
		offline: cfg.Offline,
		session: cfg.Session,
		assets:  manifest,
		logf:    logf,
		tracer:  otel.Tracer("deepspire/actions"),
		wake:    make(chan struct{}, 1),
	}, nil
}

// CanExecute reports whether an action of this kind is currently permitted.
// It is a pure function of the observed session snapshot.
func (d *Dispatcher) CanExecute(kind protocol.ActionKind) bool {
	return canExecute(kind, d.session.Snapshot())
}

func canExecute(kind protocol.ActionKind, snap session.Snapshot) bool {
	switch kind {
	case protocol.KindFetchPanel, protocol.KindCreateNewGame, protocol.KindSyncAction:
		return true
	case protocol.KindStandardAction:
		// A standard action already encodes its own legality; only an
		// in-progress drag blocks it.
		return !snap.Interface.Dragging
	case protocol.KindDrawCard, protocol.KindPlayCard, protocol.KindGainMana,
		protocol.KindLevelUpRoom, protocol.KindInitiateRaid:
		ui := snap.Interface
		if ui.Dragging || ui.PanelOpen || ui.OverlayOpen {
			return false
		}
		if snap.RaidActive {
			return false
		}
		return snap.User.ActionPoints > 0
	default:
		return false
	}
}

// HandleAction accepts an action for dispatch. The returned channel closes
// when the action's in-flight slot is released. Submitting an action the
// gate forbids is a contract violation: the caller should have checked
// CanExecute first.
func (d *Dispatcher) HandleAction(ctx context.Context, action protocol.GameAction) (<-chan struct{}, error) {
	kind := protocol.KindOf(action)
	if !d.CanExecute(kind) {
		return nil, ErrNotPermitted
	}
	if err := validate(action); err != nil {
		return nil, err
	}
	released := make(chan struct{})
	d.mu.Lock()
	d.pending = append(d.pending, pendingAction{action: action, released: released})
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
	return released, nil
}

// validate checks local preconditions that must abort the action before any
// optimistic effect or network call.
func validate(action protocol.GameAction) error {
	if play, ok := action.(protocol.PlayCard); ok {
		if play.Kind == protocol.CardKindRoom && play.Target == nil {
			return ErrRoomTargetRequired
		}
	}
	return nil
}

// Run resolves queued actions until ctx is cancelled. At most one action is
// mid-dispatch at any instant; Run is the only consumer.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		act, ok := d.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-d.wake:
				continue
			}
		}
		d.dispatch(ctx, act)
	}
}

func (d *Dispatcher) pop() (pendingAction, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return pendingAction{}, false
	}
	act := d.pending[0]
	d.pending = d.pending[1:]
	return act, true
}

// dispatch runs one action lifecycle: optimistic update, round trip,
// authoritative submission. The released channel closes on return.
func (d *Dispatcher) dispatch(ctx context.Context, act pendingAction) {
	kind := protocol.KindOf(act.action)
	ctx, span := d.tracer.Start(ctx, "actions.Dispatch",
		trace.WithAttributes(attribute.String("action.kind", string(kind))))
	defer span.End()
	defer close(act.released)

	snap := d.session.Snapshot()

	if optimistic := d.optimisticUpdate(act.action, snap); !optimistic.Empty() {
		d.queue.Submit(optimistic)
	}

	// A pure client-side standard action with no server payload is final
	// once its pre-approved update is submitted.
	if standard, ok := act.action.(protocol.StandardAction); ok && len(standard.Payload) == 0 {
		return
	}

	batch, err := d.perform(ctx, snap, act.action)
	if err != nil {
		d.logf("action %s abandoned: %v", kind, err)
		return
	}
	d.queue.Submit(batch)
}

// perform runs the engine round trip, falling back to the offline engine
// exactly once on transport failure.
func (d *Dispatcher) perform(ctx context.Context, snap session.Snapshot, action protocol.GameAction) (protocol.CommandBatch, error) {
	engine := d.engine
	if snap.Offline || engine == nil {
		engine = d.offline
	}
	batch, err := engine.PerformAction(ctx, snap.GameID, snap.PlayerID, action)
	if err == nil {
		return batch, nil
	}
	if engine == d.offline {
		return protocol.CommandBatch{}, errors.Join(ErrEngineUnavailable, err)
	}
	d.logf("engine unreachable, retrying offline: %v", err)
	batch, fallbackErr := d.offline.PerformAction(ctx, snap.GameID, snap.PlayerID, action)
	if fallbackErr != nil {
		return protocol.CommandBatch{}, errors.Join(ErrEngineUnavailable, err, fallbackErr)
	}
	return batch, nil
}
