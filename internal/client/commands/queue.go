// Package commands implements the client's command batch queue: the single
// consumer of engine-issued CommandBatch values, applying them to session
// state and the visual layer with strict serialization.
//
// Ordering guarantees: batches apply in submission order, one at a time; a
// batch's commands apply in list order, except that RunInParallel groups run
// concurrently with each other while staying ordered internally; a visible
// command's effect completes before the next command in its sequence starts.
package commands

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/deepspire/internal/client/assets"
	"github.com/louisbranch/deepspire/internal/client/session"
	"github.com/louisbranch/deepspire/internal/protocol"
)

var (
	// ErrApplierRequired indicates a missing visual applier.
	ErrApplierRequired = errors.New("visual applier is required")
	// ErrSessionRequired indicates missing session state.
	ErrSessionRequired = errors.New("session state is required")
)

// Applier executes one decoded command against the renderable scene.
//
// Apply starts the visual effect and returns a channel that is closed when
// the effect has finished; it must not block. The queue decides which
// commands it awaits. Preload resolves assets ahead of a batch and may block.
type Applier interface {
	Apply(ctx context.Context, cmd protocol.Command) (<-chan struct{}, error)
	Preload(ctx context.Context, refs []protocol.AssetRef) error
}

// Queue is the strictly ordered, single-consumer batch queue.
type Queue struct {
	applier Applier
	session *session.State
	logf    func(string, ...any)
	tracer  trace.Tracer

	mu      sync.Mutex
	pending []submission
	wake    chan struct{}
}

type submission struct {
	batch protocol.CommandBatch
	done  chan struct{}
}

// Config carries queue dependencies.
type Config struct {
	// Applier executes visual effects. Required.
	Applier Applier
	// Session is the state the queue mutates while applying. Required.
	Session *session.State
	// Logf overrides the destination for skip/diagnostic logs.
	Logf func(string, ...any)
}

// New creates a queue. Run must be started before submitted batches apply.
func New(cfg Config) (*Queue, error) {
	if cfg.Applier == nil {
		return nil, ErrApplierRequired
	}
	if cfg.Session == nil {
		return nil, ErrSessionRequired
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Queue{
		applier: cfg.Applier,
		session: cfg.Session,
		logf:    logf,
		tracer:  otel.Tracer("deepspire/commands"),
		wake:    make(chan struct{}, 1),
	}, nil
}

// Submit enqueues a batch and returns a channel closed once every command in
// the batch, including nested parallel groups, has finished applying. Submit
// never rejects; an empty batch resolves immediately.
func (q *Queue) Submit(batch protocol.CommandBatch) <-chan struct{} {
	done := make(chan struct{})
	if batch.Empty() {
		close(done)
		return done
	}
	q.mu.Lock()
	q.pending = append(q.pending, submission{batch: batch, done: done})
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return done
}

// Barrier returns a channel closed once every batch submitted before the
// call has finished applying. Callers use it to observe state that lands
// only when a batch applies, such as the game id from a render.
func (q *Queue) Barrier() <-chan struct{} {
	done := make(chan struct{})
	q.mu.Lock()
	q.pending = append(q.pending, submission{done: done})
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return done
}

// Run consumes the queue until ctx is cancelled. At most one batch is
// mid-application at any instant; Run is the only consumer.
func (q *Queue) Run(ctx context.Context) error {
	for {
		sub, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-q.wake:
				continue
			}
		}
		// Barrier submissions carry no commands; they resolve in order.
		if sub.batch.Empty() {
			close(sub.done)
			continue
		}
		q.applyBatch(ctx, sub)
	}
}

func (q *Queue) pop() (submission, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return submission{}, false
	}
	sub := q.pending[0]
	q.pending = q.pending[1:]
	return sub, true
}

func (q *Queue) applyBatch(ctx context.Context, sub submission) {
	ctx, span := q.tracer.Start(ctx, "commands.ApplyBatch",
		trace.WithAttributes(attribute.Int("batch.commands", len(sub.batch.Commands))))
	defer span.End()
	defer close(sub.done)

	if refs := assets.Collect(sub.batch); len(refs) > 0 {
		if err := q.applier.Preload(ctx, refs); err != nil {
			q.logf("preload %d assets: %v", len(refs), err)
		}
	}
	q.applySequence(ctx, sub.batch)
}

// applySequence applies one ordered command list to completion.
func (q *Queue) applySequence(ctx context.Context, batch protocol.CommandBatch) {
	for _, cmd := range batch.Commands {
		if ctx.Err() != nil {
			return
		}
		q.applyCommand(ctx, cmd)
	}
}

// applyCommand applies one command. Errors never propagate past the command:
// the batch keeps going so a single bad command cannot stall the pipeline.
func (q *Queue) applyCommand(ctx context.Context, cmd protocol.Command) {
	switch v := cmd.(type) {
	case protocol.UnknownCommand:
		q.logf("unknown command tag %q: skipping", v.Tag)
		return
	case protocol.DebugLog:
		q.logf("engine: %s", v.Message)
		return
	case protocol.Delay:
		q.delay(ctx, time.Duration(v.DurationMillis)*time.Millisecond)
		return
	case protocol.RunInParallel:
		q.applyParallel(ctx, v)
		return
	}

	q.mutateSession(cmd)

	done, err := q.applier.Apply(ctx, cmd)
	if err != nil {
		q.logf("apply %T: %v", cmd, err)
		return
	}
	if !protocol.Visible(cmd) || done == nil {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// applyParallel runs each group as an independent ordered sequence and
// returns only when all groups have completed.
func (q *Queue) applyParallel(ctx context.Context, cmd protocol.RunInParallel) {
	g, ctx := errgroup.WithContext(ctx)
	for _, group := range cmd.Groups {
		g.Go(func() error {
			q.applySequence(ctx, group)
			return nil
		})
	}
	_ = g.Wait()
}

func (q *Queue) delay(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// mutateSession folds state-bearing commands into session state. The queue
// is the sole writer of these fields.
func (q *Queue) mutateSession(cmd protocol.Command) {
	switch v := cmd.(type) {
	case protocol.RenderGame:
		q.session.Update(func(s *session.Snapshot) {
			s.GameID = v.Game.GameID
			s.Priority = v.Game.Priority
			s.RaidActive = v.Game.RaidActive
			s.User = v.Game.User
			s.Opponent = v.Game.Opponent
		})
	case protocol.UpdatePlayerState:
		q.session.Update(func(s *session.Snapshot) {
			view := protocol.PlayerView{Mana: v.Mana, ActionPoints: v.ActionPoints, Score: v.Score}
			switch v.Player {
			case protocol.PlayerNameUser:
				view.ID = s.User.ID
				s.User = view
			case protocol.PlayerNameOpponent:
				view.ID = s.Opponent.ID
				s.Opponent = view
			}
		})
	case protocol.InitiateRaid:
		q.session.Update(func(s *session.Snapshot) {
			s.RaidActive = true
		})
	case protocol.EndRaid:
		q.session.Update(func(s *session.Snapshot) {
			s.RaidActive = false
		})
	case protocol.RenderInterface:
		q.session.Update(func(s *session.Snapshot) {
			s.Interface.PanelOpen = len(v.Node) > 0
		})
	}
}
