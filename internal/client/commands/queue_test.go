package commands

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/deepspire/internal/client/session"
	"github.com/louisbranch/deepspire/internal/protocol"
)

type fakeApplier struct {
	mu       sync.Mutex
	applied  []protocol.Command
	preloads [][]protocol.AssetRef
	active   int
	peak     int
	complete func(protocol.Command) <-chan struct{}
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (f *fakeApplier) Apply(ctx context.Context, cmd protocol.Command) (<-chan struct{}, error) {
	f.mu.Lock()
	f.applied = append(f.applied, cmd)
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	complete := f.complete
	f.mu.Unlock()

	var done <-chan struct{}
	if complete != nil {
		done = complete(cmd)
	} else {
		done = closedChan()
	}

	out := make(chan struct{})
	finish := func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
		close(out)
	}
	// An already-finished effect settles its accounting before Apply
	// returns, so peak tracks only effects still running when the next
	// command starts.
	select {
	case <-done:
		finish()
	default:
		go func() {
			<-done
			finish()
		}()
	}
	return out, nil
}

func (f *fakeApplier) Preload(ctx context.Context, refs []protocol.AssetRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preloads = append(f.preloads, refs)
	return nil
}

func (f *fakeApplier) commands(t *testing.T) []protocol.Command {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Command, len(f.applied))
	copy(out, f.applied)
	return out
}

func startQueue(t *testing.T, applier Applier, sess *session.State) *Queue {
	t.Helper()
	queue, err := New(Config{Applier: applier, Session: sess, Logf: t.Logf})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = queue.Run(ctx) }()
	return queue
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch completion")
	}
}

func TestSubmitAppliesBatchesInFIFOOrder(t *testing.T) {
	applier := &fakeApplier{}
	sess := session.New("p1", false)
	queue := startQueue(t, applier, sess)

	batches := []protocol.CommandBatch{
		{Commands: []protocol.Command{protocol.DisplayGameMessage{Message: protocol.MessageDawn}}},
		{Commands: []protocol.Command{
			protocol.PlaySound{Sound: "a"},
			protocol.DisplayGameMessage{Message: protocol.MessageDusk},
		}},
		{Commands: []protocol.Command{protocol.DisplayGameMessage{Message: protocol.MessageVictory}}},
	}
	var dones []<-chan struct{}
	for _, batch := range batches {
		dones = append(dones, queue.Submit(batch))
	}
	for _, done := range dones {
		waitDone(t, done)
	}

	got := applier.commands(t)
	want := []protocol.Command{
		protocol.DisplayGameMessage{Message: protocol.MessageDawn},
		protocol.PlaySound{Sound: protocol.AssetRef("a")},
		protocol.DisplayGameMessage{Message: protocol.MessageDusk},
		protocol.DisplayGameMessage{Message: protocol.MessageVictory},
	}
	if len(got) != len(want) {
		t.Fatalf("applied %d commands, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("applied[%d] = %#v, want %#v", i, got[i], want[i])
		}
	}
	if applier.peak > 1 {
		t.Fatalf("peak concurrent applies = %d, want 1", applier.peak)
	}
}

func TestBarrierResolvesAfterEarlierBatchesApply(t *testing.T) {
	release := make(chan struct{})
	applier := &fakeApplier{complete: func(protocol.Command) <-chan struct{} {
		return release
	}}
	queue := startQueue(t, applier, session.New("p1", false))

	queue.Submit(protocol.CommandBatch{Commands: []protocol.Command{
		protocol.DisplayGameMessage{Message: protocol.MessageDawn},
	}})
	barrier := queue.Barrier()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-barrier:
		t.Fatal("barrier resolved while the earlier batch was still applying")
	default:
	}

	close(release)
	waitDone(t, barrier)
}

func TestEmptyBatchResolvesImmediately(t *testing.T) {
	applier := &fakeApplier{}
	queue, err := New(Config{Applier: applier, Session: session.New("p1", false), Logf: t.Logf})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	// Run is deliberately not started: an empty batch must not need it.
	select {
	case <-queue.Submit(protocol.CommandBatch{}):
	default:
		t.Fatal("empty batch should resolve immediately")
	}
}

func TestVisibleCommandBlocksSequenceUntilComplete(t *testing.T) {
	release := make(chan struct{})
	applier := &fakeApplier{complete: func(cmd protocol.Command) <-chan struct{} {
		if msg, ok := cmd.(protocol.DisplayGameMessage); ok && msg.Message == protocol.MessageDawn {
			return release
		}
		return closedChan()
	}}
	queue := startQueue(t, applier, session.New("p1", false))

	done := queue.Submit(protocol.CommandBatch{Commands: []protocol.Command{
		protocol.DisplayGameMessage{Message: protocol.MessageDawn},
		protocol.PlaySound{Sound: "after"},
	}})

	time.Sleep(20 * time.Millisecond)
	if got := applier.commands(t); len(got) != 1 {
		t.Fatalf("applied %d commands while first is incomplete, want 1", len(got))
	}

	close(release)
	waitDone(t, done)
	if got := applier.commands(t); len(got) != 2 {
		t.Fatalf("applied %d commands after completion, want 2", len(got))
	}
}

func TestRunInParallelJoinsAllGroups(t *testing.T) {
	release := make(chan struct{})
	applier := &fakeApplier{complete: func(cmd protocol.Command) <-chan struct{} {
		if msg, ok := cmd.(protocol.DisplayGameMessage); ok && msg.Message == protocol.MessageDawn {
			return release
		}
		return closedChan()
	}}
	queue := startQueue(t, applier, session.New("p1", false))

	done := queue.Submit(protocol.CommandBatch{Commands: []protocol.Command{
		protocol.RunInParallel{Groups: []protocol.CommandBatch{
			{Commands: []protocol.Command{
				protocol.DisplayGameMessage{Message: protocol.MessageDawn},
				protocol.PlaySound{Sound: "group-a-second"},
			}},
			{Commands: []protocol.Command{
				protocol.DisplayGameMessage{Message: protocol.MessageDusk},
			}},
		}},
		protocol.PlaySound{Sound: "after-join"},
	}})

	// Group B can finish while group A is held open; the outer sequence
	// must not advance past the join.
	time.Sleep(20 * time.Millisecond)
	for _, cmd := range applier.commands(t) {
		if sound, ok := cmd.(protocol.PlaySound); ok && sound.Sound == "after-join" {
			t.Fatal("outer sequence advanced before all parallel groups completed")
		}
		if sound, ok := cmd.(protocol.PlaySound); ok && sound.Sound == "group-a-second" {
			t.Fatal("group A advanced past its incomplete command")
		}
	}
	select {
	case <-done:
		t.Fatal("batch completed before parallel join")
	default:
	}

	close(release)
	waitDone(t, done)

	got := applier.commands(t)
	if len(got) != 4 {
		t.Fatalf("applied %d commands, want 4", len(got))
	}
	if last, ok := got[3].(protocol.PlaySound); !ok || last.Sound != "after-join" {
		t.Fatalf("last command = %#v, want after-join sound", got[3])
	}
}

func TestUnknownCommandIsSkippedAndBatchContinues(t *testing.T) {
	applier := &fakeApplier{}
	queue := startQueue(t, applier, session.New("p1", false))

	done := queue.Submit(protocol.CommandBatch{Commands: []protocol.Command{
		protocol.UnknownCommand{Tag: "future_command"},
		protocol.PlaySound{Sound: "still-applies"},
	}})
	waitDone(t, done)

	got := applier.commands(t)
	if len(got) != 1 {
		t.Fatalf("applied %d commands, want 1", len(got))
	}
	if sound, ok := got[0].(protocol.PlaySound); !ok || sound.Sound != "still-applies" {
		t.Fatalf("applied command = %#v", got[0])
	}
}

func TestPreloadRunsBeforeBatchCommands(t *testing.T) {
	applier := &fakeApplier{}
	queue := startQueue(t, applier, session.New("p1", false))

	done := queue.Submit(protocol.CommandBatch{Commands: []protocol.Command{
		protocol.PlaySound{Sound: "audio/one"},
		protocol.SetMusic{Track: "audio/two"},
	}})
	waitDone(t, done)

	applier.mu.Lock()
	defer applier.mu.Unlock()
	if len(applier.preloads) != 1 {
		t.Fatalf("preload calls = %d, want 1", len(applier.preloads))
	}
	if len(applier.preloads[0]) != 2 {
		t.Fatalf("preloaded refs = %v, want 2 refs", applier.preloads[0])
	}
}

func TestSessionMutationsFromCommands(t *testing.T) {
	applier := &fakeApplier{}
	sess := session.New("p1", false)
	queue := startQueue(t, applier, sess)

	render := protocol.RenderGame{Game: protocol.GameView{
		GameID:   "game-7",
		User:     protocol.PlayerView{ID: "p1", Mana: 5, ActionPoints: 3},
		Opponent: protocol.PlayerView{ID: "p2", Mana: 4, ActionPoints: 0},
		Priority: protocol.PlayerNameUser,
	}}
	waitDone(t, queue.Submit(protocol.CommandBatch{Commands: []protocol.Command{render}}))

	snap := sess.Snapshot()
	if snap.GameID != "game-7" || snap.Priority != protocol.PlayerNameUser {
		t.Fatalf("snapshot after render = %+v", snap)
	}
	if snap.User.Mana != 5 || snap.User.ActionPoints != 3 {
		t.Fatalf("user view after render = %+v", snap.User)
	}

	waitDone(t, queue.Submit(protocol.CommandBatch{Commands: []protocol.Command{
		protocol.InitiateRaid{Room: protocol.RoomVault},
	}}))
	if !sess.Snapshot().RaidActive {
		t.Fatal("raid should be active after InitiateRaid")
	}

	waitDone(t, queue.Submit(protocol.CommandBatch{Commands: []protocol.Command{
		protocol.EndRaid{Room: protocol.RoomVault},
	}}))
	if sess.Snapshot().RaidActive {
		t.Fatal("raid should be inactive after EndRaid")
	}
}

func TestUpdatePlayerStateIsIdempotent(t *testing.T) {
	applier := &fakeApplier{}
	sess := session.New("p1", false)
	queue := startQueue(t, applier, sess)

	update := protocol.CommandBatch{Commands: []protocol.Command{
		protocol.UpdatePlayerState{Player: protocol.PlayerNameUser, Mana: 6, ActionPoints: 2, Score: 1},
	}}
	waitDone(t, queue.Submit(update))
	waitDone(t, queue.Submit(update))

	snap := sess.Snapshot()
	if snap.User.Mana != 6 || snap.User.ActionPoints != 2 || snap.User.Score != 1 {
		t.Fatalf("user state after duplicate update = %+v", snap.User)
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	if _, err := New(Config{Session: session.New("p1", false)}); err != ErrApplierRequired {
		t.Fatalf("missing applier error = %v, want %v", err, ErrApplierRequired)
	}
	if _, err := New(Config{Applier: &fakeApplier{}}); err != ErrSessionRequired {
		t.Fatalf("missing session error = %v, want %v", err, ErrSessionRequired)
	}
}
