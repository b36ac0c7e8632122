// Package client parses client command flags and runs a headless game
// client: dispatcher, command queue, and engine stream wired together.
package client

import (
	"context"
	"flag"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/louisbranch/deepspire/internal/client/actions"
	"github.com/louisbranch/deepspire/internal/client/commands"
	"github.com/louisbranch/deepspire/internal/client/session"
	"github.com/louisbranch/deepspire/internal/engine"
	entrypoint "github.com/louisbranch/deepspire/internal/platform/cmd"
	"github.com/louisbranch/deepspire/internal/platform/i18n/catalog"
	"github.com/louisbranch/deepspire/internal/protocol"
	"github.com/louisbranch/deepspire/internal/transport/ws"
)

// Config holds client command configuration.
type Config struct {
	// ServerURL is the engine base URL. Empty runs fully offline.
	ServerURL string `env:"DEEPSPIRE_SERVER_URL"`
	PlayerID  string `env:"DEEPSPIRE_PLAYER_ID" envDefault:"player"`
	// GameID resumes an existing game. Empty creates a new one.
	GameID string `env:"DEEPSPIRE_GAME_ID"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "engine base URL (empty runs offline)")
	fs.StringVar(&cfg.PlayerID, "player", cfg.PlayerID, "player identifier")
	fs.StringVar(&cfg.GameID, "game", cfg.GameID, "game to resume (empty creates a new game)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the headless client and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceClient, func(ctx context.Context) error {
		offline := cfg.ServerURL == ""
		state := session.New(protocol.PlayerID(cfg.PlayerID), offline)

		queue, err := commands.New(commands.Config{
			Applier: newConsoleApplier(log.Printf),
			Session: state,
		})
		if err != nil {
			return err
		}

		offlineEngine, err := engine.New(engine.Config{Store: engine.NewMemoryStore()})
		if err != nil {
			return err
		}

		dispatcherCfg := actions.Config{
			Queue:   queue,
			Offline: offlineEngine,
			Session: state,
		}
		var remote *ws.Client
		if !offline {
			remote, err = ws.NewClient(ws.ClientConfig{BaseURL: cfg.ServerURL})
			if err != nil {
				return err
			}
			dispatcherCfg.Engine = remote
		}
		dispatcher, err := actions.New(dispatcherCfg)
		if err != nil {
			return err
		}

		group, ctx := errgroup.WithContext(ctx)
		group.Go(func() error { return queue.Run(ctx) })
		group.Go(func() error { return dispatcher.Run(ctx) })
		group.Go(func() error {
			return openGame(ctx, cfg, state, queue, dispatcher, remote)
		})
		return group.Wait()
	})
}

// openGame creates or resumes a game, then forwards engine-pushed batches to
// the queue for the rest of the session.
func openGame(ctx context.Context, cfg Config, state *session.State, queue *commands.Queue, dispatcher *actions.Dispatcher, remote *ws.Client) error {
	var open protocol.GameAction = protocol.CreateNewGame{Offline: cfg.ServerURL == ""}
	if cfg.GameID != "" {
		state.Update(func(s *session.Snapshot) {
			s.GameID = protocol.GameID(cfg.GameID)
		})
		open = protocol.SyncAction{}
	}

	released, err := dispatcher.HandleAction(ctx, open)
	if err != nil {
		return fmt.Errorf("open game: %w", err)
	}
	select {
	case <-released:
	case <-ctx.Done():
		return ctx.Err()
	}

	if remote == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	// The slot releases when the batch is submitted; the game id lands in
	// session state only after the queue applies the render. Wait for the
	// opening batch to finish before reading it.
	select {
	case <-queue.Barrier():
	case <-ctx.Done():
		return ctx.Err()
	}

	gameID := state.Snapshot().GameID
	if gameID == "" {
		return fmt.Errorf("no game id after opening action")
	}
	pushed, err := remote.Connect(ctx, gameID, protocol.PlayerID(cfg.PlayerID))
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-pushed:
			if !ok {
				return fmt.Errorf("engine stream closed")
			}
			queue.Submit(batch)
		}
	}
}

// consoleApplier renders commands as log lines, localizing game messages and
// room names through the embedded catalog. Every effect completes
// immediately, so visible commands never block the queue.
type consoleApplier struct {
	logf    func(string, ...any)
	printer *message.Printer
}

func newConsoleApplier(logf func(string, ...any)) *consoleApplier {
	return &consoleApplier{
		logf:    logf,
		printer: message.NewPrinter(language.MustParse(catalog.BaseLocale)),
	}
}

func (a *consoleApplier) Apply(_ context.Context, cmd protocol.Command) (<-chan struct{}, error) {
	switch v := cmd.(type) {
	case protocol.DisplayGameMessage:
		a.logf("message: %s", a.printer.Sprintf("game.message."+string(v.Message)))
	case protocol.InitiateRaid:
		a.logf("%s: %s", a.printer.Sprintf("game.raid.initiated"), a.roomName(v.Room))
	case protocol.EndRaid:
		a.logf("%s: %s", a.printer.Sprintf("game.raid.ended"), a.roomName(v.Room))
	default:
		a.logf("apply %T", cmd)
	}
	done := make(chan struct{})
	close(done)
	return done, nil
}

func (a *consoleApplier) roomName(room protocol.RoomID) string {
	return a.printer.Sprintf("game.room." + string(room))
}

func (a *consoleApplier) Preload(_ context.Context, refs []protocol.AssetRef) error {
	a.logf("preload %d assets", len(refs))
	return nil
}
