package scenario

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/louisbranch/deepspire/internal/engine"
	"github.com/louisbranch/deepspire/internal/protocol"
)

// Config controls scenario execution.
type Config struct {
	// Store backs the engine the scenario runs against. Defaults to an
	// in-memory store.
	Store      engine.Store
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	Logger     *log.Logger
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:    10 * time.Second,
		Assertions: AssertionStrict,
		Verbose:    false,
	}
}

// Runner executes Lua scenarios against an embedded rules engine.
type Runner struct {
	engine     *engine.Engine
	store      engine.Store
	assertions Assertions
	logger     *log.Logger
	verbose    bool
	timeout    time.Duration
}

// NewRunner builds an engine over the configured store and prepares a
// scenario runner.
func NewRunner(cfg Config) (*Runner, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	store := cfg.Store
	if store == nil {
		store = engine.NewMemoryStore()
	}

	eng, err := engine.New(engine.Config{Store: store, Logf: logger.Printf})
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	return &Runner{
		engine:     eng,
		store:      store,
		assertions: Assertions{Mode: cfg.Assertions, Logger: logger},
		logger:     logger,
		verbose:    cfg.Verbose,
		timeout:    timeout,
	}, nil
}

// RunFile loads and executes a scenario file.
func RunFile(ctx context.Context, cfg Config, path string) error {
	runner, err := NewRunner(cfg)
	if err != nil {
		return err
	}

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return err
	}
	return runner.RunScenario(ctx, scenario)
}

// RunScenario executes the scenario steps against the engine.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))
	state := &scenarioState{playerID: "scenario-user"}

	for index, step := range scenario.Steps {
		stepNumber := index + 1
		r.logf("step %d/%d start: %s", stepNumber, len(scenario.Steps), step.Kind)
		stepStart := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.runStep(stepCtx, state, step)
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

// perform sends an action for the current game and remembers the game id of
// any rendered game, so a new_game step binds later steps to the created game.
func (r *Runner) perform(ctx context.Context, state *scenarioState, action protocol.GameAction) (protocol.CommandBatch, error) {
	batch, err := r.engine.PerformAction(ctx, state.gameID, state.playerID, action)
	if err != nil {
		return protocol.CommandBatch{}, err
	}
	for _, cmd := range batch.Commands {
		if render, ok := cmd.(protocol.RenderGame); ok {
			state.gameID = render.Game.GameID
		}
	}
	return batch, nil
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
