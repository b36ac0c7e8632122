package scenario

import (
	"fmt"
	"log"

	"github.com/louisbranch/deepspire/internal/protocol"
)

// AssertionMode controls whether failed expectations abort the run.
type AssertionMode int

const (
	// AssertionStrict aborts the scenario on the first failed expectation.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly logs failed expectations and keeps going.
	AssertionLogOnly
)

// Assertions evaluates scripted expectations according to the mode.
type Assertions struct {
	Mode   AssertionMode
	Logger *log.Logger
}

// Failf reports a failed expectation. In strict mode it returns an error.
func (a Assertions) Failf(format string, args ...any) error {
	if a.Mode == AssertionLogOnly {
		if a.Logger != nil {
			a.Logger.Printf("expectation failed: "+format, args...)
		}
		return nil
	}
	return fmt.Errorf(format, args...)
}

// scenarioState carries the identifiers a run accumulates across steps.
type scenarioState struct {
	gameID   protocol.GameID
	playerID protocol.PlayerID
}
