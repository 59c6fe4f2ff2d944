package sdk

import (
	"context"
	"errors"

	"github.com/bhandras/usher/pkg/logger"
)

// StartGeneration runs one engine turn for sessionID. It fails with
// ErrTooManyGenerations when the concurrency cap is reached, and replaces
// the session's running turn when one exists.
func (c *Coordinator) StartGeneration(sessionID, prompt string) error {
	if c.engine == nil {
		return ErrNoEngine
	}
	return c.runner.Run(sessionID, func(ctx context.Context) {
		err := c.engine.GenerateTurn(ctx, sessionID, prompt, c)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			logger.Debugf("generation for session %s canceled", sessionID)
		default:
			logger.Warnf("generation for session %s failed: %v", sessionID, err)
		}
	})
}

// CancelGeneration asks sessionID's running turn to stop. It reports
// whether a turn was running. Cancellation never touches router state:
// a batch the turn already produced stays until superseded or dismissed.
func (c *Coordinator) CancelGeneration(sessionID string) bool {
	return c.runner.Cancel(sessionID)
}

// IsSessionGenerating reports whether sessionID has a turn in flight.
func (c *Coordinator) IsSessionGenerating(sessionID string) bool {
	return c.gens.IsGenerating(sessionID)
}

// AnySessionGenerating reports whether any session has a turn in flight.
func (c *Coordinator) AnySessionGenerating() bool {
	return c.gens.AnyGenerating()
}

// CanStartGeneration reports whether another turn may begin right now.
func (c *Coordinator) CanStartGeneration() bool {
	return c.gens.CanStart()
}

// CanSwitchSession reports whether navigation to another session is
// allowed. Always true: generations never block navigation.
func (c *Coordinator) CanSwitchSession() bool {
	return c.gens.CanSwitchSession()
}

// CanStartNewSession reports whether creating a session is allowed. Always
// true: generations never block navigation.
func (c *Coordinator) CanStartNewSession() bool {
	return c.gens.CanStartNewSession()
}

// ActiveGenerations returns how many sessions are generating.
func (c *Coordinator) ActiveGenerations() int {
	return c.gens.Count()
}
