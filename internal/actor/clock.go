package actor

import "time"

// Clock abstracts time for components that stamp or schedule.
//
// Reducers never read a clock; timestamps enter through inputs. Runtimes and
// callers that need the current time take a Clock so tests can pin it.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }
