package bootstrap

import (
	"fmt"
	"time"

	"github.com/yndnr/srvboot-go/internal/core/domain"
)

// State is the server lifecycle state. Transitions only move forward.
type State int32

const (
	StateRunning State = iota
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// StateNames lists every state name, for metrics.
func StateNames() []string {
	return []string{StateRunning.String(), StateDraining.String(), StateStopped.String()}
}

// Report describes a completed shutdown.
type Report struct {
	// Clean is true when every connection finished before the deadline.
	Clean bool
	// Forced is the number of connections closed at the deadline.
	Forced int
	// Elapsed is the time from the shutdown trigger to Stopped.
	Elapsed time.Duration
}

// Err returns a ForcedDrainClosure error for forced shutdowns, nil otherwise.
func (r Report) Err() error {
	if r.Clean {
		return nil
	}
	return domain.New(domain.KindForcedDrainClosure,
		fmt.Sprintf("%d connection(s) closed at drain deadline", r.Forced))
}
