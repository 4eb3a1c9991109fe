package session

import (
	"time"

	"github.com/robalobadob/codebreaker/apps/go-server/internal/lobby"
)

// Scheduler arms turn timeouts.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) lobby.Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) lobby.Timer {
	return time.AfterFunc(d, f)
}
