package hpref

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// packageLogger is the package-level structured logger. A package global is
// appropriate here for the same reason it is for the slot slab: the hazard
// table is process-wide infrastructure, not per-instance state.
var packageLogger atomic.Pointer[logiface.Logger[logiface.Event]]

// SetLogger configures structured logging for the package. Pass nil to
// disable (the default). Only synchronize paths log; the reader fast path
// never does.
func SetLogger(l *logiface.Logger[logiface.Event]) {
	packageLogger.Store(l)
}

func logger() *logiface.Logger[logiface.Event] {
	return packageLogger.Load()
}
