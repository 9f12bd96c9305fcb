package rcu

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// Standard errors.
var (
	// ErrDomainClosed is returned when operations are attempted on a closed domain.
	ErrDomainClosed = errors.New("rcu: domain is closed")

	// ErrReaderRegistered is returned when registering an already-registered
	// reader, or closing a domain that still has readers registered.
	ErrReaderRegistered = errors.New("rcu: reader is registered")

	// ErrReaderNotRegistered is returned when unregistering a reader that is
	// not registered with the domain.
	ErrReaderNotRegistered = errors.New("rcu: reader is not registered")
)

const (
	// gpCtrOnline is the low bit of the grace-period counter. It is always
	// set, so an online reader's counter snapshot can never equal the
	// offline sentinel (zero).
	gpCtrOnline = uint64(1) << 0

	// gpCtrPhase is the parity bit. Synchronize flips it between its two
	// wait rounds; a reader whose snapshot carries the old parity has not
	// yet passed through a quiescent state since the flip.
	gpCtrPhase = uint64(1) << 1

	// qsActiveAttempts is how many classification passes the grace period
	// spins before arming the futex and blocking.
	qsActiveAttempts = 100
)

// domainTestHooks provides injection points for deterministic concurrency
// tests.
type domainTestHooks struct {
	OnLeader     func() // called by the batch leader before it takes the waiter queue
	OnParityFlip func() // called immediately after the parity flip
}

// Domain is an independent RCU namespace: a reader registry and a
// grace-period state. Grace periods of distinct domains do not serialize
// with each other.
type Domain struct {
	// Prevent comparison
	_ [0]func()

	// gpMu serializes grace periods within the domain. It is held across an
	// entire Synchronize leader pass.
	gpMu sync.Mutex

	// registryMu protects registry and the readers' list links and
	// registered flags. It is released sporadically inside the grace-period
	// wait loop so registration can make progress.
	registryMu sync.Mutex
	registry   readerList

	// gpCtr is the grace-period counter: gpCtrOnline plus the parity bit.
	// Readers snapshot it with a plain atomic load; the phase changes are
	// ordered by the writer's barriers.
	gpCtr atomic.Uint64

	// futex is the writer's sleep word: -1 while a grace period is parked
	// waiting for readers, 0 otherwise. Plain int32 so its address can be
	// handed to the futex syscall.
	futex int32

	// waiters batches concurrent Synchronize callers.
	waiters waitQueue

	log *logiface.Logger[logiface.Event]

	closed atomic.Bool

	testHooks *domainTestHooks
}

// --- Domain Options ---

// Option configures a Domain.
type Option interface {
	applyDomain(*domainOptions) error
}

type domainOptions struct {
	log *logiface.Logger[logiface.Event]
}

type optionImpl struct {
	applyDomainFunc func(*domainOptions) error
}

func (x *optionImpl) applyDomain(opts *domainOptions) error {
	return x.applyDomainFunc(opts)
}

// WithLogger sets the domain's structured logger. Grace-period events log at
// trace level, registration events at debug. The default is no logging.
func WithLogger(log *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *domainOptions) error {
		opts.log = log
		return nil
	}}
}

func resolveOptions(opts []Option) (*domainOptions, error) {
	cfg := &domainOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyDomain(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// NewDomain creates an RCU domain. The returned domain is immediately
// usable; it holds no background resources beyond what Close releases.
func NewDomain(opts ...Option) (*Domain, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	d := &Domain{log: cfg.log}
	d.gpCtr.Store(gpCtrOnline)
	return d, nil
}

// Close marks the domain closed. Every reader must be unregistered first;
// a close that races an in-flight Synchronize waits for it.
func (x *Domain) Close() error {
	if !x.closed.CompareAndSwap(false, true) {
		return ErrDomainClosed
	}
	x.gpMu.Lock()
	defer x.gpMu.Unlock()
	x.registryMu.Lock()
	defer x.registryMu.Unlock()
	if !x.registry.empty() {
		x.closed.Store(false)
		return ErrReaderRegistered
	}
	x.log.Debug().Log(`rcu: domain closed`)
	return nil
}
