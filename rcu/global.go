package rcu

import "sync"

// The process-wide main domain, for callers that do not need independent
// grace-period namespaces. Created lazily, torn down never.
var (
	mainDomainOnce sync.Once
	mainDomain     *Domain
)

// MainDomain returns the process-wide default domain.
func MainDomain() *Domain {
	mainDomainOnce.Do(func() {
		d, err := NewDomain()
		if err != nil {
			// NewDomain without options cannot fail; keep the invariant
			// visible.
			panic(err)
		}
		mainDomain = d
	})
	return mainDomain
}

// Register registers r with the main domain.
func Register(r *Reader) error {
	return MainDomain().Register(r)
}

// Unregister unregisters r from the main domain.
func Unregister(r *Reader) error {
	return MainDomain().Unregister(r)
}

// Synchronize runs a grace period on the main domain. See
// Domain.Synchronize for the calling rules.
func Synchronize() {
	MainDomain().Synchronize()
}
