package rcu

import (
	"testing"
	"time"
)

func TestMainDomain_Stable(t *testing.T) {
	if MainDomain() != MainDomain() {
		t.Fatal("Expected a single process-wide main domain")
	}
}

func TestMainDomain_RegisterSynchronize(t *testing.T) {
	r := NewReader()
	if err := Register(r); err != nil {
		t.Fatal(err)
	}
	r.Offline()

	done := make(chan struct{})
	go func() {
		defer close(done)
		Synchronize()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("main-domain Synchronize blocked on an offline reader")
	}

	if err := Unregister(r); err != nil {
		t.Fatal(err)
	}
}
