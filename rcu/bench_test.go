package rcu

import (
	"testing"
)

func BenchmarkQuiescentState(b *testing.B) {
	d, err := NewDomain()
	if err != nil {
		b.Fatal(err)
	}
	r := NewReader()
	if err := d.Register(r); err != nil {
		b.Fatal(err)
	}
	defer func() { _ = d.Unregister(r) }()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.QuiescentState()
	}
}

func BenchmarkReadLockUnlock(b *testing.B) {
	d, err := NewDomain()
	if err != nil {
		b.Fatal(err)
	}
	r := NewReader()
	if err := d.Register(r); err != nil {
		b.Fatal(err)
	}
	defer func() { _ = d.Unregister(r) }()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.ReadLock()
		r.ReadUnlock()
	}
}

func BenchmarkSynchronize_NoReaders(b *testing.B) {
	d, err := NewDomain()
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Synchronize()
	}
}

func BenchmarkSynchronize_OfflineReader(b *testing.B) {
	d, err := NewDomain()
	if err != nil {
		b.Fatal(err)
	}
	r := NewReader()
	if err := d.Register(r); err != nil {
		b.Fatal(err)
	}
	r.Offline()
	defer func() { _ = d.Unregister(r) }()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Synchronize()
	}
}
