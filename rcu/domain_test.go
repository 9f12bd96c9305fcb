package rcu

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func TestNewDomain(t *testing.T) {
	d, err := NewDomain()
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("Expected domain not to be nil")
	}
	if ctr := d.gpCtr.Load(); ctr != gpCtrOnline {
		t.Fatalf("Expected initial counter %d, got %d", gpCtrOnline, ctr)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDomain_CloseTwice(t *testing.T) {
	d, err := NewDomain()
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); !errors.Is(err, ErrDomainClosed) {
		t.Fatalf("Expected ErrDomainClosed, got %v", err)
	}
}

func TestDomain_CloseWithReader(t *testing.T) {
	d, err := NewDomain()
	if err != nil {
		t.Fatal(err)
	}
	r := NewReader()
	if err := d.Register(r); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); !errors.Is(err, ErrReaderRegistered) {
		t.Fatalf("Expected ErrReaderRegistered, got %v", err)
	}
	if err := d.Unregister(r); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDomain_RegisterTwice(t *testing.T) {
	d, err := NewDomain()
	if err != nil {
		t.Fatal(err)
	}
	r := NewReader()
	if err := d.Register(r); err != nil {
		t.Fatal(err)
	}
	if err := d.Register(r); !errors.Is(err, ErrReaderRegistered) {
		t.Fatalf("Expected ErrReaderRegistered, got %v", err)
	}
	if err := d.Unregister(r); err != nil {
		t.Fatal(err)
	}
}

func TestDomain_RegisterClosed(t *testing.T) {
	d, err := NewDomain()
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Register(NewReader()); !errors.Is(err, ErrDomainClosed) {
		t.Fatalf("Expected ErrDomainClosed, got %v", err)
	}
}

func TestDomain_UnregisterNotRegistered(t *testing.T) {
	d, err := NewDomain()
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Unregister(NewReader()); !errors.Is(err, ErrReaderNotRegistered) {
		t.Fatalf("Expected ErrReaderNotRegistered, got %v", err)
	}
}

func TestDomain_UnregisterWrongDomain(t *testing.T) {
	d1, err := NewDomain()
	if err != nil {
		t.Fatal(err)
	}
	d2, err := NewDomain()
	if err != nil {
		t.Fatal(err)
	}
	r := NewReader()
	if err := d1.Register(r); err != nil {
		t.Fatal(err)
	}
	if err := d2.Unregister(r); !errors.Is(err, ErrReaderNotRegistered) {
		t.Fatalf("Expected ErrReaderNotRegistered, got %v", err)
	}
	if err := d1.Unregister(r); err != nil {
		t.Fatal(err)
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf)),
		stumpy.L.WithLevel(logiface.LevelTrace),
	)
	d, err := NewDomain(WithLogger(l.Logger()))
	if err != nil {
		t.Fatal(err)
	}
	r := NewReader()
	if err := d.Register(r); err != nil {
		t.Fatal(err)
	}
	r.Offline()
	d.Synchronize()

	out := buf.String()
	if !strings.Contains(out, `reader registered`) {
		t.Fatalf("Expected registration log, got %q", out)
	}
	if !strings.Contains(out, `grace period start`) || !strings.Contains(out, `grace period end`) {
		t.Fatalf("Expected grace period logs, got %q", out)
	}

	if err := d.Unregister(r); err != nil {
		t.Fatal(err)
	}
}

func TestResolveOptions_NilOption(t *testing.T) {
	if _, err := NewDomain(nil); err != nil {
		t.Fatal(err)
	}
}
