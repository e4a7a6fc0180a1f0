package apkes

import (
	"testing"
	"time"
)

func TestWaitPoolAllocBoundedBySize(t *testing.T) {
	p := newWaitPool(2)

	i1, ok := p.allocSlot()
	if !ok {
		t.Fatal("expected first alloc to succeed")
	}
	i2, ok := p.allocSlot()
	if !ok {
		t.Fatal("expected second alloc to succeed")
	}
	if _, ok := p.allocSlot(); ok {
		t.Fatal("expected third alloc to fail, pool size is 2")
	}

	p.free(i1)
	if _, ok := p.allocSlot(); !ok {
		t.Fatal("expected alloc to succeed after a free")
	}
	_ = i2
}

func TestWaitPoolArmFiresCallback(t *testing.T) {
	p := newWaitPool(1)
	i, _ := p.allocSlot()

	fired := make(chan struct{})
	p.arm(i, 42, 5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	if p.handleAt(i) != 42 {
		t.Fatalf("handleAt = %d, want 42", p.handleAt(i))
	}
}

func TestWaitPoolFreeStopsTimer(t *testing.T) {
	p := newWaitPool(1)
	i, _ := p.allocSlot()

	fired := make(chan struct{})
	p.arm(i, 1, 50*time.Millisecond, func() { close(fired) })
	p.free(i)

	select {
	case <-fired:
		t.Fatal("timer fired after free")
	case <-time.After(100 * time.Millisecond):
	}
}
