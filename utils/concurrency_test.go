package utils

import (
	"sync/atomic"
	"testing"
)

func TestIDSetNoDuplicates(t *testing.T) {
	s := NewIDSet()

	added := s.Add("B0TEST0001")
	if !added {
		t.Error("first Add should return true")
	}

	added = s.Add("B0TEST0001")
	if added {
		t.Error("second Add of same id should return false")
	}

	if !s.Contains("B0TEST0001") {
		t.Error("Contains should report the added id")
	}

	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestIDSetConcurrency(t *testing.T) {
	s := NewIDSet()
	var added int64

	pool := NewWorkerPool(10)
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			if s.Add("B0SAME0000") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolTrySubmitSaturated(t *testing.T) {
	pool := NewWorkerPool(1)

	release := make(chan struct{})
	started := make(chan struct{})
	if !pool.TrySubmit(func() {
		close(started)
		<-release
	}) {
		t.Fatal("first TrySubmit should start the job")
	}
	<-started

	if pool.TrySubmit(func() {}) {
		t.Error("TrySubmit should refuse while the only slot is busy")
	}

	close(release)
	pool.Wait()

	var ran int32
	if !pool.TrySubmit(func() { atomic.StoreInt32(&ran, 1) }) {
		t.Error("TrySubmit should succeed once the slot is free")
	}
	pool.Wait()
	if atomic.LoadInt32(&ran) != 1 {
		t.Error("job submitted after release did not run")
	}
}
