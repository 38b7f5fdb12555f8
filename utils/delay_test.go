package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJitterBounds(t *testing.T) {
	j := Jitter{Min: 10 * time.Millisecond, Max: 20 * time.Millisecond}
	for i := 0; i < 100; i++ {
		d := j.Duration()
		if d < j.Min || d > j.Max {
			t.Fatalf("Duration() = %v, want within [%v, %v]", d, j.Min, j.Max)
		}
	}
}

func TestJitterZeroNeverSleeps(t *testing.T) {
	var j Jitter
	if d := j.Duration(); d != 0 {
		t.Errorf("zero Jitter Duration() = %v, want 0", d)
	}

	start := time.Now()
	if err := j.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("zero Jitter should return immediately")
	}
}

func TestJitterWaitCancelled(t *testing.T) {
	j := Jitter{Min: time.Hour, Max: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := j.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, Logger: NopLogger()}

	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		if calls < 2 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestRetryNotRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	r := &RetryConfig{
		MaxAttempts: 5,
		Logger:      NopLogger(),
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}

	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("Do error = %v, want fatal", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}
