package fn

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestThen_ShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	first := func(_ context.Context, n int) Result[int] { return Err[int](boom) }
	var secondCalled bool
	second := func(_ context.Context, n int) Result[string] {
		secondCalled = true
		return Ok(strconv.Itoa(n))
	}

	r := Then(first, second)(context.Background(), 1)
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if secondCalled {
		t.Error("second stage ran after first failed")
	}
}

func TestThen_PassesValue(t *testing.T) {
	double := MapStage(func(n int) int { return n * 2 })
	asString := MapStage(strconv.Itoa)

	r := Then(double, asString)(context.Background(), 21)
	v, err := r.Unwrap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "42" {
		t.Errorf("got %q, want %q", v, "42")
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}, func(context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Errf[int]("attempt %d", attempts)
		}
		return Ok(attempts)
	})
	v, err := r.Unwrap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 3 {
		t.Errorf("got %d attempts, want 3", v)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond}, func(context.Context) Result[int] {
		attempts++
		return Errf[int]("always fails")
	})
	if r.IsOk() {
		t.Fatal("expected failure")
	}
	if attempts != 2 {
		t.Errorf("got %d attempts, want 2", attempts)
	}
}

func TestRetry_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := Retry(ctx, RetryOpts{MaxAttempts: 5, InitialWait: time.Hour}, func(context.Context) Result[int] {
		return Errf[int]("fail")
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestParMapResult_PreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	var inFlight, maxInFlight atomic.Int32

	results := ParMapResult(items, 2, func(n int) Result[int] {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(time.Duration(n) * time.Millisecond)
		return Ok(n * 10)
	})

	collected, err := Collect(results).Unwrap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []int{50, 40, 30, 20, 10} {
		if collected[i] != want {
			t.Errorf("index %d: got %d, want %d", i, collected[i], want)
		}
	}
	if maxInFlight.Load() > 2 {
		t.Errorf("concurrency exceeded bound: %d", maxInFlight.Load())
	}
}

func TestCollect_FirstError(t *testing.T) {
	boom := errors.New("boom")
	results := []Result[int]{Ok(1), Err[int](boom), Ok(3)}
	if _, err := Collect(results).Unwrap(); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestChunk(t *testing.T) {
	got := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(got) != 3 || len(got[0]) != 2 || len(got[2]) != 1 {
		t.Errorf("unexpected chunking: %v", got)
	}
	if Chunk([]int{1}, 0) != nil {
		t.Error("expected nil for n <= 0")
	}
}

func TestUniqueBy(t *testing.T) {
	type item struct{ id string }
	in := []item{{"a"}, {"b"}, {"a"}}
	got := UniqueBy(in, func(i item) string { return i.id })
	if len(got) != 2 || got[0].id != "a" || got[1].id != "b" {
		t.Errorf("unexpected result: %v", got)
	}
}
