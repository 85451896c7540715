package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRejectsBadSpec(t *testing.T) {
	if _, err := New("every morning", time.UTC); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestNext(t *testing.T) {
	r, err := New("0 9 * * 1-5", time.UTC)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Saturday 2024-03-09 10:00 -> Monday 09:00.
	got := r.Next(time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC))
	want := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next = %s, want %s", got, want)
	}
}

func TestRunFiresJobUntilCancelled(t *testing.T) {
	r, err := New("*/5 * * * *", time.UTC)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clock := time.Date(2024, 3, 4, 9, 1, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }
	r.after = func(d time.Duration) <-chan time.Time {
		clock = clock.Add(d)
		ch := make(chan time.Time, 1)
		ch <- clock
		return ch
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired []time.Time
	err = r.Run(ctx, func(_ context.Context, at time.Time) error {
		fired = append(fired, at)
		if len(fired) == 2 {
			return errors.New("job failure is logged, not fatal")
		}
		if len(fired) == 3 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	want := []time.Time{
		time.Date(2024, 3, 4, 9, 5, 0, 0, time.UTC),
		time.Date(2024, 3, 4, 9, 10, 0, 0, time.UTC),
		time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC),
	}
	if len(fired) != len(want) {
		t.Fatalf("expected %d firings, got %v", len(want), fired)
	}
	for i := range want {
		if !fired[i].Equal(want[i]) {
			t.Fatalf("firing %d = %s, want %s", i, fired[i], want[i])
		}
	}
}
