package history

import (
	"context"
	"testing"
)

func TestSchedulerStartStop(t *testing.T) {
	store := openTestStore(t)
	sched := NewScheduler(store, "0 3 * * *", 30)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sched.Stop()
	sched.Stop()
}

func TestSchedulerEmptyScheduleDisabled(t *testing.T) {
	store := openTestStore(t)
	sched := NewScheduler(store, "", 30)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start with empty schedule: %v", err)
	}
	sched.Stop()
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	store := openTestStore(t)
	sched := NewScheduler(store, "not a cron expression", 30)

	if err := sched.Start(context.Background()); err == nil {
		t.Error("invalid cron schedule accepted")
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	store := openTestStore(t)
	sched := NewScheduler(store, "0 3 * * *", 30)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	// Stop is idempotent, so calling it after the cancellation goroutine
	// has already run is safe either way.
	sched.Stop()
}
