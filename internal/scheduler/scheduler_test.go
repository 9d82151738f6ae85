package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsTicksOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)

	ticks := make(chan struct{}, 10)
	s.Register("test", time.Minute, func(_ context.Context) (Outcome, error) {
		ticks <- struct{}{}
		return OutcomeOK, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	// Wait until the job goroutine is blocked on its ticker.
	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not run")
	}

	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("second tick did not run")
	}

	cancel()
	s.Wait()
}

func TestSchedulerRunsJobsIndependently(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)

	fast := make(chan struct{}, 10)
	slow := make(chan struct{}, 10)
	s.Register("fast", time.Second, func(_ context.Context) (Outcome, error) {
		fast <- struct{}{}
		return OutcomeOK, nil
	})
	s.Register("slow", time.Hour, func(_ context.Context) (Outcome, error) {
		slow <- struct{}{}
		return OutcomeOK, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	clock.BlockUntil(2)
	clock.Advance(time.Second)

	select {
	case <-fast:
	case <-time.After(2 * time.Second):
		t.Fatal("fast job did not tick")
	}
	assert.Empty(t, slow)

	cancel()
	s.Wait()
}

func TestSchedulerSurvivesTickErrorsAndPanics(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)

	calls := make(chan int, 10)
	count := 0
	s.Register("flaky", time.Minute, func(_ context.Context) (Outcome, error) {
		count++
		calls <- count
		switch count {
		case 1:
			return OutcomeOK, errors.New("tick failed")
		case 2:
			panic("tick panicked")
		default:
			return OutcomeOK, nil
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	for want := 1; want <= 3; want++ {
		clock.BlockUntil(1)
		clock.Advance(time.Minute)
		select {
		case got := <-calls:
			require.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d did not run", want)
		}
	}

	cancel()
	s.Wait()
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)

	s.Register("test", time.Minute, func(_ context.Context) (Outcome, error) {
		return OutcomeNoop, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	clock.BlockUntil(1)

	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
