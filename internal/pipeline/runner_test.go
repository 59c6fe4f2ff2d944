package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bhandras/usher/internal/generation"
	"github.com/bhandras/usher/internal/pipeline"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached before deadline")
}

// blockUntilCanceled returns a task body that parks on its context and a
// channel that closes once the body observed cancellation.
func blockUntilCanceled() (pipeline.TaskFunc, chan struct{}) {
	canceled := make(chan struct{})
	return func(ctx context.Context) {
		<-ctx.Done()
		close(canceled)
	}, canceled
}

func TestRun_CapacityBoundsTasks(t *testing.T) {
	t.Parallel()

	reg := generation.NewRegistry(2)
	r := pipeline.NewRunner(reg)

	taskA, _ := blockUntilCanceled()
	taskB, _ := blockUntilCanceled()
	require.NoError(t, r.Run("A", taskA))
	require.NoError(t, r.Run("B", taskB))
	require.True(t, reg.IsGenerating("A"))
	require.True(t, reg.IsGenerating("B"))

	taskC, _ := blockUntilCanceled()
	require.ErrorIs(t, r.Run("C", taskC), pipeline.ErrTooManyGenerations)
	require.False(t, reg.IsGenerating("C"))

	// Freeing a slot admits the waiting session.
	require.True(t, r.Cancel("A"))
	waitFor(t, func() bool { return !reg.IsGenerating("A") })
	require.NoError(t, r.Run("C", taskC))
	waitFor(t, func() bool { return reg.IsGenerating("C") })
}

func TestRun_ReplaceCancelsPrevious(t *testing.T) {
	t.Parallel()

	reg := generation.NewRegistry(1)
	r := pipeline.NewRunner(reg)

	first, firstCanceled := blockUntilCanceled()
	require.NoError(t, r.Run("A", first))

	// The registry is full, but the same session may replace its own task.
	second, secondCanceled := blockUntilCanceled()
	require.NoError(t, r.Run("A", second))

	select {
	case <-firstCanceled:
	case <-time.After(2 * time.Second):
		t.Fatalf("first task never canceled")
	}

	// The replaced task's exit must not unregister the session: the second
	// task is still running.
	waitFor(t, func() bool { return r.IsRunning("A") })
	time.Sleep(20 * time.Millisecond)
	require.True(t, reg.IsGenerating("A"))
	require.Equal(t, 1, reg.Count())

	require.True(t, r.Cancel("A"))
	<-secondCanceled
	waitFor(t, func() bool { return !reg.IsGenerating("A") })
}

func TestRun_UnregistersOnNaturalExit(t *testing.T) {
	t.Parallel()

	reg := generation.NewRegistry(3)
	r := pipeline.NewRunner(reg)

	require.NoError(t, r.Run("A", func(ctx context.Context) {}))
	waitFor(t, func() bool { return !r.IsRunning("A") && !reg.IsGenerating("A") })
}

func TestRun_Validation(t *testing.T) {
	t.Parallel()

	r := pipeline.NewRunner(generation.NewRegistry(1))
	require.ErrorIs(t, r.Run("", func(ctx context.Context) {}), pipeline.ErrNoSession)
}

func TestCancel_UnknownSession(t *testing.T) {
	t.Parallel()

	r := pipeline.NewRunner(generation.NewRegistry(1))
	require.False(t, r.Cancel("ghost"))
}

func TestRun_PanicReleasesSession(t *testing.T) {
	t.Parallel()

	reg := generation.NewRegistry(1)
	r := pipeline.NewRunner(reg)

	require.NoError(t, r.Run("A", func(ctx context.Context) { panic("turn exploded") }))
	waitFor(t, func() bool { return !reg.IsGenerating("A") })

	// The slot is usable again.
	require.NoError(t, r.Run("B", func(ctx context.Context) {}))
	waitFor(t, func() bool { return !reg.IsGenerating("B") })
}

func TestShutdown_StopsEverything(t *testing.T) {
	t.Parallel()

	reg := generation.NewRegistry(3)
	r := pipeline.NewRunner(reg)

	taskA, canceledA := blockUntilCanceled()
	taskB, canceledB := blockUntilCanceled()
	require.NoError(t, r.Run("A", taskA))
	require.NoError(t, r.Run("B", taskB))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	<-canceledA
	<-canceledB
	waitFor(t, func() bool { return reg.Count() == 0 })

	require.ErrorIs(t, r.Run("C", func(ctx context.Context) {}), pipeline.ErrShutdown)
}

func TestShutdown_TimesOutOnStuckTask(t *testing.T) {
	t.Parallel()

	r := pipeline.NewRunner(generation.NewRegistry(1))

	release := make(chan struct{})
	require.NoError(t, r.Run("A", func(ctx context.Context) {
		// Ignores cancellation until released.
		<-release
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, r.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	waitFor(t, func() bool { return !r.IsRunning("A") })
}
