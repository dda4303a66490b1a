package schedule_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofu-framework/gofu/schedule"
)

func newScheduler() *schedule.Scheduler {
	return schedule.NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func stopScheduler(t *testing.T, s *schedule.Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_EveryRuns(t *testing.T) {
	s := newScheduler()

	var runs atomic.Int32
	require.NoError(t, s.Every(50*time.Millisecond, "counter", func(ctx *schedule.JobContext) error {
		runs.Add(1)
		return nil
	}))

	s.Start()
	defer stopScheduler(t, s)

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestScheduler_CronSpecRuns(t *testing.T) {
	s := newScheduler()

	var runs atomic.Int32
	require.NoError(t, s.Cron("* * * * * *", "every-second", func(ctx *schedule.JobContext) error {
		runs.Add(1)
		return nil
	}))

	s.Start()
	defer stopScheduler(t, s)

	require.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_JobContext(t *testing.T) {
	s := newScheduler()

	var mu sync.Mutex
	var runIDs []string
	var name string

	require.NoError(t, s.Every(30*time.Millisecond, "ctx-job", func(ctx *schedule.JobContext) error {
		mu.Lock()
		defer mu.Unlock()
		runIDs = append(runIDs, ctx.RunID)
		name = ctx.Job.Name
		return nil
	}))

	s.Start()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(runIDs) >= 2
	}, 3*time.Second, 10*time.Millisecond)
	stopScheduler(t, s)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "ctx-job", name)
	assert.NotEmpty(t, runIDs[0])
	assert.NotEqual(t, runIDs[0], runIDs[1], "each run should get its own id")
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := newScheduler()

	gate := make(chan struct{})
	var runs atomic.Int32

	require.NoError(t, s.Every(50*time.Millisecond, "slow", func(ctx *schedule.JobContext) error {
		runs.Add(1)
		<-gate
		return nil
	}))

	s.Start()

	require.Eventually(t, func() bool {
		return runs.Load() == 1
	}, 3*time.Second, 10*time.Millisecond)

	// Several ticks elapse while the first run blocks; all must skip.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "overlapping ticks should be skipped")

	close(gate)
	stopScheduler(t, s)
}

func TestScheduler_RecoverFromPanic(t *testing.T) {
	s := newScheduler()

	var runs atomic.Int32
	require.NoError(t, s.Every(30*time.Millisecond, "panicky", func(ctx *schedule.JobContext) error {
		runs.Add(1)
		panic("boom")
	}))

	s.Start()
	defer stopScheduler(t, s)

	// The job keeps firing after panics.
	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestScheduler_FailedRunKeepsFiring(t *testing.T) {
	s := newScheduler()

	var runs atomic.Int32
	require.NoError(t, s.Every(30*time.Millisecond, "failing", func(ctx *schedule.JobContext) error {
		runs.Add(1)
		return errors.New("transient")
	}))

	s.Start()
	defer stopScheduler(t, s)

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestScheduler_RejectsBadRegistrations(t *testing.T) {
	s := newScheduler()

	require.NoError(t, s.Cron("* * * * * *", "job", func(ctx *schedule.JobContext) error { return nil }))

	t.Run("duplicate name", func(t *testing.T) {
		err := s.Cron("* * * * * *", "job", func(ctx *schedule.JobContext) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("invalid spec", func(t *testing.T) {
		err := s.Cron("not a spec", "bad", func(ctx *schedule.JobContext) error { return nil })
		require.Error(t, err)
	})

	t.Run("nil handler", func(t *testing.T) {
		err := s.Cron("* * * * * *", "nil-handler", nil)
		require.Error(t, err)
	})

	t.Run("non-positive interval", func(t *testing.T) {
		err := s.Every(0, "zero", func(ctx *schedule.JobContext) error { return nil })
		require.Error(t, err)
	})
}

func TestScheduler_Remove(t *testing.T) {
	s := newScheduler()

	var runs atomic.Int32
	require.NoError(t, s.Every(30*time.Millisecond, "removable", func(ctx *schedule.JobContext) error {
		runs.Add(1)
		return nil
	}))

	require.NoError(t, s.Remove("removable"))
	assert.False(t, s.HasJobs())

	s.Start()
	time.Sleep(120 * time.Millisecond)
	stopScheduler(t, s)

	assert.Equal(t, int32(0), runs.Load(), "removed job should never run")

	err := s.Remove("removable")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	s := newScheduler()

	started := make(chan struct{})
	canceled := make(chan struct{})

	require.NoError(t, s.Every(20*time.Millisecond, "long", func(ctx *schedule.JobContext) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	}))

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	stopScheduler(t, s)

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("job context was not canceled on stop")
	}
}

func TestScheduler_Statuses(t *testing.T) {
	s := newScheduler()

	require.NoError(t, s.CronWithDescription("0 0 * * * *", "hourly", "rolls up stats", func(ctx *schedule.JobContext) error {
		return nil
	}))
	require.NoError(t, s.Cron("* * * * * *", "frequent", func(ctx *schedule.JobContext) error {
		return nil
	}))

	assert.Equal(t, []string{"frequent", "hourly"}, s.Jobs())

	s.Start()
	defer stopScheduler(t, s)

	statuses := s.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "frequent", statuses[0].Name)
	assert.Equal(t, "hourly", statuses[1].Name)
	assert.Equal(t, "rolls up stats", statuses[1].Description)
	assert.False(t, statuses[0].Next.IsZero(), "started jobs should have a next run")
}
