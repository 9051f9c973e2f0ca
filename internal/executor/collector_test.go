package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer that can be shared between the test and pool goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func submitAll(t *testing.T, pool *Pool, tasks ...Task) []*Handle {
	t.Helper()
	handles := make([]*Handle, 0, len(tasks))
	for _, task := range tasks {
		h, err := pool.Submit(task)
		if err != nil {
			t.Fatalf("submit %s: %v", task.ID, err)
		}
		handles = append(handles, h)
	}
	return handles
}

func assertAccounted(t *testing.T, r Report) {
	t.Helper()
	if r.Accounted() != r.Submitted {
		t.Errorf("expected succeeded+failed+abandoned == submitted, got %d+%d+%d != %d",
			r.Succeeded, r.Failed, r.Abandoned, r.Submitted)
	}
}

func TestCollector_Collect(t *testing.T) {
	tests := []struct {
		name          string
		tasks         []Task
		wantSucceeded int
		wantFailed    int
	}{
		{
			name:  "no handles",
			tasks: nil,
		},
		{
			name: "all succeed",
			tasks: []Task{
				{ID: "a", Input: "a.txt", Operation: succeed(1)},
				{ID: "b", Input: "b.txt", Operation: succeed(2)},
				{ID: "c", Input: "c.txt", Operation: succeed(3)},
			},
			wantSucceeded: 3,
		},
		{
			name: "one failure among successes",
			tasks: []Task{
				{ID: "a", Input: "a.txt", Operation: succeed(1)},
				{ID: "b", Input: "b.txt", Operation: fail("unreadable")},
				{ID: "c", Input: "c.txt", Operation: succeed(3)},
			},
			wantSucceeded: 2,
			wantFailed:    1,
		},
		{
			name: "all fail",
			tasks: []Task{
				{ID: "a", Input: "a.txt", Operation: fail("x")},
				{ID: "b", Input: "b.txt", Operation: fail("y")},
			},
			wantFailed: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(2, quietLogger())
			defer shutdownPool(t, pool)

			handles := submitAll(t, pool, tt.tasks...)
			c := NewCollector(time.Second, quietLogger())
			r := c.Collect(context.Background(), handles)

			if r.Submitted != len(tt.tasks) {
				t.Errorf("expected %d submitted, got %d", len(tt.tasks), r.Submitted)
			}
			if r.Succeeded != tt.wantSucceeded {
				t.Errorf("expected %d succeeded, got %d", tt.wantSucceeded, r.Succeeded)
			}
			if r.Failed != tt.wantFailed {
				t.Errorf("expected %d failed, got %d", tt.wantFailed, r.Failed)
			}
			if r.Interrupted {
				t.Error("collection should not be interrupted")
			}
			assertAccounted(t, r)

			if len(c.Outcomes()) != len(tt.tasks) {
				t.Errorf("expected %d outcomes, got %d", len(tt.tasks), len(c.Outcomes()))
			}
		})
	}
}

func TestCollector_LogsFailureCause(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	pool := NewPool(1, quietLogger())
	defer shutdownPool(t, pool)

	handles := submitAll(t, pool, Task{ID: "broken", Input: "in/broken.txt", Operation: fail("permission denied")})
	NewCollector(time.Second, logger).Collect(context.Background(), handles)

	logs := buf.String()
	for _, want := range []string{"task failed", "in/broken.txt", "permission denied"} {
		if !strings.Contains(logs, want) {
			t.Errorf("expected log to contain %q, got:\n%s", want, logs)
		}
	}
}

func TestCollector_Timeout(t *testing.T) {
	pool := NewPool(2, quietLogger())
	defer shutdownPool(t, pool)

	handles := submitAll(t, pool,
		Task{ID: "slow", Input: "slow.txt", Operation: blockUntilCancelled},
		Task{ID: "fast", Input: "fast.txt", Operation: succeed("ok")},
	)

	c := NewCollector(20*time.Millisecond, quietLogger())
	r := c.Collect(context.Background(), handles)

	if r.Failed != 1 || r.Succeeded != 1 {
		t.Fatalf("expected 1 failed and 1 succeeded, got %+v", r)
	}

	// The timed-out task is cancelled cooperatively and reaches a terminal outcome
	out, err := handles[0].Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("slow task did not stop after cancellation: %v", err)
	}
	if out.Kind != OutcomeTimedOut {
		t.Errorf("expected timed out outcome, got %s", out.Kind)
	}

	final := c.Settle(nil)
	if final.Failed != 1 || final.Abandoned != 0 {
		t.Errorf("expected timeout to stay a failure, got %+v", final)
	}
	assertAccounted(t, final)

	failed := FilterFailed(c.Outcomes())
	if len(failed) != 1 || failed[0].TaskID != "slow" {
		t.Errorf("expected slow task in failures, got %+v", failed)
	}
}

func TestCollector_TimeoutThenSuccess(t *testing.T) {
	pool := NewPool(1, quietLogger())
	defer shutdownPool(t, pool)

	release := make(chan struct{})
	handles := submitAll(t, pool, Task{ID: "late", Input: "late.txt", Operation: stuck(release)})

	c := NewCollector(10*time.Millisecond, quietLogger())
	c.Collect(context.Background(), handles)

	close(release)
	out, err := handles[0].Wait(context.Background(), time.Second)
	if err != nil || !out.OK() {
		t.Fatalf("expected the late task to finish successfully, got %+v, %v", out, err)
	}

	r := c.Settle(nil)
	if r.Failed != 1 || r.Succeeded != 0 {
		t.Errorf("a late success must keep its failure verdict, got %+v", r)
	}

	outcomes := c.Outcomes()
	if len(outcomes) != 1 || outcomes[0].Kind != OutcomeTimedOut || !errors.Is(outcomes[0].Err, ErrTaskTimeout) {
		t.Fatalf("expected recorded outcome to be timed out, got %+v", outcomes)
	}
	if !outcomes[0].Late || outcomes[0].Data != "late" {
		t.Errorf("expected late outcome to keep its data, got %+v", outcomes[0])
	}
}

func TestCollector_SettleAbandoned(t *testing.T) {
	pool := NewPool(1, quietLogger())

	release := make(chan struct{})
	defer close(release)

	handles := submitAll(t, pool, Task{ID: "stuck", Input: "stuck.txt", Operation: stuck(release)})

	c := NewCollector(10*time.Millisecond, quietLogger())
	if r := c.Collect(context.Background(), handles); r.Failed != 1 {
		t.Fatalf("expected provisional failure, got %+v", r)
	}

	drain := NewCoordinator(pool, 10*time.Millisecond, 10*time.Millisecond, quietLogger()).Drain()
	if len(drain.Abandoned) != 1 {
		t.Fatalf("expected one abandoned handle, got %d", len(drain.Abandoned))
	}

	r := c.Settle(drain.Abandoned)
	if r.Failed != 0 || r.Abandoned != 1 {
		t.Errorf("expected the stuck task to move to abandoned, got %+v", r)
	}
	assertAccounted(t, r)

	tasks := c.AbandonedTasks()
	if len(tasks) != 1 || tasks[0].Input != "stuck.txt" {
		t.Errorf("unexpected abandoned tasks: %+v", tasks)
	}

	// Settle is idempotent
	if again := c.Settle(drain.Abandoned); again != r {
		t.Errorf("second settle changed the report: %+v vs %+v", again, r)
	}
}

func TestCollector_Interrupted(t *testing.T) {
	pool := NewPool(1, quietLogger())

	release := make(chan struct{})
	handles := submitAll(t, pool,
		Task{ID: "done", Input: "done.txt", Operation: succeed("ok")},
		Task{ID: "blocking", Input: "blocking.txt", Operation: func(ctx context.Context) (interface{}, error) {
			select {
			case <-release:
				return "ok", nil
			case <-ctx.Done():
				return nil, context.Cause(ctx)
			}
		}},
		Task{ID: "queued1", Input: "queued1.txt", Operation: succeed("ok")},
		Task{ID: "queued2", Input: "queued2.txt", Operation: succeed("ok")},
	)

	ctx, cancel := context.WithCancelCause(context.Background())
	c := NewCollector(0, quietLogger())

	var progressed []int
	c.OnProgress(func(completed, total int) {
		progressed = append(progressed, completed)
		if completed == 1 {
			cancel(errors.New("interrupt signal"))
		}
	})

	r := c.Collect(ctx, handles)
	if !r.Interrupted {
		t.Fatal("expected interrupted report")
	}
	if r.Succeeded != 1 || r.Failed != 1 {
		t.Errorf("expected 1 succeeded and 1 provisional failure, got %+v", r)
	}
	if fmt.Sprint(progressed) != "[1]" {
		t.Errorf("unexpected progress callbacks: %v", progressed)
	}

	drain := NewCoordinator(pool, 10*time.Millisecond, time.Second, quietLogger()).Drain()
	close(release)

	final := c.Settle(drain.Abandoned)
	if final.Submitted != 4 {
		t.Errorf("expected 4 submitted, got %d", final.Submitted)
	}
	if final.Succeeded != 1 || final.Failed != 3 || final.Abandoned != 0 {
		t.Errorf("expected blocking task failed and queued tasks cancelled, got %+v", final)
	}
	assertAccounted(t, final)

	counts := CountByKind(c.Outcomes())
	if counts[OutcomeCancelled] != 3 {
		t.Errorf("expected 3 cancelled outcomes, got %v", counts)
	}
}

func TestCollector_InterruptedTaskFinishes(t *testing.T) {
	pool := NewPool(1, quietLogger())

	release := make(chan struct{})
	handles := submitAll(t, pool,
		Task{ID: "done", Input: "done.txt", Operation: succeed("ok")},
		Task{ID: "finishing", Input: "finishing.txt", Operation: stuck(release)},
	)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewCollector(0, quietLogger())
	c.OnProgress(func(completed, total int) {
		if completed == 1 {
			cancel()
		}
	})

	if r := c.Collect(ctx, handles); !r.Interrupted || r.Failed != 1 {
		t.Fatalf("expected a provisional failure for the interrupted wait, got %+v", r)
	}

	close(release)
	drain := NewCoordinator(pool, time.Second, time.Second, quietLogger()).Drain()
	if drain.Forced {
		t.Fatalf("expected graceful drain, got %+v", drain)
	}

	final := c.Settle(drain.Abandoned)
	if final.Succeeded != 2 || final.Failed != 0 {
		t.Errorf("expected the interrupted task to count by its outcome, got %+v", final)
	}
	if !final.Interrupted {
		t.Error("expected report to stay interrupted")
	}
	assertAccounted(t, final)

	if failed := FilterFailed(c.Outcomes()); len(failed) != 0 {
		t.Errorf("expected no failed outcomes, got %+v", failed)
	}
}

func TestReport_Accounted(t *testing.T) {
	r := Report{Submitted: 6, Succeeded: 3, Failed: 2, Abandoned: 1}
	if r.Accounted() != 6 {
		t.Errorf("expected 6, got %d", r.Accounted())
	}
}
