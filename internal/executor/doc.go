// Package executor provides a bounded worker pool for running independent tasks,
// together with the collector and shutdown coordinator that account for every
// submitted task exactly once.
//
// # Key Features
//
//   - Fixed number of workers, FIFO start order, any completion order
//   - One Handle per submitted task, resolved exactly once
//   - Per-task wait timeout that cancels only the task that timed out
//   - Two-phase drain: graceful window, then forced cancellation with a bounded wait
//   - Errors and panics from operations never escape the pool
//
// # Basic Usage
//
//	pool := executor.NewPool(4, logger)
//
//	var handles []*executor.Handle
//	for _, path := range paths {
//	    h, err := pool.Submit(executor.Task{
//	        ID:    path,
//	        Input: path,
//	        Operation: func(ctx context.Context) (interface{}, error) {
//	            return process(ctx, path)
//	        },
//	    })
//	    if err != nil {
//	        return err
//	    }
//	    handles = append(handles, h)
//	}
//
//	collector := executor.NewCollector(2*time.Minute, logger)
//	collector.Collect(ctx, handles)
//
//	drain := executor.NewCoordinator(pool, time.Minute, 30*time.Second, logger).Drain()
//	report := collector.Settle(drain.Abandoned)
//
// # Accounting
//
// After Settle, Succeeded + Failed + Abandoned equals the number of handles
// collected. A task whose wait timed out is counted as failed; if it is still
// running when the forced window elapses it is moved to abandoned instead.
// When collection is interrupted, the interrupted handle and the ones never
// waited on are counted by whatever outcome they reached during the drain.
// A timed-out task that went on to succeed stays failed; its outcome is marked
// Late because its side effects were kept.
//
// Pool.StopOn binds the queue to a context. Once that context is done, queued
// tasks are dropped as cancelled and no worker starts another one.
//
// # Cancellation
//
// Cancellation is cooperative. Each operation receives a context that is
// cancelled when its wait times out (cause ErrTaskTimeout) or when the drain
// is forced (cause ErrForcedShutdown). An operation that never looks at its
// context cannot be stopped; the coordinator abandons it and reports the pool
// as unresponsive.
//
// # Drain State Machine
//
//	Running --Close--> Draining --all done--> Terminated
//	                      |
//	                graceful window
//	                      v
//	                   Forcing --done or forced window--> Terminated
//
// Transitions are recorded in DrainResult and can be observed with
// Coordinator.OnTransition.
package executor
