// Package notify batches change notifications and redirects them to
// caller-supplied execution contexts.
//
// ARCHITECTURE:
//
// A Router owns two FIFOs: one of collection events (ChangeEvent) and one of
// property events (PropertyChange). Producers post into the FIFOs; a single
// drainer at a time pops events and, for every registration, asks the
// registration's Executor to schedule the handler. Scheduling is
// fire-and-forget: the router never waits for a handler to run and never
// sees its failures.
//
// Hold / Release:
//
//	release := router.Suspend()
//	store.TryAdd("a", 1)
//	store.TryAdd("b", 2)
//	release() // one consolidated Add([a, b]) per handler
//
// While held, events accumulate. Release consolidates the queues and then
// drains them until both are empty, so events posted concurrently with the
// toggle are delivered exactly once.
//
// Consolidation rules:
//   - Collection events: consecutive events with the same Action merge into
//     one event carrying the concatenated items in arrival order. A change
//     of Action ends the run. Replace merges both new and old item lists.
//   - Property events: grouped by Source in first-seen order; repeated names
//     collapse into one notification per (Source, Name).
//
// Executors:
//   - Inline runs the callback on the calling goroutine (the default).
//   - Goroutine starts a new goroutine per callback.
//   - Serial runs callbacks one at a time, in FIFO order, on a worker
//     goroutine started with Run.
//
// Registrations are keyed by (Executor, HandlerID). Executors are used as
// map keys, so implementations must be comparable (pointer or plain struct
// types).
package notify
