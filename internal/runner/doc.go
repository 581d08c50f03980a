// Package runner owns the lifecycle of a stress run.
//
// The Controller is the single owner of worker goroutines: it creates one
// worker per (test type x thread count) pair, hands each a private strategy
// instance and pacer, and is the only component that joins them. Workers
// coordinate through exactly two shared objects, the atomic running flag and
// the stats collector; everything else a worker touches is its own.
//
// State moves Idle -> Running -> Stopping -> Stopped and never back. A
// Controller is single-use: a new run needs a fresh Controller and a fresh
// collector.
package runner
