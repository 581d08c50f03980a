// Package stats aggregates counters shared by every worker in a run.
//
// The hot counters (packets, bytes, connections, errors) are lock-free
// atomics so concurrent workers never serialize on a mutex per send; the
// latency histogram and per-kind error map sit behind a mutex because they
// are touched far less often than the wire. All counters are monotonically
// non-decreasing for the lifetime of a run and are never reset; a new run
// gets a fresh Collector.
package stats
