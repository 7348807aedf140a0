// Package bench drives a retain server with concurrent WebSocket hosts and
// reports round-trip latency, throughput, wire volume and GC cost.
//
// Each simulated host opens a session for the todo program, seeded with
// ListSize items, then types a unique token into the draft input at a fixed
// rate. A sample is the time from writing the input event to decoding the
// SetProperty op that echoes the token back.
package bench
