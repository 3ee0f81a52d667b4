// Package store provides SQLite-backed archival of artifact streams.
//
// A StreamWriter obtained from Store.Stream is an output.Writer: every line
// the emitter writes is decoded once, indexed by sequence number, kind and
// step id, and stored verbatim. Runs are tracked from testRunStart to
// testRunEnd so archived streams can be listed and replayed later.
//
// # Ordering
//
// All reads are ORDER BY seq ASC. Replaying a stream yields the lines
// byte-for-byte in emission order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
