// Package journal provides a SQLite-backed log of every notification the
// engine handed to its transport.
//
// Each row holds the registration, method, document URI and version, the
// params as RFC 8785 canonical JSON, and whether the send succeeded. Rows
// are ordered by a logical seq, never by wall time, so two runs of the same
// scenario produce identical journals apart from recorded_at.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Row IDs are content-addressed via metadata.NotificationID.
package journal
