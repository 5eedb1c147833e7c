// Package store keeps a SQLite history of ducktest report runs.
//
// Each run records the suite it came from, the totals of its parsed report
// and one row per "ok"/"not ok" line:
//   - runs: one row per recorded report, keyed by a UUIDv7
//   - results: the report's results in line order, paths stored as JSON
//
// Runs are ordered by seq, a logical clock that resumes from the highest
// recorded value when the database is reopened. Queries always order by
// seq and then id so that listings are stable.
//
// Every run also stores the digest of its report text. Runs that produced
// byte-identical reports share a digest; see [Store.RunsWithDigest].
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
