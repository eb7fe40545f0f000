// Package history persists a record of every conversion job in SQLite.
//
// The store backs the /api/jobs endpoints, the `lofi history` command and
// the retention loop in the server. Jobs move from running to completed or
// failed; jobs still running when the process stops are marked interrupted on
// the next start.
package history
