// Package main hosts the lofi CLI.
//
// `lofi serve` runs the HTTP conversion service. `lofi convert` runs a single
// job in the foreground and copies the result to a destination. `lofi history`
// and `lofi status` read the job history database and the runtime
// dependency report, and `lofi config` scaffolds and validates configuration.
package main
