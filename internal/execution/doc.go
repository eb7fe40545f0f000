// Package execution runs the fetcher and transcoder for one job.
//
// A job runs in one of three modes chosen from its Spec:
//   - direct: an uploaded file is transcoded in a single process.
//   - staged: the fetcher downloads to a templated path, the real file is
//     located by prefix, then transcoded.
//   - streamed: fetcher stdout is piped straight into transcoder stdin and
//     both processes run concurrently.
//
// Every process runs in its own process group so termination reaches any
// helpers it spawned. Stderr is forwarded to debug logs and its tail is kept
// for failure diagnostics.
package execution
