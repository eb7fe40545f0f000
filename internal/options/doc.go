// Package options turns a conversion request into an immutable job Spec.
//
// Resolution is pure apart from identifier generation: it validates the
// request, applies the process-wide acceleration Profile, decides the output
// media kind, and assigns every path the job will touch. No file is created
// and no process is started here.
package options
