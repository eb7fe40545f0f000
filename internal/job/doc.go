// Package job runs one conversion end to end.
//
// A Driver resolves the request, saves any upload, hands the resolved spec to
// the execution runner and owns the per-job artifact tracker. Failed jobs
// release their files before Run returns; successful jobs hand a Result to
// the caller, who delivers the output and then calls Release.
package job
