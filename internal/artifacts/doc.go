// Package artifacts tracks the files a job creates and removes them exactly
// once when the job's result is released or the job fails.
package artifacts
